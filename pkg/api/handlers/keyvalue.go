package handlers

import (
	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/gofiber/fiber/v3"
)

type filterStateBody struct {
	Value string `json:"value"`
}

// CreateFilterState handles POST /api/v1/reportviewer/{id}/filter_state
func (s *Server) CreateFilterState(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	tabID, err := queryString(c, "tab_id", false)
	if err != nil {
		return err
	}

	var body filterStateBody
	if err := s.bindBody(c, "FilterStateValue", &body); err != nil {
		return err
	}

	rv, err := s.viewers.Get(c.Context(), id)
	if err != nil {
		return apiError(err)
	}

	key, err := s.kv.CreateFilterState(c.Context(), id, body.Value, tabID)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(s.filterStateLink(rv.ID, rv.Slug, key))
}

// GetFilterState handles GET /api/v1/reportviewer/{id}/filter_state/{key}
func (s *Server) GetFilterState(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	key, err := pathString(c, "key")
	if err != nil {
		return err
	}

	entry, err := s.kv.GetFilterState(c.Context(), id, key)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"value": entry.Value})
}

// UpdateFilterState handles PUT /api/v1/reportviewer/{id}/filter_state/{key}
func (s *Server) UpdateFilterState(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	key, err := pathString(c, "key")
	if err != nil {
		return err
	}

	tabID, err := queryString(c, "tab_id", false)
	if err != nil {
		return err
	}

	var body filterStateBody
	if err := s.bindBody(c, "FilterStateValue", &body); err != nil {
		return err
	}

	next, err := s.kv.UpdateFilterState(c.Context(), id, key, body.Value, tabID)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": next})
}

// DeleteFilterState handles DELETE /api/v1/reportviewer/{id}/filter_state/{key}
func (s *Server) DeleteFilterState(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	key, err := pathString(c, "key")
	if err != nil {
		return err
	}

	if err := s.kv.DeleteFilterState(c.Context(), id, key); err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Deleted successfully"})
}

// CreatePermalink handles POST /api/v1/reportviewer/{id}/permalink
func (s *Server) CreatePermalink(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	var st keyvalue.PermalinkState
	if err := s.bindBody(c, "PermalinkState", &st); err != nil {
		return err
	}

	if _, err := s.viewers.Get(c.Context(), id); err != nil {
		return apiError(err)
	}

	key, err := s.kv.CreatePermalink(c.Context(), keyvalue.PermalinkValue{ReportViewerID: id, State: st})
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(s.permalinkLink(key))
}

// GetPermalink handles GET /api/v1/reportviewer/permalink/{key}
func (s *Server) GetPermalink(c fiber.Ctx) error {
	key, err := pathString(c, "key")
	if err != nil {
		return err
	}

	value, err := s.kv.GetPermalink(c.Context(), key)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(value)
}

// permalinkLink builds the response of a created permalink. Link rendering
// failures are logged and leave the url out.
func (s *Server) permalinkLink(key string) fiber.Map {
	out := fiber.Map{"key": key}

	if s.links == nil {
		return out
	}

	link, err := s.links.Permalink(key)
	if err != nil {
		s.log.WithError(err).Warn("Failed to render permalink url")

		return out
	}

	out["url"] = link

	return out
}

func (s *Server) filterStateLink(id int, slug, key string) fiber.Map {
	out := fiber.Map{"key": key}

	if s.links == nil {
		return out
	}

	link, err := s.links.ReportViewer(id, slug, key)
	if err != nil {
		s.log.WithError(err).Warn("Failed to render report viewer url")

		return out
	}

	out["url"] = link

	return out
}
