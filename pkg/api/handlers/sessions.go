package handlers

import (
	"errors"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/state"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// ErrUnknownFilter is returned when tabs in scope are asked for a filter
// the session does not hold
var ErrUnknownFilter = fiber.NewError(fiber.StatusNotFound, "filter not found")

// OpenSession handles POST /api/v1/reportviewer/{id}/sessions
func (s *Server) OpenSession(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	var opts sessions.OpenOptions
	if err := s.bindBody(c, "SessionOpen", &opts); err != nil {
		return err
	}

	sess, err := s.sessions.Open(c.Context(), id, opts)
	if err != nil {
		return apiError(err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id":       sess.ID,
		"report_viewer_id": id,
	}).Debug("Opened session")

	view := newSessionView(sess, sess.Store().State())
	view.Hydration = newHydrationView(sess.Report)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     sess.ID,
		"result": view,
	})
}

// GetSession handles GET /api/v1/sessions/{sid}
func (s *Server) GetSession(c fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"result": newSessionView(sess, sess.Store().State())})
}

// CloseSession handles DELETE /api/v1/sessions/{sid}
func (s *Server) CloseSession(c fiber.Ctx) error {
	sid, err := pathString(c, "sid")
	if err != nil {
		return err
	}

	if err := s.sessions.Close(sid); err != nil {
		return apiError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DispatchAction handles POST /api/v1/sessions/{sid}/actions
func (s *Server) DispatchAction(c fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	if s.validator != nil {
		if err := s.validator.ValidateBody("Action", c.Body()); err != nil {
			return apiError(err)
		}
	}

	action, err := state.DecodeAction(c.Body())
	if err != nil {
		return apiError(err)
	}

	res, err := s.sessions.Dispatch(c.Context(), sess.ID, action)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result":  newSessionView(sess, res.State),
		"refresh": newRefreshView(res.Refresh),
	})
}

type saveBody struct {
	Type reportviewer.SaveType `json:"type"`
}

// SaveSession handles POST /api/v1/sessions/{sid}/save. A rejected overwrite
// answers 409 with the differing fields so the caller can confirm.
func (s *Server) SaveSession(c fiber.Ctx) error {
	sid, err := pathString(c, "sid")
	if err != nil {
		return err
	}

	var body saveBody
	if err := s.bindBody(c, "SaveRequest", &body); err != nil {
		return err
	}

	res, err := s.sessions.Save(c.Context(), sid, body.Type)
	if err != nil {
		var conflict *reportviewer.OverwriteConflictError
		if errors.As(err, &conflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": conflict.Error(),
				"code":  fiber.StatusConflict,
				"items": conflict.Items,
			})
		}

		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":               res.ReportViewer.ID,
		"lastModifiedTime": res.LastModifiedTime,
		"result":           res.ReportViewer,
	})
}

type refreshBody struct {
	ChartIDs []int `json:"chartIds"`
}

// RefreshSession handles POST /api/v1/sessions/{sid}/refresh. Without chart
// ids every chart of the session is queried again.
func (s *Server) RefreshSession(c fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var body refreshBody
	if err := s.bindBody(c, "RefreshRequest", &body); err != nil {
		return err
	}

	charts := sess.Store().Refresh(c.Context(), body.ChartIDs, refresh.ReasonManual)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"charts": nonNilInts(charts)})
}

// GetTabsInScope handles GET /api/v1/sessions/{sid}/tabs_in_scope. The
// filter is a native filter id or an active filter key.
func (s *Server) GetTabsInScope(c fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	filterID, err := queryString(c, "filter_id", true)
	if err != nil {
		return err
	}

	st := sess.Store().State()

	var charts []int

	if _, ok := st.NativeFilters.Filter(filterID); ok {
		charts = st.NativeFilters.AffectedCharts(filterID)
	} else if _, _, keyErr := filters.ParseKey(filterID); keyErr == nil {
		active, ok := st.Filters.Active()[filterID]
		if !ok {
			return ErrUnknownFilter
		}

		charts = active.Scope
	} else {
		return ErrUnknownFilter
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"charts": nonNilInts(charts),
		"tabs":   nonNilStrings(st.TabsInScope(charts)),
	})
}

type sessionPermalinkBody struct {
	Anchor string `json:"anchor"`
}

// SessionPermalink handles POST /api/v1/sessions/{sid}/permalink
func (s *Server) SessionPermalink(c fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var body sessionPermalinkBody
	if err := s.bindBody(c, "SessionPermalink", &body); err != nil {
		return err
	}

	key, err := s.sessions.Permalink(c.Context(), sess.ID, body.Anchor)
	if err != nil {
		return apiError(err)
	}

	out := s.permalinkLink(key)

	if link, ok := out["url"].(string); ok {
		mailto, err := s.links.Mailto(sess.Store().State().Title(), link)
		if err != nil {
			s.log.WithError(err).Warn("Failed to render share email")
		} else {
			out["mailto"] = mailto
		}
	}

	return c.Status(fiber.StatusCreated).JSON(out)
}

// SessionFilterState handles POST /api/v1/sessions/{sid}/filter_state
func (s *Server) SessionFilterState(c fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	tabID, err := queryString(c, "tab_id", false)
	if err != nil {
		return err
	}

	key, err := s.sessions.SaveFilterState(c.Context(), sess.ID, tabID)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(s.filterStateLink(sess.ReportViewerID, sess.Store().State().Slug, key))
}

// GetChartData handles GET /api/v1/sessions/{sid}/charts/{chartId}/data
func (s *Server) GetChartData(c fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	chartID, err := pathInt(c, "chartId")
	if err != nil {
		return err
	}

	if s.results == nil {
		return fiber.ErrNotFound
	}

	placed := false

	for _, id := range sess.Store().State().SliceIDs {
		if id == chartID {
			placed = true

			break
		}
	}

	if !placed {
		return ErrChartNotInSession
	}

	result, err := s.results.Get(c.Context(), sess.ID, sess.ReportViewerID, chartID)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"result": result})
}

func (s *Server) session(c fiber.Ctx) (*sessions.Session, error) {
	sid, err := pathString(c, "sid")
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(sid)
	if err != nil {
		return nil, apiError(err)
	}

	return sess, nil
}
