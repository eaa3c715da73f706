package handlers

import (
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/gofiber/fiber/v3"
)

// ListReportViewers handles GET /api/v1/reportviewer/
func (s *Server) ListReportViewers(c fiber.Ctx) error {
	list, err := s.viewers.List(c.Context())
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result": list,
		"count":  len(list),
	})
}

// CreateReportViewer handles POST /api/v1/reportviewer/
func (s *Server) CreateReportViewer(c fiber.Ctx) error {
	var rv reportviewer.ReportViewer
	if err := s.bindBody(c, "ReportViewerCreate", &rv); err != nil {
		return err
	}

	rv.ID = 0

	if err := s.viewers.Create(c.Context(), &rv); err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     rv.ID,
		"result": rv,
	})
}

// GetReportViewer handles GET /api/v1/reportviewer/{id}
func (s *Server) GetReportViewer(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	rv, err := s.viewers.Get(c.Context(), id)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"result": rv})
}

// UpdateReportViewer handles PUT /api/v1/reportviewer/{id}
func (s *Server) UpdateReportViewer(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	var patch reportviewer.Patch
	if err := s.bindBody(c, "ReportViewerPatch", &patch); err != nil {
		return err
	}

	rv, err := s.viewers.Update(c.Context(), id, patch)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":     rv.ID,
		"result": rv,
	})
}

// DeleteReportViewer handles DELETE /api/v1/reportviewer/{id}
func (s *Server) DeleteReportViewer(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	if err := s.viewers.Delete(c.Context(), id); err != nil {
		return apiError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CopyReportViewer handles POST /api/v1/reportviewer/{id}/copy/
func (s *Server) CopyReportViewer(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	var req reportviewer.CopyRequest
	if err := s.bindBody(c, "CopyRequest", &req); err != nil {
		return err
	}

	rv, err := s.viewers.Copy(c.Context(), id, req)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     rv.ID,
		"result": rv,
	})
}

// GetReportViewerCharts handles GET /api/v1/reportviewer/{id}/charts
func (s *Server) GetReportViewerCharts(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	charts, err := s.viewers.Charts(c.Context(), id)
	if err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"result": charts})
}

// AddReportViewerChart handles POST /api/v1/reportviewer/{id}/charts
func (s *Server) AddReportViewerChart(c fiber.Ctx) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	var chart reportviewer.Chart
	if err := s.bindBody(c, "Chart", &chart); err != nil {
		return err
	}

	if err := s.viewers.AddChart(c.Context(), id, &chart); err != nil {
		return apiError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": chart})
}
