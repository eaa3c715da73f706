// Package handlers implements the report viewer REST API
package handlers

import (
	"context"

	"github.com/ethpandaops/reportviewer/pkg/api/openapi"
	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/state"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/ethpandaops/reportviewer/pkg/urls"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// ReportViewers manages stored report viewers
type ReportViewers interface {
	Get(ctx context.Context, id int) (*reportviewer.ReportViewer, error)
	List(ctx context.Context) ([]reportviewer.ReportViewer, error)
	Charts(ctx context.Context, id int) ([]reportviewer.Chart, error)
	Create(ctx context.Context, rv *reportviewer.ReportViewer) error
	Update(ctx context.Context, id int, p reportviewer.Patch) (*reportviewer.ReportViewer, error)
	Copy(ctx context.Context, id int, req reportviewer.CopyRequest) (*reportviewer.ReportViewer, error)
	AddChart(ctx context.Context, id int, chart *reportviewer.Chart) error
	Delete(ctx context.Context, id int) error
}

// Sessions manages open report viewer sessions
type Sessions interface {
	Open(ctx context.Context, reportViewerID int, opts sessions.OpenOptions) (*sessions.Session, error)
	Get(id string) (*sessions.Session, error)
	Close(id string) error
	Dispatch(ctx context.Context, id string, a state.Action) (state.DispatchResult, error)
	Save(ctx context.Context, id string, t reportviewer.SaveType) (*reportviewer.SaveResult, error)
	Permalink(ctx context.Context, id, anchor string) (string, error)
	SaveFilterState(ctx context.Context, id, tabID string) (string, error)
}

// Deps holds the services the API is served from. Links and Results are
// optional.
type Deps struct {
	ReportViewers ReportViewers
	Sessions      Sessions
	KeyValue      keyvalue.Store
	Results       tasks.ResultStore
	Links         *urls.Builder
	Validator     *openapi.Validator
}

// Server holds the request handlers
type Server struct {
	viewers   ReportViewers
	sessions  Sessions
	kv        keyvalue.Store
	results   tasks.ResultStore
	links     *urls.Builder
	validator *openapi.Validator
	log       logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(deps Deps, log logrus.FieldLogger) *Server {
	return &Server{
		viewers:   deps.ReportViewers,
		sessions:  deps.Sessions,
		kv:        deps.KeyValue,
		results:   deps.Results,
		links:     deps.Links,
		validator: deps.Validator,
		log:       log.WithField("component", "api.handlers"),
	}
}

// RegisterHandlers mounts every route on router
func RegisterHandlers(router fiber.Router, s *Server) {
	router.Get("/openapi.json", s.GetOpenAPI)

	router.Get("/reportviewer/", s.ListReportViewers)
	router.Post("/reportviewer/", s.CreateReportViewer)
	router.Get("/reportviewer/permalink/:key", s.GetPermalink)
	router.Get("/reportviewer/:id", s.GetReportViewer)
	router.Put("/reportviewer/:id", s.UpdateReportViewer)
	router.Delete("/reportviewer/:id", s.DeleteReportViewer)
	router.Post("/reportviewer/:id/copy/", s.CopyReportViewer)
	router.Get("/reportviewer/:id/charts", s.GetReportViewerCharts)
	router.Post("/reportviewer/:id/charts", s.AddReportViewerChart)

	router.Post("/reportviewer/:id/filter_state", s.CreateFilterState)
	router.Get("/reportviewer/:id/filter_state/:key", s.GetFilterState)
	router.Put("/reportviewer/:id/filter_state/:key", s.UpdateFilterState)
	router.Delete("/reportviewer/:id/filter_state/:key", s.DeleteFilterState)
	router.Post("/reportviewer/:id/permalink", s.CreatePermalink)

	router.Post("/reportviewer/:id/sessions", s.OpenSession)
	router.Get("/sessions/:sid", s.GetSession)
	router.Delete("/sessions/:sid", s.CloseSession)
	router.Post("/sessions/:sid/actions", s.DispatchAction)
	router.Post("/sessions/:sid/save", s.SaveSession)
	router.Post("/sessions/:sid/refresh", s.RefreshSession)
	router.Get("/sessions/:sid/tabs_in_scope", s.GetTabsInScope)
	router.Post("/sessions/:sid/permalink", s.SessionPermalink)
	router.Post("/sessions/:sid/filter_state", s.SessionFilterState)
	router.Get("/sessions/:sid/charts/:chartId/data", s.GetChartData)
}

// GetOpenAPI handles GET /api/v1/openapi.json
func (s *Server) GetOpenAPI(c fiber.Ctx) error {
	if s.validator == nil {
		return fiber.ErrNotFound
	}

	return c.Status(fiber.StatusOK).JSON(s.validator.Document())
}
