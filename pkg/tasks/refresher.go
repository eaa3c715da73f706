package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/observability"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Enqueuer enqueues refresh payloads
type Enqueuer interface {
	EnqueueRefresh(ctx context.Context, payload RefreshPayload, opts ...asynq.Option) error
}

// Refresher turns refresh requests of a session into one task per chart
type Refresher struct {
	log   logrus.FieldLogger
	queue Enqueuer
	now   func() time.Time
}

// NewRefresher creates a refresher enqueueing onto queue
func NewRefresher(log logrus.FieldLogger, queue Enqueuer) *Refresher {
	return &Refresher{
		log:   log.WithField("component", "refresher"),
		queue: queue,
		now:   time.Now,
	}
}

// Refresh enqueues a task for every chart of req. Staggered requests hold
// each chart back by its share of the stagger window.
func (r *Refresher) Refresh(ctx context.Context, req refresh.Request) error {
	enqueuedAt := r.now()

	for i, chart := range req.Charts {
		payload := RefreshPayload{
			SessionID:      req.SessionID,
			ReportViewerID: req.ReportViewerID,
			ChartID:        chart.ChartID,
			Reason:         req.Reason,
			ExtraFormData:  chart.ExtraFormData,
			ExtraFilters:   chart.ExtraFilters,
			EnqueuedAt:     enqueuedAt,
		}

		var opts []asynq.Option
		if delay := req.Delay(i); delay > 0 {
			opts = append(opts, asynq.ProcessIn(delay))
		}

		if err := r.queue.EnqueueRefresh(ctx, payload, opts...); err != nil {
			observability.RecordError("refresher", "enqueue_error")

			return fmt.Errorf("failed to enqueue refresh of chart %d: %w", chart.ChartID, err)
		}

		observability.RecordTaskEnqueued(TypeChartRefresh, string(req.Reason))
	}

	r.log.WithFields(logrus.Fields{
		"session_id":       req.SessionID,
		"report_viewer_id": req.ReportViewerID,
		"charts":           len(req.Charts),
		"reason":           req.Reason,
		"stagger":          req.Stagger,
	}).Debug("Enqueued chart refreshes")

	return nil
}

var _ refresh.Refresher = (*Refresher)(nil)
