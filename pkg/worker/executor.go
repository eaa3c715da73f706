// Package worker runs the chart refresh tasks of the queue
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/chartdata"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// ErrChartNotPlaced is returned when a refresh names a chart the report
// viewer does not hold
var ErrChartNotPlaced = errors.New("chart is not placed on the report viewer")

// ChartSource lists the charts placed on a report viewer
type ChartSource interface {
	Charts(ctx context.Context, reportViewerID int) ([]reportviewer.Chart, error)
}

// ChartExecutor queries the data of refreshed charts and stores the outcome
type ChartExecutor struct {
	log     logrus.FieldLogger
	charts  ChartSource
	client  chartdata.ClientInterface
	results tasks.ResultStore
	now     func() time.Time
}

// NewChartExecutor creates a new chart executor
func NewChartExecutor(log logrus.FieldLogger, charts ChartSource, client chartdata.ClientInterface, results tasks.ResultStore) *ChartExecutor {
	return &ChartExecutor{
		log:     log.WithField("component", "chart-executor"),
		charts:  charts,
		client:  client,
		results: results,
		now:     time.Now,
	}
}

// Execute runs the chart query of payload. Failed queries are stored as
// failed results and returned so the task is retried.
func (e *ChartExecutor) Execute(ctx context.Context, payload tasks.RefreshPayload) error {
	chart, err := e.chart(ctx, payload.ReportViewerID, payload.ChartID)
	if err != nil {
		return err
	}

	start := e.now()

	data, queryErr := e.client.Query(ctx, chartdata.Query{
		ChartID:       chart.ID,
		FormData:      chart.FormData,
		ExtraFormData: payload.ExtraFormData,
		ExtraFilters:  payload.ExtraFilters,
		Force:         payload.Reason == refresh.ReasonManual,
	})

	result := &tasks.ChartResult{
		SessionID:      payload.SessionID,
		ReportViewerID: payload.ReportViewerID,
		ChartID:        payload.ChartID,
		Reason:         payload.Reason,
		Status:         tasks.StatusSuccess,
		Data:           data,
		Duration:       e.now().Sub(start),
		QueriedAt:      start,
	}

	if queryErr != nil {
		result.Status = tasks.StatusFailed
		result.Error = queryErr.Error()
	}

	if err := e.results.Put(ctx, result); err != nil {
		return fmt.Errorf("failed to store result of chart %d: %w", payload.ChartID, err)
	}

	if queryErr != nil {
		return queryErr
	}

	e.log.WithFields(logrus.Fields{
		"session_id":       payload.SessionID,
		"report_viewer_id": payload.ReportViewerID,
		"chart_id":         payload.ChartID,
		"duration":         result.Duration,
	}).Debug("Stored chart data")

	return nil
}

func (e *ChartExecutor) chart(ctx context.Context, reportViewerID, chartID int) (*reportviewer.Chart, error) {
	charts, err := e.charts.Charts(ctx, reportViewerID)
	if err != nil {
		if errors.Is(err, reportviewer.ErrNotFound) {
			return nil, fmt.Errorf("report viewer %d: %w: %w", reportViewerID, err, asynq.SkipRetry)
		}

		return nil, fmt.Errorf("failed to load charts: %w", err)
	}

	for i := range charts {
		if charts[i].ID == chartID {
			return &charts[i], nil
		}
	}

	// the chart was removed after the refresh was queued
	return nil, fmt.Errorf("chart %d: %w: %w", chartID, ErrChartNotPlaced, asynq.SkipRetry)
}

var _ tasks.Executor = (*ChartExecutor)(nil)
