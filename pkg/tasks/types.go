// Package tasks provides the chart refresh queue on top of Asynq
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
)

const (
	// TypeChartRefresh is the task type for chart data refreshes
	TypeChartRefresh = "chart:refresh"

	// QueueInteractive holds refreshes a user is waiting on
	QueueInteractive = "interactive"
	// QueueScheduled holds periodic auto refreshes
	QueueScheduled = "scheduled"
)

// RefreshPayload represents the payload of a chart refresh task
type RefreshPayload struct {
	SessionID      string                `json:"session_id,omitempty"`
	ReportViewerID int                   `json:"report_viewer_id"`
	ChartID        int                   `json:"chart_id"`
	Reason         refresh.Reason        `json:"reason"`
	ExtraFormData  map[string]any        `json:"extra_form_data,omitempty"`
	ExtraFilters   []refresh.ExtraFilter `json:"extra_filters,omitempty"`
	EnqueuedAt     time.Time             `json:"enqueued_at"`
}

// UniqueID returns the task id shared by every refresh of the same chart
// in the same session
func (p RefreshPayload) UniqueID() string {
	return chartScope(p.SessionID, p.ReportViewerID, p.ChartID)
}

// QueueName returns the queue the payload is processed on
func (p RefreshPayload) QueueName() string {
	if p.Reason == refresh.ReasonScheduled {
		return QueueScheduled
	}

	return QueueInteractive
}

// Queues returns the prefixed queue weights a worker serves
func Queues(keys *r.Config) map[string]int {
	return map[string]int{
		keys.PrefixQueue(QueueInteractive): 6,
		keys.PrefixQueue(QueueScheduled):   3,
	}
}

// ChartResult is the stored outcome of a chart refresh
type ChartResult struct {
	SessionID      string          `json:"session_id,omitempty"`
	ReportViewerID int             `json:"report_viewer_id"`
	ChartID        int             `json:"chart_id"`
	Reason         refresh.Reason  `json:"reason"`
	Status         string          `json:"status"`
	Data           json.RawMessage `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
	Duration       time.Duration   `json:"duration"`
	QueriedAt      time.Time       `json:"queried_at"`
}

// chartScope names a chart of a session, or of the report viewer alone when
// sessionID is empty
func chartScope(sessionID string, reportViewerID, chartID int) string {
	if sessionID == "" {
		return fmt.Sprintf("%d:%d", reportViewerID, chartID)
	}

	return fmt.Sprintf("%s:%d:%d", sessionID, reportViewerID, chartID)
}

const (
	// StatusSuccess marks a chart query that returned data
	StatusSuccess = "success"
	// StatusFailed marks a chart query that failed
	StatusFailed = "failed"
)
