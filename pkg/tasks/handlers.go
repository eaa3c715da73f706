package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/observability"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Executor runs the chart query of a refresh task
type Executor interface {
	Execute(ctx context.Context, payload RefreshPayload) error
}

// workerID names the process handling tasks in metrics
func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "worker-unknown"
	}

	return hostname
}

// TaskHandler handles task execution
type TaskHandler struct {
	log      logrus.FieldLogger
	executor Executor
	workerID string
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(log logrus.FieldLogger, executor Executor) *TaskHandler {
	return &TaskHandler{
		log:      log.WithField("component", "task-handler"),
		executor: executor,
		workerID: workerID(),
	}
}

// HandleRefresh handles chart refresh tasks
func (h *TaskHandler) HandleRefresh(ctx context.Context, t *asynq.Task) error {
	var payload RefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		observability.RecordError("task-handler", "unmarshal_error")

		// a payload that cannot be decoded never will be
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	log := h.log.WithFields(logrus.Fields{
		"session_id":       payload.SessionID,
		"report_viewer_id": payload.ReportViewerID,
		"chart_id":         payload.ChartID,
		"reason":           payload.Reason,
	})

	startTime := time.Now()
	observability.RecordTaskStart(TypeChartRefresh, h.workerID)

	if err := h.executor.Execute(ctx, payload); err != nil {
		observability.RecordTaskComplete(TypeChartRefresh, h.workerID, "failed", time.Since(startTime).Seconds())
		observability.RecordError("task-handler", "execution_error")
		log.WithError(err).Warn("Chart refresh failed")

		return fmt.Errorf("execution error: %w", err)
	}

	observability.RecordTaskComplete(TypeChartRefresh, h.workerID, "success", time.Since(startTime).Seconds())

	log.WithFields(logrus.Fields{
		"duration": time.Since(startTime),
		"waited":   startTime.Sub(payload.EnqueuedAt),
	}).Debug("Chart refresh completed")

	return nil
}

// Routes returns the task handler routes for Asynq
func (h *TaskHandler) Routes() map[string]asynq.HandlerFunc {
	return map[string]asynq.HandlerFunc{
		TypeChartRefresh: h.HandleRefresh,
	}
}
