package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	r "github.com/ethpandaops/reportviewer/pkg/redis"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/hibiken/asynq"
)

// QueueManager manages refresh task queuing
type QueueManager struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	keys      *r.Config
}

// NewQueueManager creates a new queue manager. Queue names carry the prefix
// of keys.
func NewQueueManager(redisOpt *asynq.RedisClientOpt, keys *r.Config) *QueueManager {
	return &QueueManager{
		client:    asynq.NewClient(*redisOpt),
		inspector: asynq.NewInspector(*redisOpt),
		keys:      keys,
	}
}

// EnqueueRefresh enqueues a chart refresh. A refresh of the same chart in
// the same session that is still waiting is replaced so the latest filters
// win; one that is already running is left alone and the new refresh queued
// next to it. Sessions never replace each other's refreshes.
func (q *QueueManager) EnqueueRefresh(ctx context.Context, payload RefreshPayload, opts ...asynq.Option) error {
	if payload.EnqueuedAt.IsZero() {
		payload.EnqueuedAt = time.Now()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeChartRefresh, data)

	allOpts := []asynq.Option{
		asynq.TaskID(payload.UniqueID()),
		asynq.Queue(q.keys.PrefixQueue(payload.QueueName())),
		asynq.MaxRetry(2),
		asynq.Timeout(2 * time.Minute),
	}
	allOpts = append(allOpts, opts...)

	_, err = q.client.EnqueueContext(ctx, task, allOpts...)
	if err == nil || !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}

	if delErr := q.inspector.DeleteTask(q.keys.PrefixQueue(payload.QueueName()), payload.UniqueID()); delErr == nil {
		_, err = q.client.EnqueueContext(ctx, task, allOpts...)

		return err
	}

	allOpts = append(allOpts, asynq.TaskID(fmt.Sprintf("%s:%d", payload.UniqueID(), payload.EnqueuedAt.UnixNano())))
	_, err = q.client.EnqueueContext(ctx, task, allOpts...)

	return err
}

// PendingRefresh returns the queued refresh of a chart in a session, if any
func (q *QueueManager) PendingRefresh(sessionID string, reportViewerID, chartID int, reason refresh.Reason) (*RefreshPayload, error) {
	key := RefreshPayload{SessionID: sessionID, ReportViewerID: reportViewerID, ChartID: chartID, Reason: reason}

	info, err := q.inspector.GetTaskInfo(q.keys.PrefixQueue(key.QueueName()), key.UniqueID())
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, nil
		}

		return nil, err
	}

	var payload RefreshPayload
	if err := json.Unmarshal(info.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &payload, nil
}

// GetQueueStats returns queue statistics
func (q *QueueManager) GetQueueStats(queueName string) (*asynq.QueueInfo, error) {
	return q.inspector.GetQueueInfo(q.keys.PrefixQueue(queueName))
}

// Close closes the queue manager
func (q *QueueManager) Close() error {
	if err := q.inspector.Close(); err != nil {
		return err
	}

	return q.client.Close()
}
