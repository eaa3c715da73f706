package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// ActionsTotal counts dispatched session actions
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_actions_total",
			Help: "Total number of session actions dispatched",
		},
		[]string{"action", "status"}, // status: applied, rejected
	)

	// ActionDuration measures reduce plus refresh planning time
	ActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportviewer_action_duration_seconds",
			Help:    "Time taken to apply a session action",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
		},
		[]string{"action"},
	)

	// ChartsRefreshed counts chart refreshes handed to the fetch layer
	ChartsRefreshed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_charts_refreshed_total",
			Help: "Total number of chart refreshes requested",
		},
		[]string{"reason"}, // reason: filters, added, scheduled, manual
	)

	// RefreshesSuppressed counts filter changes held back
	RefreshesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reportviewer_refreshes_suppressed_total",
			Help: "Total number of filter changes held back by edit mode or required filters",
		},
	)

	// SessionsOpen tracks the number of open sessions
	SessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reportviewer_sessions_open",
			Help: "Number of open report viewer sessions",
		},
	)

	// SavesTotal counts report viewer saves
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_saves_total",
			Help: "Total number of report viewer saves",
		},
		[]string{"type", "status"}, // status: success, conflict, error
	)

	// TasksTotal tracks the total number of tasks processed
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_tasks_total",
			Help: "Total number of tasks processed",
		},
		[]string{"task", "status"}, // status: success, failed
	)

	// TaskDuration measures task execution duration in seconds
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportviewer_task_duration_seconds",
			Help:    "Task execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"task", "status"},
	)

	// TasksRunning tracks the number of currently running tasks
	TasksRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reportviewer_tasks_running",
			Help: "Number of currently running tasks",
		},
		[]string{"task", "worker"},
	)

	// TasksEnqueued counts total number of tasks enqueued
	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_tasks_enqueued_total",
			Help: "Total number of tasks enqueued",
		},
		[]string{"task", "trigger"}, // trigger: filters, added, scheduled, manual
	)

	// QueueDepth measures number of tasks in queue
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reportviewer_queue_depth",
			Help: "Number of tasks in queue",
		},
		[]string{"queue", "state"}, // state: pending, active, scheduled, retry
	)

	// ChartDataQueries counts chart data requests
	ChartDataQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_chart_data_queries_total",
			Help: "Total number of chart data queries executed",
		},
		[]string{"status"}, // status: success, error
	)

	// ChartDataQueryDuration measures chart data query time
	ChartDataQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reportviewer_chart_data_query_duration_seconds",
			Help:    "Chart data query execution time",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
	)

	// KeyValueOperations counts filter state and permalink operations
	KeyValueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_keyvalue_operations_total",
			Help: "Total number of filter state and permalink operations",
		},
		[]string{"resource", "operation", "status"}, // status: success, miss, error
	)

	// SchedulerActive indicates whether auto refresh is scheduled
	SchedulerActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reportviewer_scheduler_active",
			Help: "Whether auto refresh is scheduled for a session (1=active, 0=inactive)",
		},
		[]string{"session"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportviewer_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordAction records a dispatched action
func RecordAction(action, status string, duration float64) {
	ActionsTotal.WithLabelValues(action, status).Inc()
	ActionDuration.WithLabelValues(action).Observe(duration)
}

// RecordChartsRefreshed records refresh requests for count charts
func RecordChartsRefreshed(reason string, count int) {
	ChartsRefreshed.WithLabelValues(reason).Add(float64(count))
}

// RecordRefreshSuppressed records a held back filter change
func RecordRefreshSuppressed() {
	RefreshesSuppressed.Inc()
}

// RecordSave records a save attempt
func RecordSave(saveType, status string) {
	SavesTotal.WithLabelValues(saveType, status).Inc()
}

// RecordTaskStart records the start of a task
func RecordTaskStart(task, worker string) {
	TasksRunning.WithLabelValues(task, worker).Inc()
}

// RecordTaskComplete records task completion
func RecordTaskComplete(task, worker, status string, duration float64) {
	TasksRunning.WithLabelValues(task, worker).Dec()
	TasksTotal.WithLabelValues(task, status).Inc()
	TaskDuration.WithLabelValues(task, status).Observe(duration)
}

// RecordTaskEnqueued records task enqueue
func RecordTaskEnqueued(task, trigger string) {
	TasksEnqueued.WithLabelValues(task, trigger).Inc()
}

// RecordChartDataQuery records a chart data query
func RecordChartDataQuery(status string, duration float64) {
	ChartDataQueries.WithLabelValues(status).Inc()
	ChartDataQueryDuration.Observe(duration)
}

// RecordKeyValue records a filter state or permalink operation
func RecordKeyValue(resource, operation, status string) {
	KeyValueOperations.WithLabelValues(resource, operation, status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
