package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the centralized Prometheus metrics registry for webagent, adapted from the
// teacher's Metrics struct (observability/metrics.go) to this domain's own units of work:
// DSL actions instead of chat messages, planner calls instead of generic LLM requests, and
// task-manager/browser-lock metrics instead of session/channel ones.
type Metrics struct {
	// ActionCounter counts executed DSL actions. Labels: kind, outcome (success|failed).
	ActionCounter *prometheus.CounterVec

	// ActionDuration measures per-action wall-clock time, including retries.
	// Labels: kind.
	ActionDuration *prometheus.HistogramVec

	// ActionRetries counts the number of retry attempts consumed per action kind.
	// Labels: kind.
	ActionRetries *prometheus.CounterVec

	// PlannerRequestDuration measures planner call latency. Labels: provider, model.
	PlannerRequestDuration *prometheus.HistogramVec

	// PlannerRequestCounter counts planner calls. Labels: provider, model, status.
	PlannerRequestCounter *prometheus.CounterVec

	// CatalogRebuildCounter counts element catalog rebuilds. Labels: reason.
	CatalogRebuildCounter *prometheus.CounterVec

	// CatalogSize tracks the number of entries in the most recent catalog build.
	CatalogSize prometheus.Gauge

	// TaskCounter counts finished plan executions. Labels: state (completed|failed, as the
	// orchestrator records them).
	TaskCounter *prometheus.CounterVec

	// TaskQueueDepth tracks the number of tasks currently queued or running.
	TaskQueueDepth prometheus.Gauge

	// TaskDuration measures end-to-end task execution time.
	TaskDuration prometheus.Histogram

	// BrowserLockWait measures time spent waiting to acquire the browser lock.
	BrowserLockWait prometheus.Histogram

	// BrowserRefreshCounter counts browser-context refreshes. Labels: preserve_url.
	BrowserRefreshCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP API request latency. Labels: method, path, status_code.
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests. Labels: method, path, status_code.
	HTTPRequestCounter *prometheus.CounterVec
}

// NewMetrics registers and returns a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		ActionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webagent_actions_total",
				Help: "Total number of DSL actions executed, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ActionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webagent_action_duration_seconds",
				Help:    "Duration of a DSL action, including retries, in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		),
		ActionRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webagent_action_retries_total",
				Help: "Total number of retry attempts consumed per action kind",
			},
			[]string{"kind"},
		),
		PlannerRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webagent_planner_request_duration_seconds",
				Help:    "Duration of planner (LLM) calls in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"provider", "model"},
		),
		PlannerRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webagent_planner_requests_total",
				Help: "Total number of planner calls, by provider/model/status",
			},
			[]string{"provider", "model", "status"},
		),
		CatalogRebuildCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webagent_catalog_rebuilds_total",
				Help: "Total number of element catalog rebuilds, by invalidation reason",
			},
			[]string{"reason"},
		),
		CatalogSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webagent_catalog_size",
				Help: "Number of entries in the most recently built element catalog",
			},
		),
		TaskCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webagent_tasks_total",
				Help: "Total number of task lifecycle transitions, by resulting state",
			},
			[]string{"state"},
		),
		TaskQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webagent_task_queue_depth",
				Help: "Number of tasks currently queued or running",
			},
		),
		TaskDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webagent_task_duration_seconds",
				Help:    "End-to-end duration of a task from submission to terminal state",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		BrowserLockWait: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webagent_browser_lock_wait_seconds",
				Help:    "Time spent waiting to acquire the browser lock",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
		),
		BrowserRefreshCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webagent_browser_refreshes_total",
				Help: "Total number of browser context refreshes",
			},
			[]string{"preserve_url"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webagent_http_request_duration_seconds",
				Help:    "Duration of HTTP API requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webagent_http_requests_total",
				Help: "Total number of HTTP API requests",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}
