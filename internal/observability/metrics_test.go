package observability

import "testing"

// NewMetrics registers every collector with the default Prometheus registry, so the whole
// package's metrics surface is exercised from a single construction here rather than one
// NewMetrics() call per test (a second call would panic on duplicate registration).
func TestNewMetrics_AllCollectorsConstructedAndUsable(t *testing.T) {
	m := NewMetrics()
	if m.ActionCounter == nil || m.ActionDuration == nil || m.ActionRetries == nil {
		t.Fatal("expected action metrics to be constructed")
	}
	if m.PlannerRequestCounter == nil || m.PlannerRequestDuration == nil {
		t.Fatal("expected planner metrics to be constructed")
	}
	if m.TaskCounter == nil || m.TaskQueueDepth == nil || m.TaskDuration == nil {
		t.Fatal("expected task metrics to be constructed")
	}
	if m.CatalogRebuildCounter == nil || m.CatalogSize == nil {
		t.Fatal("expected catalog metrics to be constructed")
	}

	m.ActionCounter.WithLabelValues("click", "success").Inc()
	m.TaskCounter.WithLabelValues("cancelled").Inc()
	m.CatalogRebuildCounter.WithLabelValues("url_changed").Inc()
	m.TaskQueueDepth.Set(3)
}
