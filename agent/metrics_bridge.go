package agent

import "github.com/mquery/agent/observability"

// PrometheusSubscriber forwards EventBus events onto a Prometheus
// collector, keeping the dispatcher and search handler free of any direct
// observability dependency. The scan handler is the exception: it records
// match counts on the collector directly (ScanHandler.SetMetrics).
type PrometheusSubscriber struct {
	collector *observability.Collector
}

// NewPrometheusSubscriber wraps collector. Passing a nil collector yields a
// subscriber whose Handle is a no-op, so callers can subscribe it
// unconditionally.
func NewPrometheusSubscriber(collector *observability.Collector) *PrometheusSubscriber {
	return &PrometheusSubscriber{collector: collector}
}

func (s *PrometheusSubscriber) Handle(event Event) {
	if s.collector == nil {
		return
	}
	switch p := event.Payload.(type) {
	case DispatchEndPayload:
		s.collector.RecordDispatch(p.TaskType, p.Duration, p.Err)
	case JobDonePayload:
		s.collector.RecordJobDone()
	case ReloadTriggeredPayload:
		s.collector.RecordReload()
	}
}
