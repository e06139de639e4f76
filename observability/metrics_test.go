package observability

import (
	"os"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestCollectorRecordDispatch(t *testing.T) {
	c := NewCollector("")

	c.RecordDispatch("yara", 5*time.Millisecond, nil)
	c.RecordDispatch("search", 2*time.Millisecond, errDummyMetrics)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	counter := findCounterValue(t, families, "mquery_agent_tasks_dispatched_total", "task_type", "yara")
	if counter != 1 {
		t.Errorf("tasks_dispatched_total{yara} = %v, want 1", counter)
	}
	failed := findCounterValue(t, families, "mquery_agent_tasks_failed_total", "task_type", "search")
	if failed != 1 {
		t.Errorf("tasks_failed_total{search} = %v, want 1", failed)
	}
}

func TestCollectorRecordJobDoneAndMatches(t *testing.T) {
	c := NewCollector("")
	c.RecordJobDone()
	c.RecordJobDone()
	c.RecordMatches(3)
	c.RecordMatches(0)
	c.RecordReload()

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if got := findCounterValue(t, families, "mquery_agent_jobs_done_total", "", ""); got != 2 {
		t.Errorf("jobs_done_total = %v, want 2", got)
	}
	if got := findCounterValue(t, families, "mquery_agent_matches_found_total", "", ""); got != 3 {
		t.Errorf("matches_found_total = %v, want 3", got)
	}
	if got := findCounterValue(t, families, "mquery_agent_plugin_reloads_total", "", ""); got != 1 {
		t.Errorf("plugin_reloads_total = %v, want 1", got)
	}
}

func TestCollectorFlushWritesFallbackFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := tmpDir + "/metrics.json"

	c := NewCollector(path)
	c.RecordJobDone()

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("fallback file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("fallback file is empty")
	}
}

func TestCollectorFlushNoopWithoutPath(t *testing.T) {
	c := NewCollector("")
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush with no fallback path should be a no-op, got: %v", err)
	}
}

var errDummyMetrics = &dummyMetricsErr{}

type dummyMetricsErr struct{}

func (d *dummyMetricsErr) Error() string { return "dummy" }

func findCounterValue(t *testing.T, families []*dto.MetricFamily, name, labelName, labelValue string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelName == "" {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetName() == labelName && l.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%s} not found", name, labelName, labelValue)
	return 0
}
