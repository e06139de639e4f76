package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes the agent's task/job/match counters as Prometheus
// instruments, registered against a private registry so tests can spin up
// as many collectors as they like without hitting the global default
// registry's duplicate-registration panic.
type Collector struct {
	registry *prometheus.Registry

	tasksDispatched *prometheus.CounterVec
	tasksFailed     *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	jobsDone        prometheus.Counter
	matchesFound    prometheus.Counter
	reloadsTotal    prometheus.Counter

	fallbackPath string
}

// NewCollector builds a Collector and registers its instruments. fallbackPath
// may be empty, in which case Flush is a no-op.
func NewCollector(fallbackPath string) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		tasksDispatched: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mquery_agent",
			Name:      "tasks_dispatched_total",
			Help:      "Number of tasks pulled off the queue, by task type.",
		}, []string{"task_type"}),
		tasksFailed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "mquery_agent",
			Name:      "tasks_failed_total",
			Help:      "Number of task handlers that returned an error, by task type.",
		}, []string{"task_type"}),
		taskDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mquery_agent",
			Name:      "task_duration_seconds",
			Help:      "Task handler execution time, by task type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task_type"}),
		jobsDone: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mquery_agent",
			Name:      "jobs_done_total",
			Help:      "Number of jobs this agent observed flip to done.",
		}),
		matchesFound: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mquery_agent",
			Name:      "matches_found_total",
			Help:      "Number of YARA rule matches recorded.",
		}),
		reloadsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "mquery_agent",
			Name:      "plugin_reloads_total",
			Help:      "Number of plugin configuration reloads applied.",
		}),
		fallbackPath: fallbackPath,
	}
	return c
}

// Registry returns the private registry backing this collector, for
// mounting under promhttp.HandlerFor.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordDispatch(taskType string, d time.Duration, err error) {
	c.tasksDispatched.WithLabelValues(taskType).Inc()
	c.taskDuration.WithLabelValues(taskType).Observe(d.Seconds())
	if err != nil {
		c.tasksFailed.WithLabelValues(taskType).Inc()
	}
}

func (c *Collector) RecordJobDone() {
	c.jobsDone.Inc()
}

func (c *Collector) RecordMatches(n int) {
	if n <= 0 {
		return
	}
	c.matchesFound.Add(float64(n))
}

func (c *Collector) RecordReload() {
	c.reloadsTotal.Inc()
}

// Flush writes a point-in-time JSON snapshot to fallbackPath, for
// environments without a Prometheus scraper. It gathers straight from the
// registry rather than keeping a duplicate in-memory tally.
func (c *Collector) Flush() error {
	if c.fallbackPath == "" {
		return nil
	}

	families, err := c.registry.Gather()
	if err != nil {
		return err
	}

	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"metrics":   families,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.fallbackPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmp := c.fallbackPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.fallbackPath)
}
