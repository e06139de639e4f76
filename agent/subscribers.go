package agent

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// LogSubscriber logs every event via slog at a level appropriate to its
// severity.
type LogSubscriber struct {
	logger *slog.Logger
}

func NewLogSubscriber(logger *slog.Logger) *LogSubscriber {
	return &LogSubscriber{logger: logger}
}

func (s *LogSubscriber) Handle(event Event) {
	switch p := event.Payload.(type) {
	case DispatchStartPayload:
		s.logger.Debug("task dispatched", "task_type", p.TaskType, "job_id", p.JobID)
	case DispatchEndPayload:
		if p.Err != nil {
			s.logger.Error("task failed", "task_type", p.TaskType, "job_id", p.JobID,
				"duration", p.Duration.Round(time.Millisecond), "error", p.Err)
		} else {
			s.logger.Debug("task completed", "task_type", p.TaskType, "job_id", p.JobID,
				"duration", p.Duration.Round(time.Millisecond))
		}
	case TaskErrorPayload:
		s.logger.Error("task error", "task_type", p.TaskType, "job_id", p.JobID, "error", p.Error)
	case JobDonePayload:
		s.logger.Info("job finished", "job_id", p.JobID, "status", p.Status)
	case ReloadTriggeredPayload:
		s.logger.Info("configuration reload", "old_version", p.OldVersion, "new_version", p.NewVersion)
	}
}

// MetricsSubscriber tracks in-process counters independent of whatever
// observability backend is wired up, so tests and the heartbeat file can
// read a cheap snapshot.
type MetricsSubscriber struct {
	tasksHandled int64
	tasksFailed  int64
	jobsDone     int64
}

func NewMetricsSubscriber() *MetricsSubscriber {
	return &MetricsSubscriber{}
}

func (s *MetricsSubscriber) Handle(event Event) {
	switch p := event.Payload.(type) {
	case DispatchEndPayload:
		atomic.AddInt64(&s.tasksHandled, 1)
		if p.Err != nil {
			atomic.AddInt64(&s.tasksFailed, 1)
		}
	case JobDonePayload:
		atomic.AddInt64(&s.jobsDone, 1)
	}
}

func (s *MetricsSubscriber) TasksHandled() int64 { return atomic.LoadInt64(&s.tasksHandled) }
func (s *MetricsSubscriber) TasksFailed() int64  { return atomic.LoadInt64(&s.tasksFailed) }
func (s *MetricsSubscriber) JobsDone() int64      { return atomic.LoadInt64(&s.jobsDone) }

// HeartbeatSubscriber maintains an atomically-rewritten JSON heartbeat
// file so an external watchdog can detect a stuck or dead agent.
type HeartbeatSubscriber struct {
	path      string
	startTime time.Time

	mu           sync.Mutex
	tasksHandled int64
	lastTaskAt   time.Time
}

func NewHeartbeatSubscriber(path string) *HeartbeatSubscriber {
	return &HeartbeatSubscriber{path: path, startTime: time.Now()}
}

func (s *HeartbeatSubscriber) Handle(event Event) {
	switch {
	case event.Type == EventDispatchEnd:
		s.mu.Lock()
		s.tasksHandled++
		s.lastTaskAt = event.Timestamp
		s.mu.Unlock()
		s.write()
	case event.Type == EventHeartbeat:
		s.write()
	}
}

func (s *HeartbeatSubscriber) write() {
	s.mu.Lock()
	data := map[string]interface{}{
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"tasks_handled":  s.tasksHandled,
		"last_task_at":   s.lastTaskAt.UTC().Format(time.RFC3339),
		"pid":            os.Getpid(),
	}
	s.mu.Unlock()

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return
	}

	if dir := filepath.Dir(s.path); dir != "." {
		os.MkdirAll(dir, 0755)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return
	}
	os.Rename(tmp, s.path)
}
