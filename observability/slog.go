package observability

import (
	"context"
	"log/slog"
)

type jobContextKey struct{}

// JobContext carries the job/task identifiers currently being handled, so
// a log line written deep inside a handler still reports which job it
// belongs to without threading IDs through every call.
type JobContext struct {
	JobID    string
	TaskType string
}

// WithJobContext attaches job/task identifiers to ctx.
func WithJobContext(ctx context.Context, jc JobContext) context.Context {
	return context.WithValue(ctx, jobContextKey{}, jc)
}

// GetJobContext extracts job/task identifiers from ctx, if present.
func GetJobContext(ctx context.Context) (JobContext, bool) {
	jc, ok := ctx.Value(jobContextKey{}).(JobContext)
	return jc, ok
}

// JobHandler wraps a slog.Handler, enriching every record with the job/task
// identifiers carried on its context.
type JobHandler struct {
	inner slog.Handler
}

// NewJobHandler wraps inner.
func NewJobHandler(inner slog.Handler) *JobHandler {
	return &JobHandler{inner: inner}
}

func (h *JobHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *JobHandler) Handle(ctx context.Context, record slog.Record) error {
	if jc, ok := GetJobContext(ctx); ok {
		if jc.JobID != "" {
			record.AddAttrs(slog.String("job_id", jc.JobID))
		}
		if jc.TaskType != "" {
			record.AddAttrs(slog.String("task_type", jc.TaskType))
		}
	}
	return h.inner.Handle(ctx, record)
}

func (h *JobHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JobHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *JobHandler) WithGroup(name string) slog.Handler {
	return &JobHandler{inner: h.inner.WithGroup(name)}
}
