package backend

import "log/slog"

// slogAdapter satisfies retryablehttp.LeveledLogger by forwarding to a
// *slog.Logger, the same logging library the rest of the agent uses.
type slogAdapter struct {
	logger *slog.Logger
}

func newSlogAdapter(logger *slog.Logger) *slogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogAdapter{logger: logger}
}

func (a *slogAdapter) fields(keysAndValues []interface{}) []any {
	out := make([]any, len(keysAndValues))
	copy(out, keysAndValues)
	return out
}

func (a *slogAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, a.fields(keysAndValues)...)
}

func (a *slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, a.fields(keysAndValues)...)
}

func (a *slogAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, a.fields(keysAndValues)...)
}

func (a *slogAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, a.fields(keysAndValues)...)
}
