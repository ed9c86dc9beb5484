// Package logging builds the process-wide zap logger and the per-job child
// loggers the scheduler tags with a "job" field.
package logging

import "go.uber.org/zap"

// New builds a production JSON logger, or a development console logger when
// dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ForJob returns a child logger tagged with the scheduler's job name, the
// Go equivalent of the spec's per-job MDC tag.
func ForJob(base *zap.Logger, job string) *zap.Logger {
	return base.With(zap.String("job", job))
}

// ForRun further tags a job logger with the ingest run it belongs to.
func ForRun(base *zap.Logger, runID string) *zap.Logger {
	return base.With(zap.String("run_id", runID))
}
