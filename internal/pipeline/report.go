package pipeline

import (
	"context"

	"go.uber.org/zap"
)

// LogReporter writes progress updates to the daemon log. It is the default
// Reporter when no external channel is configured.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a reporter over the logger.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) ReportProgress(_ context.Context, buildID string, update ProgressUpdate) {
	r.logger.Info("progress",
		zap.String("build_id", buildID),
		zap.String("status", string(update.Status)),
		zap.String("message", update.Message),
		zap.Int("pct", update.Pct),
	)
}

// LogMessageLog writes human-facing messages to the daemon log.
type LogMessageLog struct {
	logger *zap.Logger
}

// NewLogMessageLog creates a message log over the logger.
func NewLogMessageLog(logger *zap.Logger) *LogMessageLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMessageLog{logger: logger}
}

func (m *LogMessageLog) Post(_ context.Context, buildID, text, phase string) {
	m.logger.Info("message",
		zap.String("build_id", buildID),
		zap.String("phase", phase),
		zap.String("text", text),
	)
}
