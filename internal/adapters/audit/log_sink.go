package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

// LogSink writes audit records to the structured log. It is the
// default sink and never fails.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new log-backed audit sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs a single audit record
func (s *LogSink) Emit(ctx context.Context, record *core.AuditRecord) error {
	s.logger.Info("recipient verification",
		zap.String("id", record.ID),
		zap.String("action", record.Action),
		zap.String("from", record.From),
		zap.String("to", record.To),
		zap.String("user", record.User),
		zap.String("result", record.Result),
		zap.String("reason", record.Reason),
		zap.Int("score", record.Score),
		zap.String("source", record.Source),
		zap.Int64("duration_ms", record.DurationMS),
		zap.Bool("disposable", record.Disposable),
		zap.Bool("role", record.Role),
		zap.Bool("catch_all", record.CatchAll),
		zap.Int("smtp_code", record.SMTPCode),
		zap.String("reachable", record.Reachable),
		zap.Bool("free", record.Free),
	)
	return nil
}
