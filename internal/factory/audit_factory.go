package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/adapters/audit"
	"github.com/cloudwishcom/rcpt-verify/internal/config"
	"github.com/cloudwishcom/rcpt-verify/internal/core"
)

// AuditFactory creates audit sinks based on configuration
type AuditFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAuditFactory creates a new audit factory
func NewAuditFactory(cfg *config.Config, logger *zap.Logger) *AuditFactory {
	return &AuditFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSink creates an audit sink based on the configuration
func (f *AuditFactory) CreateSink() (core.AuditSink, error) {
	sinkType := f.cfg.GetString("audit.sink")

	switch sinkType {
	case "log":
		return audit.NewLogSink(f.logger), nil
	case "amqp":
		return audit.NewAMQPSink(
			f.cfg.GetString("audit.amqp_url"),
			f.cfg.GetString("audit.amqp_exchange"),
			f.cfg.GetString("audit.amqp_routing_key"),
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", sinkType)
	}
}
