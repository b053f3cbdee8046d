package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/metrics"
)

// ActionBlocked labels the audit record for a rejected recipient.
// Allowed recipients carry VERIFY_<CLASSIFICATION> instead.
const ActionBlocked = "VERIFY_BLOCKED"

// AuditRecord is one verification audit event. ID is the session
// identifier for blocked recipients (no message ever exists for them)
// and the message's durable identifier for recipients that reached
// commit.
type AuditRecord struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	From       string `json:"from"`
	To         string `json:"to"`
	User       string `json:"user"`
	Result     string `json:"result"`
	Reason     string `json:"reason"`
	Score      int    `json:"score"`
	Source     string `json:"source"`
	DurationMS int64  `json:"duration_ms"`
	Disposable bool   `json:"disposable"`
	Role       bool   `json:"role"`
	CatchAll   bool   `json:"catch_all"`
	SMTPCode   int    `json:"smtp_code"`
	Reachable  string `json:"reachable"`
	Free       bool   `json:"free"`
}

// Auditor converts verification outcomes into audit records and hands
// them to the configured sink. Sink failures are swallowed after
// logging so audit emission can never affect protocol decisions.
type Auditor struct {
	sink    AuditSink
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewAuditor creates a new auditor
func NewAuditor(sink AuditSink, logger *zap.Logger, metrics *metrics.Registry) *Auditor {
	return &Auditor{
		sink:    sink,
		logger:  logger,
		metrics: metrics,
	}
}

// Record builds the audit record for one recipient outcome
func (a *Auditor) Record(id, from, to, user string, result *VerificationResult, blocked bool) *AuditRecord {
	action := "VERIFY_" + strings.ToUpper(string(result.Classification))
	if blocked {
		action = ActionBlocked
	}
	return &AuditRecord{
		ID:         id,
		Action:     action,
		From:       from,
		To:         to,
		User:       user,
		Result:     string(result.Classification),
		Reason:     result.Reason,
		Score:      result.Score,
		Source:     string(result.Source),
		DurationMS: result.DurationMS,
		Disposable: result.Disposable,
		Role:       result.RoleBased,
		CatchAll:   result.CatchAll,
		SMTPCode:   result.SMTPCode,
		Reachable:  result.Reachable,
		Free:       result.Free,
	}
}

// Emit writes a record to the sink, absorbing any failure
func (a *Auditor) Emit(ctx context.Context, record *AuditRecord) {
	if err := a.sink.Emit(ctx, record); err != nil {
		a.metrics.AuditFailures.Add(1)
		a.logger.Error("Failed to emit audit record",
			zap.Error(err),
			zap.String("action", record.Action),
			zap.String("recipient", record.To))
	}
}
