package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/metrics"
	"github.com/cloudwishcom/rcpt-verify/internal/whitelist"
)

// Rejection is the deliberate control-flow result of a block decision.
// It is the only error the gatekeeper ever returns; every other failure
// is absorbed and converted to allow.
type Rejection struct {
	Address  string
	Code     int
	Enhanced [3]int
	Reason   string
}

// NewRejection builds the rejection signal for a blocked result
func NewRejection(result *VerificationResult) *Rejection {
	reason := result.Reason
	if reason == "" {
		reason = fmt.Sprintf("address is %s", result.Classification)
	}
	return &Rejection{
		Address:  result.Address,
		Code:     550,
		Enhanced: [3]int{5, 1, 1},
		Reason:   reason,
	}
}

// Message returns the human-readable reply text
func (r *Rejection) Message() string {
	return "Rejected: " + r.Reason
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%d %d.%d.%d %s", r.Code, r.Enhanced[0], r.Enhanced[1], r.Enhanced[2], r.Message())
}

// Gatekeeper binds the decision engine to the three protocol phases:
// recipient acceptance, body-transfer start, and message commit. A nil
// service puts the gatekeeper in disabled mode, where every phase is a
// pass-through.
type Gatekeeper struct {
	service  *VerifierService
	store    *SessionStore
	auditor  *Auditor
	skiplist *whitelist.Checker
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// NewGatekeeper creates a new gatekeeper
func NewGatekeeper(
	service *VerifierService,
	store *SessionStore,
	auditor *Auditor,
	skiplist *whitelist.Checker,
	logger *zap.Logger,
	metrics *metrics.Registry,
) *Gatekeeper {
	return &Gatekeeper{
		service:  service,
		store:    store,
		auditor:  auditor,
		skiplist: skiplist,
		logger:   logger,
		metrics:  metrics,
	}
}

// Enabled reports whether verification is active
func (g *Gatekeeper) Enabled() bool {
	return g.service != nil
}

// CheckRcpt is the recipient-acceptance phase. It verifies one offered
// recipient and returns a *Rejection for a block verdict, nil
// otherwise. Verification only applies to authenticated sessions;
// unauthenticated ones pass through untouched.
func (g *Gatekeeper) CheckRcpt(ctx context.Context, sess *SessionInfo, to string) (err error) {
	if g.service == nil {
		return nil
	}
	if sess == nil || !sess.Authenticated {
		g.logger.Debug("Skipping verification for unauthenticated session",
			zap.String("recipient", to))
		return nil
	}
	if g.skiplist.IsWhitelisted(to) {
		g.logger.Info("Skipping verification for whitelisted domain",
			zap.String("recipient", to),
			zap.String("session_id", sess.ID))
		return nil
	}

	// A defect anywhere below must not surface as a rejection
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Recipient check panicked, allowing recipient",
				zap.Any("panic", r),
				zap.String("recipient", to))
			err = nil
		}
	}()

	result := g.service.Verify(ctx, to)

	if result.Decision == DecisionBlock {
		g.metrics.Blocked.Add(1)
		// No message exists yet, so the record is keyed by session
		g.auditor.Emit(ctx, g.auditor.Record(sess.ID, sess.MailFrom, result.Address, sess.Username, result, true))
		rejection := NewRejection(result)
		g.logger.Info("Rejecting recipient",
			zap.String("recipient", result.Address),
			zap.String("result", string(result.Classification)),
			zap.String("reason", rejection.Reason),
			zap.String("session_id", sess.ID))
		return rejection
	}

	if result.Source == SourceIndeterminate {
		g.metrics.Indeterminate.Add(1)
	} else {
		g.metrics.Allowed.Add(1)
	}
	g.store.Record(sess.ID, result.Address, *result)
	return nil
}

// BeginData is the body-transfer bridge phase. It snapshots every
// outcome recorded for the session into a message-scoped context,
// because the session will not be reachable at commit time. A nil
// return means the commit phase has nothing to do.
func (g *Gatekeeper) BeginData(sess *SessionInfo) *MessageAudit {
	if g.service == nil || sess == nil {
		return nil
	}
	outcomes := g.store.Snapshot(sess.ID)
	if len(outcomes) == 0 {
		return nil
	}
	return &MessageAudit{
		SessionID: sess.ID,
		From:      sess.MailFrom,
		User:      sess.Username,
		Outcomes:  outcomes,
	}
}

// MessageQueued is the commit phase. For every recipient still present
// on the message it emits one audit record keyed by the message's
// durable identifier. Recipients without a bridged outcome (skipped or
// unauthenticated) are ignored.
func (g *Gatekeeper) MessageQueued(ctx context.Context, audit *MessageAudit, messageID string, recipients []string) {
	if audit == nil || len(audit.Outcomes) == 0 {
		return
	}
	for _, rcpt := range recipients {
		result, ok := audit.Outcomes[NormalizeAddress(rcpt)]
		if !ok {
			continue
		}
		g.auditor.Emit(ctx, g.auditor.Record(messageID, audit.From, result.Address, audit.User, &result, false))
	}
}

// EndSession discards all scratch state for a finished session,
// whether or not any message reached commit
func (g *Gatekeeper) EndSession(sess *SessionInfo) {
	if sess == nil {
		return
	}
	g.store.Discard(sess.ID)
}
