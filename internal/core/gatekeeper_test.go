package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/metrics"
	"github.com/cloudwishcom/rcpt-verify/internal/whitelist"
)

// addressClient scripts one outcome per address
type addressClient struct {
	results map[string]*VerificationResult
	errs    map[string]error
	calls   int
}

func (c *addressClient) Check(ctx context.Context, address string) (*VerificationResult, error) {
	c.calls++
	if err, ok := c.errs[address]; ok {
		return nil, err
	}
	result, ok := c.results[address]
	if !ok {
		return nil, errors.New("unscripted address")
	}
	cp := *result
	cp.Address = address
	return &cp, nil
}

// panicClient blows up on every call
type panicClient struct{}

func (c *panicClient) Check(ctx context.Context, address string) (*VerificationResult, error) {
	panic("scripted defect")
}

type gatekeeperFixture struct {
	gk       *Gatekeeper
	sink     *captureSink
	registry *metrics.Registry
}

func newGatekeeperFixture(client VerificationClient, skipDomains []string) *gatekeeperFixture {
	logger := zap.NewNop()
	registry := metrics.NewRegistry()
	sink := &captureSink{}

	var service *VerifierService
	if client != nil {
		service = NewVerifierService(client, nil, logger, registry, false, DefaultTTLTable())
	}

	gk := NewGatekeeper(
		service,
		NewSessionStore(),
		NewAuditor(sink, logger, registry),
		whitelist.NewChecker(skipDomains, logger),
		logger,
		registry,
	)
	return &gatekeeperFixture{gk: gk, sink: sink, registry: registry}
}

func authedSession() *SessionInfo {
	return &SessionInfo{
		ID:            "sess-1",
		Authenticated: true,
		Username:      "alice",
		MailFrom:      "sender@corp.test",
	}
}

func TestCheckRcptBlocked(t *testing.T) {
	client := &addressClient{results: map[string]*VerificationResult{
		"dead@example.com": {Classification: ClassUndeliverable, Decision: DecisionBlock, Reason: "no mailbox", Score: 3},
	}}
	f := newGatekeeperFixture(client, nil)
	sess := authedSession()

	err := f.gk.CheckRcpt(context.Background(), sess, "Dead@Example.com")
	require.Error(t, err)

	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 550, rej.Code)
	assert.Equal(t, [3]int{5, 1, 1}, rej.Enhanced)
	assert.Equal(t, "no mailbox", rej.Reason)
	assert.Equal(t, "Rejected: no mailbox", rej.Message())

	// A blocked recipient is audited immediately, keyed by session
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "sess-1", records[0].ID)
	assert.Equal(t, ActionBlocked, records[0].Action)
	assert.Equal(t, "dead@example.com", records[0].To)
	assert.Equal(t, "sender@corp.test", records[0].From)
	assert.Equal(t, "alice", records[0].User)
	assert.Equal(t, "no mailbox", records[0].Reason)

	// And never recorded as a session outcome
	_, ok := f.gk.store.Lookup("sess-1", "dead@example.com")
	assert.False(t, ok)
	assert.Equal(t, int64(1), f.registry.Blocked.Load())
}

func TestCheckRcptBlockedReasonFallsBackToClassification(t *testing.T) {
	client := &addressClient{results: map[string]*VerificationResult{
		"dead@example.com": {Classification: ClassUndeliverable, Decision: DecisionBlock},
	}}
	f := newGatekeeperFixture(client, nil)

	err := f.gk.CheckRcpt(context.Background(), authedSession(), "dead@example.com")

	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "address is undeliverable", rej.Reason)
	assert.Equal(t, "Rejected: address is undeliverable", rej.Message())
}

func TestCheckRcptAllowed(t *testing.T) {
	client := &addressClient{results: map[string]*VerificationResult{
		"good@example.com": {Classification: ClassDeliverable, Decision: DecisionAllow, Score: 96},
	}}
	f := newGatekeeperFixture(client, nil)
	sess := authedSession()

	err := f.gk.CheckRcpt(context.Background(), sess, "good@example.com")
	require.NoError(t, err)

	// Allowed recipients are recorded for commit-time audit, not audited yet
	assert.Empty(t, f.sink.all())
	got, ok := f.gk.store.Lookup("sess-1", "good@example.com")
	require.True(t, ok)
	assert.Equal(t, ClassDeliverable, got.Classification)
	assert.Equal(t, int64(1), f.registry.Allowed.Load())
}

func TestCheckRcptIndeterminate(t *testing.T) {
	client := &addressClient{errs: map[string]error{
		"good@example.com": ErrAPITimeout,
	}}
	f := newGatekeeperFixture(client, nil)
	sess := authedSession()

	err := f.gk.CheckRcpt(context.Background(), sess, "good@example.com")
	require.NoError(t, err)

	got, ok := f.gk.store.Lookup("sess-1", "good@example.com")
	require.True(t, ok)
	assert.Equal(t, SourceIndeterminate, got.Source)
	assert.Equal(t, DecisionAllow, got.Decision)
	assert.Empty(t, f.sink.all())
	assert.Equal(t, int64(1), f.registry.Indeterminate.Load())
	assert.Equal(t, int64(0), f.registry.Allowed.Load())
}

func TestCheckRcptUnauthenticated(t *testing.T) {
	client := &addressClient{}
	f := newGatekeeperFixture(client, nil)

	sess := authedSession()
	sess.Authenticated = false

	require.NoError(t, f.gk.CheckRcpt(context.Background(), sess, "dead@example.com"))
	require.NoError(t, f.gk.CheckRcpt(context.Background(), nil, "dead@example.com"))

	// No consultation, no record, no audit
	assert.Equal(t, 0, client.calls)
	assert.Empty(t, f.sink.all())
	assert.Empty(t, f.gk.store.Snapshot("sess-1"))
}

func TestCheckRcptDisabled(t *testing.T) {
	f := newGatekeeperFixture(nil, nil)
	assert.False(t, f.gk.Enabled())

	require.NoError(t, f.gk.CheckRcpt(context.Background(), authedSession(), "dead@example.com"))
	assert.Empty(t, f.sink.all())
}

func TestCheckRcptSkipsExemptDomain(t *testing.T) {
	client := &addressClient{}
	f := newGatekeeperFixture(client, []string{"internal.example"})
	sess := authedSession()

	require.NoError(t, f.gk.CheckRcpt(context.Background(), sess, "anyone@internal.example"))

	assert.Equal(t, 0, client.calls)
	assert.Empty(t, f.sink.all())
	_, ok := f.gk.store.Lookup("sess-1", "anyone@internal.example")
	assert.False(t, ok)
}

func TestCheckRcptRecoversFromPanic(t *testing.T) {
	f := newGatekeeperFixture(&panicClient{}, nil)

	err := f.gk.CheckRcpt(context.Background(), authedSession(), "good@example.com")
	assert.NoError(t, err, "an internal defect must allow the recipient")
}

func TestMessageFlowBridging(t *testing.T) {
	client := &addressClient{
		results: map[string]*VerificationResult{
			"a@example.com": {Classification: ClassDeliverable, Decision: DecisionAllow, Score: 90},
			"b@example.com": {Classification: ClassUndeliverable, Decision: DecisionBlock, Reason: "no mailbox"},
		},
		errs: map[string]error{
			"c@example.com": ErrAPIUnreachable,
		},
	}
	f := newGatekeeperFixture(client, nil)
	sess := authedSession()
	ctx := context.Background()

	require.NoError(t, f.gk.CheckRcpt(ctx, sess, "a@example.com"))
	require.Error(t, f.gk.CheckRcpt(ctx, sess, "b@example.com"))
	require.NoError(t, f.gk.CheckRcpt(ctx, sess, "c@example.com"))

	// The bridge carries only the accepted outcomes
	msgAudit := f.gk.BeginData(sess)
	require.NotNil(t, msgAudit)
	assert.Equal(t, "sess-1", msgAudit.SessionID)
	assert.Equal(t, "sender@corp.test", msgAudit.From)
	assert.Equal(t, "alice", msgAudit.User)
	assert.Len(t, msgAudit.Outcomes, 2)
	assert.Contains(t, msgAudit.Outcomes, "a@example.com")
	assert.Contains(t, msgAudit.Outcomes, "c@example.com")

	f.gk.MessageQueued(ctx, msgAudit, "msg-42", []string{"a@example.com", "c@example.com"})

	records := f.sink.all()
	require.Len(t, records, 3, "one block record plus two commit records")

	actions := map[string]string{}
	for _, record := range records[1:] {
		assert.Equal(t, "msg-42", record.ID, "commit records are keyed by message")
		actions[record.To] = record.Action
	}
	assert.Equal(t, "VERIFY_DELIVERABLE", actions["a@example.com"])
	assert.Equal(t, "VERIFY_UNKNOWN", actions["c@example.com"])

	// Session state survives the commit and dies with the session
	_, ok := f.gk.store.Lookup("sess-1", "a@example.com")
	assert.True(t, ok)
	f.gk.EndSession(sess)
	assert.Nil(t, f.gk.BeginData(sess))
}

func TestMessageQueuedSkipsUnbridgedRecipients(t *testing.T) {
	client := &addressClient{results: map[string]*VerificationResult{
		"a@example.com": {Classification: ClassDeliverable, Decision: DecisionAllow},
	}}
	f := newGatekeeperFixture(client, nil)
	sess := authedSession()
	ctx := context.Background()

	require.NoError(t, f.gk.CheckRcpt(ctx, sess, "a@example.com"))

	msgAudit := f.gk.BeginData(sess)
	require.NotNil(t, msgAudit)

	// A recipient with no bridged outcome is ignored at commit
	f.gk.MessageQueued(ctx, msgAudit, "msg-1", []string{"A@Example.com", "stranger@example.com"})

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "a@example.com", records[0].To)
}

func TestBeginDataEmptySession(t *testing.T) {
	f := newGatekeeperFixture(&addressClient{}, nil)
	assert.Nil(t, f.gk.BeginData(authedSession()))
	assert.Nil(t, f.gk.BeginData(nil))
}

func TestMessageQueuedNilAudit(t *testing.T) {
	f := newGatekeeperFixture(&addressClient{}, nil)
	f.gk.MessageQueued(context.Background(), nil, "msg-1", []string{"a@example.com"})
	assert.Empty(t, f.sink.all())
}

func TestEndSessionNil(t *testing.T) {
	f := newGatekeeperFixture(&addressClient{}, nil)
	f.gk.EndSession(nil)
}
