package core

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Classification is the remote verifier's raw assessment of an address,
// independent of policy.
type Classification string

const (
	ClassDeliverable   Classification = "deliverable"
	ClassUndeliverable Classification = "undeliverable"
	ClassRisky         Classification = "risky"
	ClassUnknown       Classification = "unknown"
)

// ParseClassification maps a wire value to a Classification
func ParseClassification(s string) (Classification, bool) {
	switch Classification(s) {
	case ClassDeliverable, ClassUndeliverable, ClassRisky, ClassUnknown:
		return Classification(s), true
	}
	return "", false
}

// Decision is the policy-informed allow/block verdict for an address.
// It is computed by the remote verifier, never locally.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
)

// ParseDecision maps a wire value to a Decision
func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionAllow, DecisionBlock:
		return Decision(s), true
	}
	return "", false
}

// Source records where a verification result came from
type Source string

const (
	SourceCache         Source = "cache"
	SourceOracle        Source = "oracle"
	SourceIndeterminate Source = "indeterminate"
)

// Policy holds the block flags sent with every verification request.
// The remote verifier applies them; the local engine only relays the verdict.
type Policy struct {
	BlockUndeliverable bool
	BlockDisposable    bool
	BlockRisky         bool
}

// VerificationResult is the outcome of a single verification, either
// fresh from the remote API or replayed from cache
type VerificationResult struct {
	Address        string         `json:"address"`
	Classification Classification `json:"result"`
	Decision       Decision       `json:"decision"`
	Reason         string         `json:"reason,omitempty"`
	Score          int            `json:"score"`
	Disposable     bool           `json:"disposable"`
	RoleBased      bool           `json:"role"`
	CatchAll       bool           `json:"catch_all"`
	MXFound        bool           `json:"mx_found"`
	Reachable      string         `json:"reachable"`
	Free           bool           `json:"free"`
	SMTPCode       int            `json:"smtp_code,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
	ObservedAt     time.Time      `json:"observed_at"`
	Source         Source         `json:"source"`
}

// CacheEntry pairs a verification result with its cache lifetime.
// A stale entry is deleted and replaced, never mutated in place.
type CacheEntry struct {
	Address    string             `json:"address"`
	Result     VerificationResult `json:"result"`
	InsertedAt time.Time          `json:"inserted_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// TTLTable maps a classification to its cache lifetime
type TTLTable struct {
	Deliverable   time.Duration
	Undeliverable time.Duration
	Risky         time.Duration
	Unknown       time.Duration
}

// DefaultTTLTable returns the stock cache lifetimes. Undeliverable keeps
// the longest lifetime (dead stays dead) and unknown the shortest.
func DefaultTTLTable() TTLTable {
	return TTLTable{
		Deliverable:   30 * time.Minute,
		Undeliverable: time.Hour,
		Risky:         15 * time.Minute,
		Unknown:       5 * time.Minute,
	}
}

// For returns the cache lifetime for a classification
func (t TTLTable) For(c Classification) time.Duration {
	switch c {
	case ClassDeliverable:
		return t.Deliverable
	case ClassUndeliverable:
		return t.Undeliverable
	case ClassRisky:
		return t.Risky
	default:
		return t.Unknown
	}
}

// SessionInfo identifies one SMTP session to the gatekeeper
type SessionInfo struct {
	ID            string
	Authenticated bool
	Username      string
	MailFrom      string
}

// MessageAudit is the immutable bridge from the recipient phase to the
// commit phase. It carries everything the commit-time audit needs so the
// session itself is no longer required.
type MessageAudit struct {
	SessionID string
	From      string
	User      string
	Outcomes  map[string]VerificationResult
}

// NormalizeAddress canonicalizes an email address for use as a cache and
// session key: trimmed, NFC-normalized, lowercased. No two entries may
// coexist for addresses differing only by case.
func NormalizeAddress(address string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(address)))
}
