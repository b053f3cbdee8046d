package core

import (
	"context"
	"errors"
)

var (
	// ErrAPITimeout is returned when the remote verifier does not answer
	// within the configured timeout
	ErrAPITimeout = errors.New("verification request timed out")
	// ErrAPIUnreachable is returned on a transport-level connection failure
	ErrAPIUnreachable = errors.New("verification service unreachable")
	// ErrAPIResponse is returned when the remote verifier answers with a
	// malformed or error-flagged payload
	ErrAPIResponse = errors.New("invalid verification response")
)

// VerificationClient defines the interface for consulting the remote
// address verifier
type VerificationClient interface {
	// Check issues a single verification request for an address
	Check(ctx context.Context, address string) (*VerificationResult, error)
}

// VerificationCache defines the interface for caching verification results
type VerificationCache interface {
	// Get retrieves a cached entry for an address. An expired entry is
	// evicted and reported as absent.
	Get(ctx context.Context, address string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// AuditSink defines the interface for writing audit records
type AuditSink interface {
	// Emit writes one audit record
	Emit(ctx context.Context, record *AuditRecord) error
}
