package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/metrics"
)

// VerifierService is the core decision engine: a TTL-aware cache in
// front of the remote verification API, with unconditional fail-open
// semantics on any API failure.
type VerifierService struct {
	client       VerificationClient
	cache        VerificationCache
	logger       *zap.Logger
	metrics      *metrics.Registry
	cacheEnabled bool
	ttl          TTLTable
}

// NewVerifierService creates a new verifier service
func NewVerifierService(
	client VerificationClient,
	cache VerificationCache,
	logger *zap.Logger,
	metrics *metrics.Registry,
	cacheEnabled bool,
	ttl TTLTable,
) *VerifierService {
	return &VerifierService{
		client:       client,
		cache:        cache,
		logger:       logger,
		metrics:      metrics,
		cacheEnabled: cacheEnabled,
		ttl:          ttl,
	}
}

// Verify resolves an address to a verification outcome. It never fails:
// a fresh cache entry is replayed, a successful API consultation is
// cached and returned, and any API failure produces an indeterminate
// allow outcome that is never cached.
func (s *VerifierService) Verify(ctx context.Context, address string) *VerificationResult {
	address = NormalizeAddress(address)
	s.metrics.Verifications.Add(1)

	// Check cache if enabled
	if s.cacheEnabled && s.cache != nil {
		if entry, err := s.cache.Get(ctx, address); err == nil {
			s.metrics.CacheHits.Add(1)
			s.logger.Debug("Cache hit for recipient", zap.String("address", address))
			result := entry.Result
			result.Source = SourceCache
			return &result
		}
	}

	// Consult the remote verifier
	s.metrics.APICalls.Add(1)
	result, err := s.client.Check(ctx, address)
	if err != nil {
		switch {
		case errors.Is(err, ErrAPITimeout):
			s.metrics.APITimeouts.Add(1)
		case errors.Is(err, ErrAPIUnreachable):
			s.metrics.APITransportErrors.Add(1)
		default:
			s.metrics.APIInvalidResponses.Add(1)
		}
		s.logger.Warn("Verification failed, allowing recipient",
			zap.Error(err),
			zap.String("address", address))
		return s.indeterminate(address)
	}
	result.Source = SourceOracle

	// Update cache with result if enabled. Failures are never cached so
	// every subsequent attempt retries the API.
	if s.cacheEnabled && s.cache != nil {
		now := time.Now()
		entry := &CacheEntry{
			Address:    address,
			Result:     *result,
			InsertedAt: now,
			ExpiresAt:  now.Add(s.ttl.For(result.Classification)),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result
}

// indeterminate synthesizes the stand-in outcome for a failed
// consultation. It always carries decision=allow.
func (s *VerifierService) indeterminate(address string) *VerificationResult {
	return &VerificationResult{
		Address:        address,
		Classification: ClassUnknown,
		Decision:       DecisionAllow,
		Reason:         "verification unavailable",
		ObservedAt:     time.Now(),
		Source:         SourceIndeterminate,
	}
}
