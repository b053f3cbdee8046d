package metrics

import "sync/atomic"

// Registry holds process-wide counters mutated by concurrent
// verification tasks and read by the admin stats endpoint
type Registry struct {
	Verifications       atomic.Int64
	CacheHits           atomic.Int64
	APICalls            atomic.Int64
	APITimeouts         atomic.Int64
	APITransportErrors  atomic.Int64
	APIInvalidResponses atomic.Int64
	Allowed             atomic.Int64
	Blocked             atomic.Int64
	Indeterminate       atomic.Int64
	AuditFailures       atomic.Int64
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Snapshot is a point-in-time copy of all counters
type Snapshot struct {
	Verifications       int64 `json:"verifications"`
	CacheHits           int64 `json:"cache_hits"`
	APICalls            int64 `json:"api_calls"`
	APITimeouts         int64 `json:"api_timeouts"`
	APITransportErrors  int64 `json:"api_transport_errors"`
	APIInvalidResponses int64 `json:"api_invalid_responses"`
	Allowed             int64 `json:"allowed"`
	Blocked             int64 `json:"blocked"`
	Indeterminate       int64 `json:"indeterminate"`
	AuditFailures       int64 `json:"audit_failures"`
}

// Snapshot returns a copy of the current counter values
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Verifications:       r.Verifications.Load(),
		CacheHits:           r.CacheHits.Load(),
		APICalls:            r.APICalls.Load(),
		APITimeouts:         r.APITimeouts.Load(),
		APITransportErrors:  r.APITransportErrors.Load(),
		APIInvalidResponses: r.APIInvalidResponses.Load(),
		Allowed:             r.Allowed.Load(),
		Blocked:             r.Blocked.Load(),
		Indeterminate:       r.Indeterminate.Load(),
		AuditFailures:       r.AuditFailures.Load(),
	}
}
