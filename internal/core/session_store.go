package core

import "sync"

// SessionStore holds per-session scratch state: the outcome reached for
// every recipient allowed during that session's RCPT phase. Sessions are
// partitioned by ID so concurrent connections never observe each other.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]VerificationResult
}

// NewSessionStore creates a new session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]map[string]VerificationResult),
	}
}

// Record stores the outcome for an address within a session. The
// session's map is created lazily on first use.
func (s *SessionStore) Record(sessionID, address string, result VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes, ok := s.sessions[sessionID]
	if !ok {
		outcomes = make(map[string]VerificationResult)
		s.sessions[sessionID] = outcomes
	}
	outcomes[address] = result
}

// Lookup returns the recorded outcome for an address within a session
func (s *SessionStore) Lookup(sessionID, address string) (VerificationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes, ok := s.sessions[sessionID]
	if !ok {
		return VerificationResult{}, false
	}
	result, ok := outcomes[address]
	return result, ok
}

// Snapshot returns a copy of every outcome recorded for a session.
// Mutating the returned map does not affect the store.
func (s *SessionStore) Snapshot(sessionID string) map[string]VerificationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := s.sessions[sessionID]
	snapshot := make(map[string]VerificationResult, len(outcomes))
	for address, result := range outcomes {
		snapshot[address] = result
	}
	return snapshot
}

// Discard drops all state for a session
func (s *SessionStore) Discard(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
}
