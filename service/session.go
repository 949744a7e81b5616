package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultQuoteTTL is how long a quoted price stays confirmable
const DefaultQuoteTTL = 2 * time.Minute

type sessionEntry struct {
	userID    int64
	payload   any
	expiresAt time.Time
}

// SessionStore holds in-flight quote/confirm wager flows, keyed by a flow ID
// handed to the user alongside the quote. Sessions live only in memory: a
// process restart drops them and the user simply re-quotes, so they are
// never persisted.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]sessionEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionStore creates a session store with the given time-to-live
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &SessionStore{
		entries: make(map[string]sessionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a quote payload for the user and returns the flow ID
func (s *SessionStore) Put(userID int64, payload any) string {
	flowID := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[flowID] = sessionEntry{
		userID:    userID,
		payload:   payload,
		expiresAt: s.now().Add(s.ttl),
	}
	return flowID
}

// Get returns the payload for a live flow owned by the given user. Expired
// or foreign flows report not-found.
func (s *SessionStore) Get(userID int64, flowID string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[flowID]
	if !ok {
		return nil, false
	}
	if entry.userID != userID || s.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.payload, true
}

// Delete removes a flow once it has been confirmed or invalidated
func (s *SessionStore) Delete(flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, flowID)
}

// Sweep drops expired flows and returns how many were removed
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
