package repository

import (
	"context"
	"sync"

	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/pkg/metrics"
)

// In-memory Store implementation.
//
// A single write lock serializes appends (single-writer discipline); reads
// take the shared lock and copy the slice header, so already-appended
// records can be read concurrently while new shots arrive.

// MemStore implements Store with per-session append-only slices.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string][]*model.ShotRecord
	order    []string
	count    int
}

// NewMemStore creates an empty in-memory session store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string][]*model.ShotRecord),
	}
}

// Append adds a completed shot record to its session.
func (s *MemStore) Append(_ context.Context, rec *model.ShotRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	if rec.SessionID == "" {
		return ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[rec.SessionID]; !ok {
		s.order = append(s.order, rec.SessionID)
	}
	s.sessions[rec.SessionID] = append(s.sessions[rec.SessionID], rec)
	s.count++

	metrics.UpdateTotalSessions(len(s.order))
	metrics.UpdateTotalShots(s.count)
	return nil
}

// Shots returns the session's records in append order. The returned slice
// is a copy; the records themselves are shared and immutable.
func (s *MemStore) Shots(_ context.Context, sessionID string) ([]*model.ShotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]*model.ShotRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// Sessions returns the known session IDs in first-seen order.
func (s *MemStore) Sessions(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Count returns the total number of shot records across sessions.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
