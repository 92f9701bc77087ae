package session

import (
	"context"
	"sync"

	"github.com/tokelabs/sessiond/internal/auth/domain"
)

// MemoryStore keeps session records in a process-local map. It mirrors the
// Redis driver's semantics, including compare-and-swap rotation, and is used
// for single-process development and in tests. Records are not evicted on
// expiry; the validation state machine already treats expired records as
// dead.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.Session)}
}

func (s *MemoryStore) Get(ctx context.Context, sid string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sid]
	if !ok {
		return domain.Session{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Put(ctx context.Context, sid string, rec domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[sid] = rec
	return nil
}

func (s *MemoryStore) Rotate(ctx context.Context, sid, expectedRefresh string, rec domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[sid]
	if !ok {
		return ErrNotFound
	}
	if current.RefreshToken != expectedRefresh {
		return ErrRotationConflict
	}
	s.records[sid] = rec
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, sid)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
