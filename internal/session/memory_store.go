package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the fallback when no Redis is configured. Same TTL
// semantics, enforced lazily on Get and by a janitor goroutine.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		ttl:     ttl,
		entries: make(map[int64]memoryEntry),
		now:     time.Now,
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[chatID]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, chatID)
		return nil, nil
	}
	sess := e.sess
	return &sess, nil
}

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.ChatID] = memoryEntry{sess: *sess, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
	return nil
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		s.mu.Lock()
		now := s.now()
		for id, e := range s.entries {
			if now.After(e.expiresAt) {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
}
