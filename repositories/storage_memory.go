package repositories

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps every session's slots in process memory. Slots survive
// session eviction but not a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]map[string]string)}
}

func (m *MemoryStore) ForSession(sessionID string) Storage {
	return &memoryStorage{store: m, sessionID: sessionID}
}

type memoryStorage struct {
	store     *MemoryStore
	sessionID string
}

func (s *memoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	value, ok := s.store.slots[s.sessionID][key]
	return value, ok, nil
}

func (s *memoryStorage) SetItem(_ context.Context, key, value string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.setLocked(key, value)
	return nil
}

func (s *memoryStorage) setLocked(key, value string) {
	session, ok := s.store.slots[s.sessionID]
	if !ok {
		session = make(map[string]string)
		s.store.slots[s.sessionID] = session
	}
	session[key] = value
}

// UpdateItem runs fn under the store lock, so no other write can interleave.
func (s *memoryStorage) UpdateItem(_ context.Context, key string, fn UpdateFunc) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	current, found := s.store.slots[s.sessionID][key]
	next, err := fn(current, found)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	s.setLocked(key, next)
	return nil
}

func (s *memoryStorage) RemoveItem(_ context.Context, key string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	delete(s.store.slots[s.sessionID], key)
	if len(s.store.slots[s.sessionID]) == 0 {
		delete(s.store.slots, s.sessionID)
	}
	return nil
}
