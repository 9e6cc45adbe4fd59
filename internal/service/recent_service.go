package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/weatherapp/backend/internal/domain"
)

// RecentSearchesKey is the storage key for the recent-search list
const RecentSearchesKey = "recentSearches"

// RecentSearchStore keeps the recent-search list in memory and mirrors every
// change to a KeyValueStore. Readers never wait on the backend: mu guards the
// list only, writeMu serialises backend writes.
type RecentSearchStore struct {
	mu      sync.RWMutex
	list    domain.RecentSearchList
	version uint64

	writeMu   sync.Mutex
	persisted uint64 // version last written, guarded by writeMu

	store KeyValueStore
	key   string
}

// NewRecentSearchStore creates a store. A non-empty namespace scopes the key,
// e.g. "kiosk-1:recentSearches".
func NewRecentSearchStore(store KeyValueStore, namespace string) *RecentSearchStore {
	key := RecentSearchesKey
	if namespace != "" {
		key = namespace + ":" + RecentSearchesKey
	}
	return &RecentSearchStore{
		store: store,
		key:   key,
	}
}

// Key returns the storage key in use
func (s *RecentSearchStore) Key() string {
	return s.key
}

// Load reads the persisted list. A missing key yields an empty list; an
// unreadable value yields an empty list and an error.
func (s *RecentSearchStore) Load(ctx context.Context) ([]string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, err := s.store.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		s.replace(nil)
		return []string{}, nil
	}
	if err != nil {
		s.replace(nil)
		return []string{}, fmt.Errorf("recent: failed to load: %w", err)
	}

	var list domain.RecentSearchList
	if err := json.Unmarshal(raw, &list); err != nil {
		s.replace(nil)
		return []string{}, fmt.Errorf("recent: failed to decode %q: %w", s.key, err)
	}

	s.replace(list.Normalize(domain.MaxRecentSearches))
	return s.List(), nil
}

// Add moves name to the front of the list and persists synchronously. The
// in-memory list is updated even when persisting fails.
func (s *RecentSearchStore) Add(ctx context.Context, name string) ([]string, error) {
	list := s.Push(name)
	return list, s.Persist(ctx)
}

// Push moves name to the front of the in-memory list without touching the
// backend
func (s *RecentSearchStore) Push(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.list = s.list.Push(name, domain.MaxRecentSearches)
	s.version++
	return s.copyLocked()
}

// Persist writes the current list. Concurrent calls are serialised and a
// write that a later one already covered is skipped, so the backend never
// goes back to an older list.
func (s *RecentSearchStore) Persist(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	latest := s.copyLocked()
	version := s.version
	s.mu.RUnlock()

	if version == s.persisted {
		return nil
	}

	raw, err := json.Marshal(latest)
	if err != nil {
		return fmt.Errorf("recent: failed to encode: %w", err)
	}
	if err := s.store.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("recent: failed to persist: %w", err)
	}
	s.persisted = version
	return nil
}

// List returns a copy of the current list
func (s *RecentSearchStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// replace installs a loaded list; callers hold writeMu
func (s *RecentSearchStore) replace(list domain.RecentSearchList) {
	s.mu.Lock()
	s.list = list
	s.version++
	s.persisted = s.version
	s.mu.Unlock()
}

func (s *RecentSearchStore) copyLocked() []string {
	out := make([]string, len(s.list))
	copy(out, s.list)
	return out
}
