package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mboa/contexts/community-experience/presence-service/ports"
)

const janitorInterval = 30 * time.Second

type entry struct {
	value     string
	expiresAt time.Time
}

// Store is an in-process TTL keyspace. Expiry is enforced on every read, so
// the janitor only reclaims memory; it never changes observable state.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	nowFunc func() time.Time

	stop chan struct{}
	once sync.Once
}

var _ ports.KV = (*Store)(nil)

func NewStore() *Store {
	s := &Store{
		entries: make(map[string]entry),
		nowFunc: time.Now,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *Store) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.nowFunc().Add(ttl)}
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !e.expiresAt.After(s.nowFunc()) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) MGet(_ context.Context, keys []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.nowFunc()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if e, ok := s.entries[key]; ok && e.expiresAt.After(now) {
			out[key] = e.value
		}
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.expiresAt.After(s.nowFunc()) {
		return false, nil
	}
	e.expiresAt = s.nowFunc().Add(ttl)
	s.entries[key] = e
	return true, nil
}

func (s *Store) Scan(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.nowFunc()
	keys := make([]string, 0)
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) && e.expiresAt.After(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Sweep drops expired entries and reports how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	removed := 0
	for key, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the janitor. Safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

// SetNowFunc overrides the clock for tests.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

func (s *Store) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Len reports live (unexpired) entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.nowFunc()
	n := 0
	for _, e := range s.entries {
		if e.expiresAt.After(now) {
			n++
		}
	}
	return n
}
