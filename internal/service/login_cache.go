package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// BusyLoginCacheStore remembers logins that are known to be taken so the
// availability check endpoint does not hit the database on every keystroke.
// Entries are short lived and the whole cache is invalidated on any rename.
type BusyLoginCacheStore interface {
	Get(ctx context.Context, login string) (bool, error)
	Set(ctx context.Context, login string, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopBusyLoginCacheStore struct{}

func NewNoopBusyLoginCacheStore() *NoopBusyLoginCacheStore {
	return &NoopBusyLoginCacheStore{}
}

func (s *NoopBusyLoginCacheStore) Get(context.Context, string) (bool, error) {
	return false, nil
}

func (s *NoopBusyLoginCacheStore) Set(context.Context, string, time.Duration) error {
	return nil
}

func (s *NoopBusyLoginCacheStore) Invalidate(context.Context) error {
	return nil
}

type InMemoryBusyLoginCacheStore struct {
	mu    sync.RWMutex
	store map[string]time.Time
}

func NewInMemoryBusyLoginCacheStore() *InMemoryBusyLoginCacheStore {
	return &InMemoryBusyLoginCacheStore{store: make(map[string]time.Time)}
}

func (s *InMemoryBusyLoginCacheStore) Get(_ context.Context, login string) (bool, error) {
	key := normalizeLogin(login)
	now := time.Now().UTC()
	s.mu.RLock()
	expiresAt, ok := s.store[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *InMemoryBusyLoginCacheStore) Set(_ context.Context, login string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[normalizeLogin(login)] = time.Now().UTC().Add(ttl)
	return nil
}

func (s *InMemoryBusyLoginCacheStore) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = make(map[string]time.Time)
	return nil
}

func normalizeLogin(login string) string {
	return strings.TrimSpace(strings.ToLower(login))
}

func hashLogin(login string) string {
	sum := sha256.Sum256([]byte(normalizeLogin(login)))
	return hex.EncodeToString(sum[:])
}
