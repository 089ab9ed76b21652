package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type memValue struct {
	str   string
	set   map[string]struct{}
	isSet bool
}

// MemoryStore implements KeyStore in process on ttlcache. It is meant for
// single instance deployments and local development; state is lost on
// restart and not shared between replicas.
type MemoryStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, memValue]
}

// NewMemoryStore creates a store and starts the ttlcache expiry loop.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, memValue](),
	)

	go cache.Start()

	return &MemoryStore{cache: cache}
}

func ttlOrNone(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttlcache.NoTTL
	}
	return ttl
}

// remainingTTL keeps an item's expiry when it is rewritten in place.
func remainingTTL(item *ttlcache.Item[string, memValue]) time.Duration {
	if item.ExpiresAt().IsZero() {
		return ttlcache.NoTTL
	}
	if left := time.Until(item.ExpiresAt()); left > 0 {
		return left
	}
	return time.Nanosecond
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return "", false, nil
	}
	if item.Value().isSet {
		return "", false, ErrWrongType
	}
	return item.Value().str, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(key, memValue{str: value}, ttlOrNone(ttl))
	return nil
}

func (s *MemoryStore) MGet(_ context.Context, keys ...string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, len(keys))
	for i, key := range keys {
		// Like Redis, MGET reports non-string values as absent.
		if item := s.cache.Get(key); item != nil && !item.Value().isSet {
			entries[i] = Entry{Value: item.Value().str, Found: true}
		}
	}
	return entries, nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(key) != nil {
		return false, nil
	}
	s.cache.Set(key, memValue{str: value}, ttlcache.NoTTL)
	return true, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return nil
	}
	if ttl <= 0 {
		s.cache.Delete(key)
		return nil
	}
	s.cache.Set(key, item.Value(), ttl)
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, key := range keys {
		if s.cache.Get(key) != nil {
			n++
		}
		s.cache.Delete(key)
	}
	return n, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := ttlcache.NoTTL
	set := make(map[string]struct{}, len(members))
	if item := s.cache.Get(key); item != nil {
		if !item.Value().isSet {
			return ErrWrongType
		}
		for m := range item.Value().set {
			set[m] = struct{}{}
		}
		ttl = remainingTTL(item)
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	s.cache.Set(key, memValue{set: set, isSet: true}, ttl)
	return nil
}

func (s *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return nil
	}
	if !item.Value().isSet {
		return ErrWrongType
	}

	set := make(map[string]struct{}, len(item.Value().set))
	for m := range item.Value().set {
		set[m] = struct{}{}
	}
	for _, m := range members {
		delete(set, m)
	}
	// An emptied set no longer exists, as in Redis.
	if len(set) == 0 {
		s.cache.Delete(key)
		return nil
	}
	s.cache.Set(key, memValue{set: set, isSet: true}, remainingTTL(item))
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil {
		return []string{}, nil
	}
	if !item.Value().isSet {
		return nil, ErrWrongType
	}

	members := make([]string, 0, len(item.Value().set))
	for m := range item.Value().set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close stops the expiry loop.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ KeyStore = (*MemoryStore)(nil)
