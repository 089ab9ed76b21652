package services

import (
	"context"
	"testing"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
	"github.com/stretchr/testify/mock"
)

// --- Mock Implementations ---

type MockEntityFetcher struct {
	mock.Mock
}

func (m *MockEntityFetcher) UsersByID(ctx context.Context, ids []string) ([]domain.EntityName, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EntityName), args.Error(1)
}

func (m *MockEntityFetcher) UsersByLogin(ctx context.Context, logins []string) ([]domain.EntityName, error) {
	args := m.Called(ctx, logins)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EntityName), args.Error(1)
}

func (m *MockEntityFetcher) GamesByID(ctx context.Context, ids []string) ([]domain.EntityName, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EntityName), args.Error(1)
}

type MockStreamFetcher struct {
	mock.Mock
}

func (m *MockStreamFetcher) LiveStreams(ctx context.Context, userIDs []string) ([]domain.StreamSnapshot, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamSnapshot), args.Error(1)
}

type MockFollowFetcher struct {
	mock.Mock
}

func (m *MockFollowFetcher) Follows(ctx context.Context, userToken, userID string, kind domain.FollowKind) ([]string, error) {
	args := m.Called(ctx, userToken, userID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, rawToken string) (string, error) {
	args := m.Called(ctx, rawToken)
	return args.String(0), args.Error(1)
}

type MockTokenOwnerCache struct {
	mock.Mock
}

func (m *MockTokenOwnerCache) CacheTokenOwner(ctx context.Context, rawToken, userID string) {
	m.Called(ctx, rawToken, userID)
}

func (m *MockTokenOwnerCache) ResolveTokenOwner(ctx context.Context, rawToken string) (string, bool) {
	args := m.Called(ctx, rawToken)
	return args.String(0), args.Bool(1)
}

func newMemoryStore(t *testing.T) store.KeyStore {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type caches struct {
	names   *cache.NameCache
	userIDs *cache.UserIDCache
	streams *cache.StreamCache
	follows *cache.FollowCache
}

func newCaches(t *testing.T) caches {
	s := newMemoryStore(t)
	logger := log.NewNop()
	return caches{
		names:   cache.NewNameCache(s, logger),
		userIDs: cache.NewUserIDCache(s, logger),
		streams: cache.NewStreamCache(s, logger, cache.DefaultContentPolicy),
		follows: cache.NewFollowCache(s, logger),
	}
}
