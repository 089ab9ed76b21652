package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNameService_UserNames(t *testing.T) {
	c := newCaches(t)
	upstream := new(MockEntityFetcher)
	svc := NewNameService(c.names, c.userIDs, upstream, log.NewNop())
	ctx := context.Background()

	alpha := domain.EntityName{ID: "1", DisplayName: "Alpha", Login: "alpha"}
	upstream.On("UsersByID", mock.Anything, []string{"1", "2"}).
		Return([]domain.EntityName{alpha}, nil).Once()

	names, err := svc.UserNames(ctx, []string{"1", "2", "1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.EntityName{"1": alpha}, names)

	// Served from cache, only the unknown id goes upstream again.
	upstream.On("UsersByID", mock.Anything, []string{"2"}).Return([]domain.EntityName{}, nil).Once()
	names, err = svc.UserNames(ctx, []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, alpha, names["1"])

	// Login lookups are warmed by name lookups.
	ids, err := svc.UserIDs(ctx, []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alpha": "1"}, ids)

	upstream.AssertExpectations(t)
}

func TestNameService_UpstreamFailure(t *testing.T) {
	c := newCaches(t)
	upstream := new(MockEntityFetcher)
	svc := NewNameService(c.names, c.userIDs, upstream, log.NewNop())
	ctx := context.Background()

	c.names.SetNames(ctx, map[string]string{"7": "Chess"}, domain.EntityGame)
	upstream.On("GamesByID", mock.Anything, []string{"8"}).Return(nil, fmt.Errorf("502 bad gateway"))

	games, err := svc.GameNames(ctx, []string{"7", "8"})
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
	assert.Equal(t, map[string]domain.EntityName{"7": {ID: "7", DisplayName: "Chess"}}, games)

	// The failure is not cached as an empty name.
	assert.Empty(t, c.names.GetNames(ctx, []string{"8"}, domain.EntityGame))
}

func TestNameService_GameNamesWriteBack(t *testing.T) {
	c := newCaches(t)
	upstream := new(MockEntityFetcher)
	svc := NewNameService(c.names, c.userIDs, upstream, log.NewNop())
	ctx := context.Background()

	upstream.On("GamesByID", mock.Anything, []string{"9"}).
		Return([]domain.EntityName{{ID: "9", DisplayName: "Go"}}, nil).Once()

	_, err := svc.GameNames(ctx, []string{"9"})
	require.NoError(t, err)
	games, err := svc.GameNames(ctx, []string{"9"})
	require.NoError(t, err)
	assert.Equal(t, "Go", games["9"].DisplayName)
	upstream.AssertNumberOfCalls(t, "GamesByID", 1)
}

func TestNameService_UserIDs(t *testing.T) {
	c := newCaches(t)
	upstream := new(MockEntityFetcher)
	svc := NewNameService(c.names, c.userIDs, upstream, log.NewNop())
	ctx := context.Background()

	upstream.On("UsersByLogin", mock.Anything, []string{"beta"}).
		Return([]domain.EntityName{{ID: "2", DisplayName: "Beta", Login: "beta"}}, nil).Once()

	ids, err := svc.UserIDs(ctx, []string{"beta", "", "beta"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"beta": "2"}, ids)

	names, err := svc.UserNames(ctx, []string{"2"})
	require.NoError(t, err)
	assert.Equal(t, "Beta", names["2"].DisplayName)
	upstream.AssertExpectations(t)
}
