package services

import (
	"context"

	"github.com/pilab-dev/twitched-link/domain"
)

// EntityFetcher loads user and game identities from the media platform in
// batches.
type EntityFetcher interface {
	UsersByID(ctx context.Context, ids []string) ([]domain.EntityName, error)
	UsersByLogin(ctx context.Context, logins []string) ([]domain.EntityName, error)
	GamesByID(ctx context.Context, ids []string) ([]domain.EntityName, error)
}

// StreamFetcher returns the live streams of the given users. Users that are
// not live are simply absent from the result.
type StreamFetcher interface {
	LiveStreams(ctx context.Context, userIDs []string) ([]domain.StreamSnapshot, error)
}

// FollowFetcher lists the ids a user follows, authorised by that user's own
// access token. Kinds it has no source for yield errors.ErrUnsupported.
type FollowFetcher interface {
	Follows(ctx context.Context, userToken, userID string, kind domain.FollowKind) ([]string, error)
}

// TokenValidator resolves the user a bearer token was issued to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, rawToken string) (string, error)
}

// TokenOwnerCache is the fast path in front of TokenValidator.
type TokenOwnerCache interface {
	CacheTokenOwner(ctx context.Context, rawToken, userID string)
	ResolveTokenOwner(ctx context.Context, rawToken string) (string, bool)
}
