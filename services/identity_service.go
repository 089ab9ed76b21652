package services

import (
	"context"

	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/tracing"
)

// IdentityService tells which user a bearer token belongs to.
type IdentityService struct {
	owners    TokenOwnerCache
	validator TokenValidator
	logger    log.Logger
}

func NewIdentityService(owners TokenOwnerCache, validator TokenValidator, logger log.Logger) *IdentityService {
	return &IdentityService{owners: owners, validator: validator, logger: logger}
}

// UserIDForToken resolves rawToken to a user id. A token the upstream
// rejects yields ErrInvalidRequest.
func (s *IdentityService) UserIDForToken(ctx context.Context, rawToken string) (string, error) {
	ctx, span := tracing.Start(ctx, "IdentityService.UserIDForToken")
	defer span.End()

	if rawToken == "" {
		return "", errors.ErrInvalidRequest
	}
	if id, ok := s.owners.ResolveTokenOwner(ctx, rawToken); ok {
		return id, nil
	}

	id, err := s.validator.ValidateToken(ctx, rawToken)
	if errors.Is(err, errors.ErrInvalidRequest) {
		return "", err
	}
	if err != nil {
		return "", upstreamFailed(ctx, s.logger, span, "token", err)
	}
	if id == "" {
		return "", errors.ErrInvalidRequest
	}

	s.owners.CacheTokenOwner(ctx, rawToken, id)
	return id, nil
}
