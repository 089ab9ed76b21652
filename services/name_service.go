package services

import (
	"context"
	"encoding/json"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// NameService resolves user and game names cache-aside.
type NameService struct {
	names    *cache.NameCache
	userIDs  *cache.UserIDCache
	upstream EntityFetcher
	logger   log.Logger
}

func NewNameService(names *cache.NameCache, userIDs *cache.UserIDCache, upstream EntityFetcher, logger log.Logger) *NameService {
	return &NameService{names: names, userIDs: userIDs, upstream: upstream, logger: logger}
}

// UserNames returns the identities of ids. When the upstream fails, the
// cached part is returned together with ErrUpstreamUnavailable.
func (s *NameService) UserNames(ctx context.Context, ids []string) (map[string]domain.EntityName, error) {
	ctx, span := tracing.Start(ctx, "NameService.UserNames")
	defer span.End()

	out := make(map[string]domain.EntityName, len(ids))
	for id, raw := range s.names.GetNames(ctx, ids, domain.EntityUser) {
		var name domain.UserName
		if err := json.Unmarshal([]byte(raw), &name); err != nil || name.DisplayName == "" {
			continue
		}
		out[id] = domain.EntityName{ID: id, DisplayName: name.DisplayName, Login: name.Login}
	}

	missing := missingKeys(ids, out)
	span.SetAttributes(attribute.Int("cache.hits", len(out)), attribute.Int("cache.misses", len(missing)))
	if len(missing) == 0 {
		return out, nil
	}

	users, err := s.upstream.UsersByID(ctx, missing)
	if err != nil {
		return out, upstreamFailed(ctx, s.logger, span, "users", err)
	}
	s.storeUsers(ctx, users)
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// GameNames returns the names of the game ids.
func (s *NameService) GameNames(ctx context.Context, ids []string) (map[string]domain.EntityName, error) {
	ctx, span := tracing.Start(ctx, "NameService.GameNames")
	defer span.End()

	out := make(map[string]domain.EntityName, len(ids))
	for id, name := range s.names.GetNames(ctx, ids, domain.EntityGame) {
		out[id] = domain.EntityName{ID: id, DisplayName: name}
	}

	missing := missingKeys(ids, out)
	span.SetAttributes(attribute.Int("cache.hits", len(out)), attribute.Int("cache.misses", len(missing)))
	if len(missing) == 0 {
		return out, nil
	}

	games, err := s.upstream.GamesByID(ctx, missing)
	if err != nil {
		return out, upstreamFailed(ctx, s.logger, span, "games", err)
	}

	values := make(map[string]string, len(games))
	for _, g := range games {
		values[g.ID] = g.DisplayName
		out[g.ID] = g
	}
	s.names.SetNames(ctx, values, domain.EntityGame)
	return out, nil
}

// UserIDs maps logins to user ids.
func (s *NameService) UserIDs(ctx context.Context, logins []string) (map[string]string, error) {
	ctx, span := tracing.Start(ctx, "NameService.UserIDs")
	defer span.End()

	out := s.userIDs.GetUserIDs(ctx, logins)

	var missing []string
	seen := make(map[string]struct{}, len(logins))
	for _, login := range logins {
		if _, ok := out[login]; ok || login == "" {
			continue
		}
		if _, dup := seen[login]; dup {
			continue
		}
		seen[login] = struct{}{}
		missing = append(missing, login)
	}
	if len(missing) == 0 {
		return out, nil
	}

	users, err := s.upstream.UsersByLogin(ctx, missing)
	if err != nil {
		return out, upstreamFailed(ctx, s.logger, span, "users", err)
	}
	s.storeUsers(ctx, users)
	for _, u := range users {
		out[u.Login] = u.ID
	}
	return out, nil
}

func (s *NameService) storeUsers(ctx context.Context, users []domain.EntityName) {
	names := make(map[string]string, len(users))
	ids := make(map[string]string, len(users))
	for _, u := range users {
		raw, err := json.Marshal(domain.UserName{DisplayName: u.DisplayName, Login: u.Login})
		if err != nil {
			continue
		}
		names[u.ID] = string(raw)
		ids[u.Login] = u.ID
	}
	s.names.SetNames(ctx, names, domain.EntityUser)
	s.userIDs.SetUserIDs(ctx, ids)
}

func missingKeys[V any](ids []string, found map[string]V) []string {
	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := found[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}
