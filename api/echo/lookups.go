package echo

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/log"
)

type NameLookup interface {
	UserNames(ctx context.Context, ids []string) (map[string]domain.EntityName, error)
	GameNames(ctx context.Context, ids []string) (map[string]domain.EntityName, error)
	UserIDs(ctx context.Context, logins []string) (map[string]string, error)
}

type StreamLookup interface {
	LiveStreams(ctx context.Context, userIDs []string) ([]domain.StreamSnapshot, error)
}

type FollowLookup interface {
	Follows(ctx context.Context, userToken, userID string, kind domain.FollowKind) ([]string, error)
}

type IdentityLookup interface {
	UserIDForToken(ctx context.Context, rawToken string) (string, error)
}

// LookupAPI serves the cached read endpoints used by the device client.
type LookupAPI struct {
	names    NameLookup
	streams  StreamLookup
	follows  FollowLookup
	identity IdentityLookup
	logger   log.Logger
}

func NewLookupAPI(names NameLookup, streams StreamLookup, follows FollowLookup, identity IdentityLookup, logger log.Logger) *LookupAPI {
	return &LookupAPI{names: names, streams: streams, follows: follows, identity: identity, logger: logger}
}

func (la *LookupAPI) fail(c echo.Context, err error) error {
	return respondError(c, la.logger, err)
}

// RegisterRoutes registers the lookup routes.
func (la *LookupAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/users", la.UsersHandler)
	e.GET("/games", la.GamesHandler)
	e.GET("/streams", la.StreamsHandler)
	e.GET("/follows", la.FollowsHandler)
}

// queryList accepts both repeated parameters and comma separated values.
func queryList(c echo.Context, name string) []string {
	var out []string
	for _, v := range c.QueryParams()[name] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// UsersHandler resolves users by id or login.
func (la *LookupAPI) UsersHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if logins := queryList(c, "login"); len(logins) > 0 {
		ids, err := la.names.UserIDs(ctx, logins)
		if err != nil {
			return la.fail(c, err)
		}
		userIDs := make([]string, 0, len(ids))
		for _, id := range ids {
			userIDs = append(userIDs, id)
		}
		return la.respondNames(c, userIDs, la.names.UserNames)
	}
	return la.respondNames(c, queryList(c, "id"), la.names.UserNames)
}

// GamesHandler resolves game names by id.
func (la *LookupAPI) GamesHandler(c echo.Context) error {
	return la.respondNames(c, queryList(c, "id"), la.names.GameNames)
}

func (la *LookupAPI) respondNames(c echo.Context, ids []string, lookup func(context.Context, []string) (map[string]domain.EntityName, error)) error {
	if len(ids) == 0 {
		return c.JSON(http.StatusOK, map[string]interface{}{"data": []domain.EntityName{}})
	}

	names, err := lookup(c.Request().Context(), ids)
	if err != nil {
		return la.fail(c, err)
	}

	data := make([]domain.EntityName, 0, len(names))
	for _, id := range ids {
		if n, ok := names[id]; ok {
			data = append(data, n)
			delete(names, id)
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

// StreamsHandler returns the live streams among the given user ids.
func (la *LookupAPI) StreamsHandler(c echo.Context) error {
	ids := queryList(c, "user_id")
	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("user_id is required"))
	}

	streams, err := la.streams.LiveStreams(c.Request().Context(), ids)
	if err != nil {
		return la.fail(c, err)
	}
	if streams == nil {
		streams = []domain.StreamSnapshot{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": streams})
}

// FollowsHandler lists what the bearer token's user follows.
func (la *LookupAPI) FollowsHandler(c echo.Context) error {
	ctx := c.Request().Context()

	kind, err := domain.ParseFollowKind(c.QueryParam("kind"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest(err.Error()))
	}

	token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if token == "" {
		return c.JSON(http.StatusUnauthorized, errors.NewInvalidRequest("Missing token"))
	}

	userID, err := la.identity.UserIDForToken(ctx, token)
	if errors.Is(err, errors.ErrInvalidRequest) {
		return c.JSON(http.StatusUnauthorized, errors.NewInvalidRequest("Invalid token"))
	}
	if err != nil {
		return la.fail(c, err)
	}

	ids, err := la.follows.Follows(ctx, token, userID, kind)
	if err != nil && len(ids) == 0 {
		return la.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": ids})
}

func bearerToken(header string) string {
	for _, prefix := range []string{"Bearer ", "OAuth "} {
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
	}
	return ""
}
