package echo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	apiecho "github.com/pilab-dev/twitched-link/api/echo"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLookups struct {
	mock.Mock
}

func (m *MockLookups) UserNames(ctx context.Context, ids []string) (map[string]domain.EntityName, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[string]domain.EntityName), args.Error(1)
}

func (m *MockLookups) GameNames(ctx context.Context, ids []string) (map[string]domain.EntityName, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[string]domain.EntityName), args.Error(1)
}

func (m *MockLookups) UserIDs(ctx context.Context, logins []string) (map[string]string, error) {
	args := m.Called(ctx, logins)
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockLookups) LiveStreams(ctx context.Context, userIDs []string) ([]domain.StreamSnapshot, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamSnapshot), args.Error(1)
}

func (m *MockLookups) Follows(ctx context.Context, userToken, userID string, kind domain.FollowKind) ([]string, error) {
	args := m.Called(ctx, userToken, userID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLookups) UserIDForToken(ctx context.Context, rawToken string) (string, error) {
	args := m.Called(ctx, rawToken)
	return args.String(0), args.Error(1)
}

func newLookupServer(m *MockLookups) *echo.Echo {
	e := echo.New()
	apiecho.NewLookupAPI(m, m, m, m, log.NewNop()).RegisterRoutes(e)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestUsersHandler(t *testing.T) {
	m := new(MockLookups)
	e := newLookupServer(m)

	m.On("UserNames", mock.Anything, []string{"1", "2"}).Return(map[string]domain.EntityName{
		"1": {ID: "1", DisplayName: "Alpha", Login: "alpha"},
	}, nil)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/users?id=1,2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[{"id":"1","display_name":"Alpha","login":"alpha"}]}`, rec.Body.String())

	m.On("UserIDs", mock.Anything, []string{"beta"}).Return(map[string]string{"beta": "2"}, nil)
	m.On("UserNames", mock.Anything, []string{"2"}).Return(map[string]domain.EntityName{
		"2": {ID: "2", DisplayName: "Beta", Login: "beta"},
	}, nil)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/users?login=beta", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Beta"`)
}

func TestGamesHandler_UpstreamDown(t *testing.T) {
	m := new(MockLookups)
	e := newLookupServer(m)

	m.On("GameNames", mock.Anything, []string{"9"}).
		Return(map[string]domain.EntityName{}, fmt.Errorf("%w: games", errors.ErrUpstreamUnavailable))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/games?id=9", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStreamsHandler(t *testing.T) {
	m := new(MockLookups)
	e := newLookupServer(m)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/streams", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	m.On("LiveStreams", mock.Anything, []string{"1", "2"}).Return(nil, nil)
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/streams?user_id=1&user_id=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestFollowsHandler(t *testing.T) {
	m := new(MockLookups)
	e := newLookupServer(m)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/follows", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/follows?kind=planet", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	assert.Equal(t, http.StatusBadRequest, serve(e, req).Code)

	m.On("UserIDForToken", mock.Anything, "revoked").Return("", errors.ErrInvalidRequest)
	req = httptest.NewRequest(http.MethodGet, "/follows", nil)
	req.Header.Set(echo.HeaderAuthorization, "OAuth revoked")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	m.On("UserIDForToken", mock.Anything, "tok").Return("42", nil)
	m.On("Follows", mock.Anything, "tok", "42", domain.FollowGame).Return([]string{"g1"}, nil)
	req = httptest.NewRequest(http.MethodGet, "/follows?kind=game", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":["g1"]}`, rec.Body.String())
}
