// Package helix talks to the media platform's Helix API. Catalogue lookups use
// the app access token, per-user listings use the caller's own token. It backs
// the lookup services when the cache misses.
package helix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/log"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL     = "https://api.twitch.tv/helix"
	DefaultValidateURL = "https://id.twitch.tv/oauth2/validate"

	// maxBatch is the most ids a single Helix request accepts.
	maxBatch = 100
	// maxFollowPages bounds the pagination of a follow listing.
	maxFollowPages = 50
)

// ErrGameFollowsUnsupported is returned for game follow listings, which
// Helix does not expose. It matches errors.ErrUnsupported.
var ErrGameFollowsUnsupported = fmt.Errorf("helix: followed games: %w", errors.ErrUnsupported)

// ResponseCache keeps raw response bodies of catalogue lookups.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

type Options struct {
	BaseURL     string
	ValidateURL string
	ClientID    string
	AppToken    string
	// HTTPClient is the base transport, wrapped with the bearer token of
	// each call. Its Timeout carries over to the wrapped clients.
	HTTPClient *http.Client
	// Responses, when set, caches /users and /games bodies.
	Responses ResponseCache
}

// Client is a Helix API client.
type Client struct {
	baseURL     string
	validateURL string
	clientID    string
	api         *http.Client
	plain       *http.Client
	responses   ResponseCache
	logger      log.Logger
}

func NewClient(ctx context.Context, opts Options, logger log.Logger) *Client {
	plain := opts.HTTPClient
	if plain == nil {
		plain = http.DefaultClient
	}
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		validateURL: opts.ValidateURL,
		clientID:    opts.ClientID,
		plain:       plain,
		responses:   opts.Responses,
		logger:      logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.validateURL == "" {
		c.validateURL = DefaultValidateURL
	}

	c.api = c.bearerClient(ctx, opts.AppToken)
	return c
}

// bearerClient wraps the base transport so every request carries token.
func (c *Client) bearerClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.plain)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.plain.Timeout
	return hc
}

type page[T any] struct {
	Data       []T `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

func (c *Client) fetch(ctx context.Context, hc *http.Client, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("helix: failed to build request: %w", err)
	}
	req.Header.Set("Client-Id", c.clientID)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("helix: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("helix: %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("helix: failed to read %s response: %w", path, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, path string, query url.Values, out interface{}) error {
	body, err := c.fetch(ctx, hc, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("helix: failed to decode %s response: %w", path, err)
	}
	return nil
}

// getCached is get with the app token, served from the response cache when
// an identical request was answered within the cache TTL.
func (c *Client) getCached(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.responses == nil {
		return c.get(ctx, c.api, path, query, out)
	}

	key := cache.RequestKey(cache.HelixResponsePrefix+path, query.Encode())
	if body, ok := c.responses.Get(ctx, key); ok {
		if err := json.Unmarshal([]byte(body), out); err == nil {
			return nil
		}
		c.logger.Warn(ctx, "Discarding undecodable cached response", map[string]interface{}{"key": key})
	}

	body, err := c.fetch(ctx, c.api, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("helix: failed to decode %s response: %w", path, err)
	}
	c.responses.Set(ctx, key, string(body))
	return nil
}

func chunks(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxBatch {
		out = append(out, ids[:maxBatch])
		ids = ids[maxBatch:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

type user struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

func (c *Client) users(ctx context.Context, param string, values []string) ([]domain.EntityName, error) {
	var out []domain.EntityName
	for _, batch := range chunks(values) {
		var resp page[user]
		if err := c.getCached(ctx, "/users", url.Values{param: batch}, &resp); err != nil {
			return nil, err
		}
		for _, u := range resp.Data {
			name := u.DisplayName
			if name == "" {
				name = u.Login
			}
			out = append(out, domain.EntityName{ID: u.ID, DisplayName: name, Login: u.Login})
		}
	}
	return out, nil
}

func (c *Client) UsersByID(ctx context.Context, ids []string) ([]domain.EntityName, error) {
	return c.users(ctx, "id", ids)
}

func (c *Client) UsersByLogin(ctx context.Context, logins []string) ([]domain.EntityName, error) {
	lower := make([]string, len(logins))
	for i, l := range logins {
		lower[i] = strings.ToLower(l)
	}
	return c.users(ctx, "login", lower)
}

func (c *Client) GamesByID(ctx context.Context, ids []string) ([]domain.EntityName, error) {
	var out []domain.EntityName
	for _, batch := range chunks(ids) {
		var resp page[struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}]
		if err := c.getCached(ctx, "/games", url.Values{"id": batch}, &resp); err != nil {
			return nil, err
		}
		for _, g := range resp.Data {
			out = append(out, domain.EntityName{ID: g.ID, DisplayName: g.Name})
		}
	}
	return out, nil
}

type stream struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserLogin    string `json:"user_login"`
	UserName     string `json:"user_name"`
	GameID       string `json:"game_id"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	ViewerCount  int64  `json:"viewer_count"`
	StartedAt    string `json:"started_at"`
	Language     string `json:"language"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// LiveStreams returns a snapshot for each user in userIDs that is live.
func (c *Client) LiveStreams(ctx context.Context, userIDs []string) ([]domain.StreamSnapshot, error) {
	var out []domain.StreamSnapshot
	for _, batch := range chunks(userIDs) {
		var resp page[stream]
		query := url.Values{"user_id": batch, "first": {fmt.Sprint(maxBatch)}}
		if err := c.get(ctx, c.api, "/streams", query, &resp); err != nil {
			return nil, err
		}
		for _, s := range resp.Data {
			out = append(out, domain.StreamSnapshot{
				ID:           s.ID,
				UserID:       s.UserID,
				UserName:     &domain.UserName{DisplayName: s.UserName, Login: s.UserLogin},
				GameID:       s.GameID,
				Type:         s.Type,
				Title:        s.Title,
				ViewerCount:  s.ViewerCount,
				StartedAt:    s.StartedAt,
				Language:     s.Language,
				ThumbnailURL: s.ThumbnailURL,
				Online:       true,
			})
		}
	}
	return out, nil
}

// Follows lists the channels userID follows, walking every page. The listing
// is only answered for a user access token, so userToken must belong to
// userID.
func (c *Client) Follows(ctx context.Context, userToken, userID string, kind domain.FollowKind) ([]string, error) {
	if kind == domain.FollowGame {
		return nil, ErrGameFollowsUnsupported
	}
	if userToken == "" {
		return nil, fmt.Errorf("%w: follow listing needs a user token", errors.ErrInvalidRequest)
	}

	hc := c.bearerClient(ctx, userToken)
	ids := []string{}
	cursor := ""
	for i := 0; i < maxFollowPages; i++ {
		query := url.Values{"user_id": {userID}, "first": {fmt.Sprint(maxBatch)}}
		if cursor != "" {
			query.Set("after", cursor)
		}

		var resp page[struct {
			BroadcasterID string `json:"broadcaster_id"`
		}]
		if err := c.get(ctx, hc, "/channels/followed", query, &resp); err != nil {
			return nil, err
		}
		for _, f := range resp.Data {
			ids = append(ids, f.BroadcasterID)
		}

		cursor = resp.Pagination.Cursor
		if cursor == "" || len(resp.Data) == 0 {
			return ids, nil
		}
	}

	c.logger.Warn(ctx, "Follow listing truncated", map[string]interface{}{
		"user_id": userID,
		"pages":   maxFollowPages,
	})
	return ids, nil
}

// ValidateToken returns the user a user access token belongs to. Tokens the
// identity endpoint rejects yield ErrInvalidRequest.
func (c *Client) ValidateToken(ctx context.Context, rawToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.validateURL, nil)
	if err != nil {
		return "", fmt.Errorf("helix: failed to build validate request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+rawToken)

	resp, err := c.plain.Do(req)
	if err != nil {
		return "", fmt.Errorf("helix: validate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: token rejected", errors.ErrInvalidRequest)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("helix: validate: status %d", resp.StatusCode)
	}

	var body struct {
		UserID string `json:"user_id"`
		Login  string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("helix: failed to decode validate response: %w", err)
	}
	if body.UserID == "" {
		// app tokens validate but carry no user
		return "", fmt.Errorf("%w: token has no user", errors.ErrInvalidRequest)
	}
	return body.UserID, nil
}
