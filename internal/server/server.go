// Package server wires the stores, caches and services behind the HTTP
// surface. The returned Server owns the lifecycle of the key store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	apiecho "github.com/pilab-dev/twitched-link/api/echo"
	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/config"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/pairing"
	"github.com/pilab-dev/twitched-link/services"
	"github.com/pilab-dev/twitched-link/store"
	"github.com/pilab-dev/twitched-link/upstream/helix"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/oauth2"
)

// Server is the assembled link server.
type Server struct {
	Echo    *echo.Echo
	Store   store.KeyStore
	Pairing *pairing.Service

	addr   string
	logger log.Logger
}

// OAuthConfig builds the client configuration for the platform's identity
// endpoints. The redirect URL is set per request.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.OAuthScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.OAuthAuthURL,
			TokenURL:  cfg.OAuthTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// UpstreamHTTPClient is the transport shared by the token exchange and the
// Helix client. Its timeout covers the whole request including the body.
func UpstreamHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.UpstreamTimeout}
}

// New builds a Server from cfg. Metrics are served from reg, which may be nil.
func New(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, logger log.Logger) (*Server, error) {
	kv, err := store.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create key store: %w", err)
	}

	hasher := cache.NewTokenHasher(cfg.TokenHashSalt)
	if cfg.TokenHashSalt == "" {
		logger.Warn(ctx, "token_hash_salt is empty, token owner keys use an unsalted hash")
	}

	httpClient := UpstreamHTTPClient(cfg)

	names := cache.NewNameCache(kv, logger)
	userIDs := cache.NewUserIDCache(kv, logger)
	streams := cache.NewStreamCache(kv, logger, cache.DefaultContentPolicy)
	follows := cache.NewFollowCache(kv, logger)

	pairingSvc := pairing.NewService(kv, hasher, logger, pairing.Options{
		OAuth:          OAuthConfig(cfg),
		HTTPClient:     httpClient,
		DeviceTypes:    cfg.DeviceTypes,
		PairingTTL:     cfg.PairingTTL,
		TokenRecordTTL: cfg.TokenRecordTTL,
	})

	upstream := helix.NewClient(ctx, helix.Options{
		BaseURL:     cfg.HelixURL,
		ValidateURL: cfg.ValidateURL,
		ClientID:    cfg.ClientID,
		AppToken:    cfg.AppToken,
		HTTPClient:  httpClient,
		Responses:   cache.NewResponseCache(kv, logger),
	}, logger)

	nameSvc := services.NewNameService(names, userIDs, upstream, logger)
	streamSvc := services.NewStreamService(streams, upstream, logger)
	followSvc := services.NewFollowService(follows, upstream, logger, cfg.FollowRefreshInterval)
	identitySvc := services.NewIdentityService(pairingSvc, upstream, logger)

	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}
	e := apiecho.NewServer(kv, gatherer, logger)
	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.OtelServiceName))
	}
	apiecho.NewLinkAPI(pairingSvc, logger).RegisterRoutes(e)
	apiecho.NewLookupAPI(nameSvc, streamSvc, followSvc, identitySvc, logger).RegisterRoutes(e)

	return &Server{
		Echo:    e,
		Store:   kv,
		Pairing: pairingSvc,
		addr:    cfg.HTTPAddr,
		logger:  logger,
	}, nil
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "HTTP server listening", map[string]interface{}{"addr": s.addr})
	if err := s.Echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and closes the key store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	if cerr := s.Store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
