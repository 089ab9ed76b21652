// Package pairing links headless devices to a user account. A device asks for
// a short code, the user enters it in a browser and authorizes the app, and
// the device polls until a token is stored under the code.
package pairing

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
	"golang.org/x/oauth2"
)

const (
	DefaultPairingTTL     = 24 * time.Hour
	DefaultTokenRecordTTL = 10 * time.Minute
	DefaultMaxAttempts    = 32

	flowImplicit          = "implicit"
	flowAuthorizationCode = "authorization_code"
)

// Options configures a Service. Zero values fall back to the defaults above,
// crypto/rand and a DefaultDeviceTypes allow list.
type Options struct {
	// OAuth holds the client credentials, scopes and endpoints. RedirectURL
	// is ignored; it is passed per request.
	OAuth *oauth2.Config
	// HTTPClient is used for the token exchange when set.
	HTTPClient *http.Client

	DeviceTypes    []string
	PairingTTL     time.Duration
	TokenRecordTTL time.Duration
	MaxAttempts    int
	Rand           io.Reader
}

// DefaultDeviceTypes are the device types allowed to pair.
var DefaultDeviceTypes = []string{"roku"}

// Service implements the device pairing state machine on top of a KeyStore.
type Service struct {
	store  store.KeyStore
	hasher *cache.TokenHasher
	logger log.Logger

	oauth       oauth2.Config
	httpClient  *http.Client
	deviceTypes map[string]struct{}
	pairingTTL  time.Duration
	tokenTTL    time.Duration
	maxAttempts int
	rand        io.Reader
}

// NewService creates a pairing Service.
func NewService(s store.KeyStore, hasher *cache.TokenHasher, logger log.Logger, opts Options) *Service {
	svc := &Service{
		store:       s,
		hasher:      hasher,
		logger:      logger,
		httpClient:  opts.HTTPClient,
		pairingTTL:  opts.PairingTTL,
		tokenTTL:    opts.TokenRecordTTL,
		maxAttempts: opts.MaxAttempts,
		rand:        opts.Rand,
	}
	if opts.OAuth != nil {
		svc.oauth = *opts.OAuth
	}
	if svc.pairingTTL <= 0 {
		svc.pairingTTL = DefaultPairingTTL
	}
	if svc.tokenTTL <= 0 {
		svc.tokenTTL = DefaultTokenRecordTTL
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = DefaultMaxAttempts
	}
	if svc.rand == nil {
		svc.rand = rand.Reader
	}

	types := opts.DeviceTypes
	if len(types) == 0 {
		types = DefaultDeviceTypes
	}
	svc.deviceTypes = make(map[string]struct{}, len(types))
	for _, t := range types {
		svc.deviceTypes[t] = struct{}{}
	}

	return svc
}

func (s *Service) validateDevice(deviceType, deviceID string) error {
	if _, ok := s.deviceTypes[deviceType]; !ok {
		return fmt.Errorf("%w: unsupported device type %q", errors.ErrInvalidRequest, deviceType)
	}
	if deviceID == "" {
		return fmt.Errorf("%w: device id is empty", errors.ErrInvalidRequest)
	}
	return nil
}

// CreateCode starts a new pairing for the device and returns its code. Any
// code issued earlier to the same device stops being valid.
func (s *Service) CreateCode(ctx context.Context, deviceType, deviceID string, protocolVersion int) (string, error) {
	if err := s.validateDevice(deviceType, deviceID); err != nil {
		return "", err
	}
	if protocolVersion < domain.ProtocolVersionImplicit {
		protocolVersion = domain.ProtocolVersionImplicit
	}

	deviceKey := cache.DeviceKey(deviceType, deviceID)
	if err := s.invalidate(ctx, deviceKey); err != nil {
		return "", err
	}

	code, err := s.freeCode(ctx)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(domain.PairingRecord{
		Code:            code,
		ProtocolVersion: protocolVersion,
		DeviceType:      deviceType,
		DeviceID:        deviceID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode pairing record: %w", err)
	}

	if err := s.store.Set(ctx, deviceKey, string(raw), s.pairingTTL); err != nil {
		return "", fmt.Errorf("failed to store pairing record: %w", err)
	}
	if err := s.store.Set(ctx, cache.CodeKey(code), deviceKey, s.pairingTTL); err != nil {
		return "", fmt.Errorf("failed to store pairing code: %w", err)
	}

	metrics.PairingCodesIssued.Inc()
	s.logger.Info(ctx, "Issued pairing code", map[string]interface{}{
		"device_type": deviceType,
		"version":     protocolVersion,
	})

	return code, nil
}

// invalidate removes the device record together with the code and token
// records it points to.
func (s *Service) invalidate(ctx context.Context, deviceKey string) error {
	keys := []string{deviceKey}

	raw, found, err := s.store.Get(ctx, deviceKey)
	if err != nil {
		return fmt.Errorf("failed to read pairing record: %w", err)
	}
	if found {
		var old domain.PairingRecord
		if err := json.Unmarshal([]byte(raw), &old); err == nil && old.Code != "" {
			keys = append(keys, cache.CodeKey(old.Code), cache.TokenKey(old.Code))
		}
	}

	if _, err := s.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to remove previous pairing: %w", err)
	}
	return nil
}

func (s *Service) freeCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := generateCode(s.rand)
		if err != nil {
			return "", err
		}

		inUse, err := s.codeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check pairing code: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}

	s.logger.Warn(ctx, "No free pairing code found", map[string]interface{}{
		"attempts": s.maxAttempts,
	})
	return "", errors.ErrCodeSpaceExhausted
}

// codeInUse reports whether a pairing or a token record exists for code.
func (s *Service) codeInUse(ctx context.Context, code string) (bool, error) {
	entries, err := s.store.MGet(ctx, cache.CodeKey(code), cache.TokenKey(code))
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Found {
			return true, nil
		}
	}
	return false, nil
}

// IsCodeValid reports whether code belongs to a pairing that is pending or
// completed. Codes are case-insensitive. Malformed codes are rejected without
// a store lookup.
func (s *Service) IsCodeValid(ctx context.Context, code string) bool {
	code = NormalizeCode(code)
	if !IsWellFormed(code) {
		return false
	}

	inUse, err := s.codeInUse(ctx, code)
	if err != nil {
		s.storeFailed(ctx, "mget", cache.CodeKey(code), err)
		return false
	}
	return inUse
}

// GetStatus returns what the polling device sees. ErrNotFound means the
// device has no pairing, ErrMalformedRecord means a stored record is corrupt.
func (s *Service) GetStatus(ctx context.Context, deviceType, deviceID string) (domain.LinkStatus, error) {
	if err := s.validateDevice(deviceType, deviceID); err != nil {
		return domain.LinkStatus{}, err
	}

	deviceKey := cache.DeviceKey(deviceType, deviceID)
	record, err := s.pairingRecord(ctx, deviceKey)
	if err != nil {
		return domain.LinkStatus{}, err
	}

	tokenKey := cache.TokenKey(record.Code)
	raw, found, err := s.store.Get(ctx, tokenKey)
	if err != nil {
		s.storeFailed(ctx, "get", tokenKey, err)
		found = false
	}
	if !found {
		return domain.LinkStatus{Complete: false}, nil
	}

	var token domain.TokenRecord
	if err := json.Unmarshal([]byte(raw), &token); err != nil || token.AccessToken == "" {
		s.logger.Error(ctx, "Stored token record is corrupt", err, map[string]interface{}{
			"key": tokenKey,
		})
		return domain.LinkStatus{}, fmt.Errorf("%w: token record for %s", errors.ErrMalformedRecord, record.Code)
	}

	return domain.LinkStatus{
		Complete:     true,
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
		Scope:        token.Scope,
	}, nil
}

func (s *Service) pairingRecord(ctx context.Context, deviceKey string) (domain.PairingRecord, error) {
	var record domain.PairingRecord

	raw, found, err := s.store.Get(ctx, deviceKey)
	if err != nil {
		s.storeFailed(ctx, "get", deviceKey, err)
		found = false
	}
	if !found {
		return record, errors.ErrNotFound
	}

	if err := json.Unmarshal([]byte(raw), &record); err != nil || record.Code == "" {
		s.logger.Error(ctx, "Stored pairing record is corrupt", err, map[string]interface{}{
			"key": deviceKey,
		})
		return record, fmt.Errorf("%w: pairing record %s", errors.ErrMalformedRecord, deviceKey)
	}
	return record, nil
}

// AuthorizationURL builds the authorize URL the browser is sent to for code.
// Version 1 pairings request the implicit grant, later versions an
// authorization code.
func (s *Service) AuthorizationURL(ctx context.Context, code, redirectURL string) (string, error) {
	code = NormalizeCode(code)
	if !s.IsCodeValid(ctx, code) {
		return "", errors.ErrNotFound
	}

	codeKey := cache.CodeKey(code)
	deviceKey, found, err := s.store.Get(ctx, codeKey)
	if err != nil {
		s.storeFailed(ctx, "get", codeKey, err)
		found = false
	}
	if !found || deviceKey == "" {
		return "", errors.ErrNotFound
	}

	record, err := s.pairingRecord(ctx, deviceKey)
	if err != nil {
		return "", err
	}

	responseType := "code"
	if record.ProtocolVersion <= domain.ProtocolVersionImplicit {
		responseType = "token"
	}

	cfg := s.oauth
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(code,
		oauth2.SetAuthURLParam("response_type", responseType),
		oauth2.SetAuthURLParam("force_verify", "true"),
	), nil
}

// SubmitToken completes a version 1 pairing with a token the browser
// obtained through the implicit grant.
func (s *Service) SubmitToken(ctx context.Context, code, rawToken string) error {
	if rawToken == "" {
		return fmt.Errorf("%w: token is empty", errors.ErrInvalidRequest)
	}
	code = NormalizeCode(code)
	if !IsWellFormed(code) {
		return fmt.Errorf("%w: malformed pairing code", errors.ErrInvalidRequest)
	}
	if !s.IsCodeValid(ctx, code) {
		return fmt.Errorf("%w: unknown pairing code", errors.ErrInvalidRequest)
	}

	if err := s.storeToken(ctx, code, domain.TokenRecord{AccessToken: rawToken}); err != nil {
		return err
	}

	metrics.PairingsCompleted.WithLabelValues(flowImplicit).Inc()
	return nil
}

// ExchangeAuthorizationCode completes a version 2 pairing by trading authCode
// for a token. It reports false, leaving the pairing pending, when the code is
// unknown or the exchange fails.
func (s *Service) ExchangeAuthorizationCode(ctx context.Context, redirectURL, authCode, code string) bool {
	code = NormalizeCode(code)
	if authCode == "" || !IsWellFormed(code) || !s.IsCodeValid(ctx, code) {
		return false
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	cfg := s.oauth
	cfg.RedirectURL = redirectURL
	tok, err := cfg.Exchange(ctx, authCode)
	if err != nil {
		metrics.TokenExchangeFailures.Inc()
		s.logger.Error(ctx, "Authorization code exchange failed", err)
		return false
	}
	if tok.AccessToken == "" {
		metrics.TokenExchangeFailures.Inc()
		s.logger.Error(ctx, "Authorization code exchange returned no access token", errors.ErrExchangeFailed)
		return false
	}

	record := domain.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
		Scope:        scopeString(tok.Extra("scope")),
	}
	if err := s.storeToken(ctx, code, record); err != nil {
		s.logger.Error(ctx, "Failed to store exchanged token", err)
		return false
	}

	metrics.PairingsCompleted.WithLabelValues(flowAuthorizationCode).Inc()
	return true
}

func (s *Service) storeToken(ctx context.Context, code string, record domain.TokenRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}
	if err := s.store.Set(ctx, cache.TokenKey(code), string(raw), s.tokenTTL); err != nil {
		return fmt.Errorf("failed to store token record: %w", err)
	}
	return nil
}

func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
}

// scopeString flattens the scope field, which the platform returns as a list.
func scopeString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []interface{}:
		parts := make([]string, 0, len(s))
		for _, p := range s {
			if str, ok := p.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// CacheTokenOwner remembers which user a raw token belongs to. Only the
// salted hash of the token is used in the key.
func (s *Service) CacheTokenOwner(ctx context.Context, rawToken, userID string) {
	if rawToken == "" || userID == "" {
		return
	}
	key := cache.TokenOwnerKey(s.hasher.Hash(rawToken))
	if err := s.store.Set(ctx, key, userID, cache.DayTTL); err != nil {
		s.storeFailed(ctx, "set", cache.TokenIDPrefix, err)
	}
}

// ResolveTokenOwner returns the user id cached for rawToken.
func (s *Service) ResolveTokenOwner(ctx context.Context, rawToken string) (string, bool) {
	if rawToken == "" {
		return "", false
	}
	key := cache.TokenOwnerKey(s.hasher.Hash(rawToken))
	userID, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.storeFailed(ctx, "get", cache.TokenIDPrefix, err)
		return "", false
	}
	if found {
		metrics.ObserveLookup("token_owner", 1, 0)
	} else {
		metrics.ObserveLookup("token_owner", 0, 1)
	}
	return userID, found && userID != ""
}

func (s *Service) storeFailed(ctx context.Context, op, key string, err error) {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	s.logger.Error(ctx, "Key store operation failed", err, map[string]interface{}{
		"op":  op,
		"key": key,
	})
}
