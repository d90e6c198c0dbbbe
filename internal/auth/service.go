package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/noah-isme/ledgerlink/internal/xero"
)

// ErrNoTenants indicates the user authorised no organisation during consent,
// leaving no tenant to scope accounting calls to.
var ErrNoTenants = errors.New("no authorised tenants")

// ConnectionsLister resolves the tenants a token is authorised for.
type ConnectionsLister interface {
	Connections(ctx context.Context, accessToken string) ([]xero.Connection, error)
}

// ServiceConfig carries the OAuth client settings, constructed explicitly
// from application configuration rather than read from ambient state.
type ServiceConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthorizeURL string
	TokenURL     string
}

// Service wraps the OAuth2 authorization-code flow against the identity
// provider and the tenant resolution that follows a token exchange.
type Service struct {
	oauth       *oauth2.Config
	connections ConnectionsLister
	logger      *slog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig, connections ConnectionsLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
		},
		connections: connections,
		logger:      logger,
	}
}

// NewStateNonce produces the random state parameter bound to one consent
// round trip.
func (s *Service) NewStateNonce() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: state nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ConsentURL builds the authorization server URL the browser is sent to.
func (s *Service) ConsentURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Exchange swaps the authorization code for a token set.
func (s *Service) Exchange(ctx context.Context, code string) (*TokenSet, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: token exchange: %w", err)
	}
	ts := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
	if id, ok := token.Extra("id_token").(string); ok {
		ts.IDToken = id
	}
	return ts, nil
}

// BuildAuthState decodes the token claims, resolves the authorised tenants
// and pins the first connection as the active tenant.
func (s *Service) BuildAuthState(ctx context.Context, ts *TokenSet) (*AuthState, error) {
	state := &AuthState{TokenSet: *ts}

	if ts.IDToken != "" {
		claims, err := decodeClaims(ts.IDToken)
		if err != nil {
			s.logger.Warn("decode id token claims", slog.Any("error", err))
		} else {
			state.IDTokenClaims = claims
		}
	}
	if claims, err := decodeClaims(ts.AccessToken); err != nil {
		s.logger.Warn("decode access token claims", slog.Any("error", err))
	} else {
		state.AccessTokenClaims = claims
	}

	connections, err := s.connections.Connections(ctx, ts.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve tenants: %w", err)
	}
	if len(connections) == 0 {
		return nil, ErrNoTenants
	}
	for _, conn := range connections {
		state.Tenants = append(state.Tenants, Tenant{
			ConnectionID: conn.ID,
			TenantID:     conn.TenantID,
			TenantType:   conn.TenantType,
			TenantName:   conn.TenantName,
		})
	}
	// The connections endpoint sorts the most recent connection first.
	state.ActiveTenantID = state.Tenants[0].TenantID

	return state, nil
}

// decodeClaims extracts JWT claims without signature verification. The
// tokens come straight from the token endpoint over TLS; claims are kept
// for display and debugging only, never for authorisation decisions.
func decodeClaims(raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	return map[string]any(claims), nil
}
