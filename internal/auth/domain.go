package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/noah-isme/ledgerlink/internal/shared"
	"github.com/noah-isme/ledgerlink/internal/xero"
)

const (
	// stateNonceKey stores the pending OAuth state nonce between /connect
	// and /callback.
	stateNonceKey = "oauth_state"
	// authStateKey stores the serialized AuthState after a completed login.
	authStateKey = "auth_state"
)

// TokenSet is the bundle of tokens and expiry metadata issued at callback.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token is past its expiry. Expiry is
// logged for observability only; no route refreshes the token.
func (t TokenSet) Expired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// Tenant is one organisation the user authorised during consent.
type Tenant struct {
	ConnectionID string `json:"connection_id"`
	TenantID     string `json:"tenant_id"`
	TenantType   string `json:"tenant_type,omitempty"`
	TenantName   string `json:"tenant_name,omitempty"`
}

// AuthState is the typed per-session authentication state. It is written
// exactly once at callback time and only read afterwards.
type AuthState struct {
	TokenSet          TokenSet       `json:"token_set"`
	IDTokenClaims     map[string]any `json:"id_token_claims,omitempty"`
	AccessTokenClaims map[string]any `json:"access_token_claims,omitempty"`
	Tenants           []Tenant       `json:"tenants"`
	ActiveTenantID    string         `json:"active_tenant_id"`
}

// ActiveTenant resolves the active tenant record.
func (s *AuthState) ActiveTenant() (Tenant, bool) {
	for _, t := range s.Tenants {
		if t.TenantID == s.ActiveTenantID {
			return t, true
		}
	}
	return Tenant{}, false
}

// APIAuth converts the state into per-request API credentials.
func (s *AuthState) APIAuth() xero.Auth {
	return xero.Auth{AccessToken: s.TokenSet.AccessToken, TenantID: s.ActiveTenantID}
}

// SaveTo serializes the state into the session.
func (s *AuthState) SaveTo(sess *shared.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sess.Set(authStateKey, string(data))
	return nil
}

// StateFromSession loads the typed state from the session. It returns
// shared.ErrNotConnected when the session carries no usable token set.
func StateFromSession(sess *shared.Session) (*AuthState, error) {
	if sess == nil {
		return nil, shared.ErrNotConnected
	}
	raw := sess.Get(authStateKey)
	if raw == "" {
		return nil, shared.ErrNotConnected
	}
	var state AuthState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, err
	}
	if state.TokenSet.AccessToken == "" {
		return nil, shared.ErrNotConnected
	}
	return &state, nil
}

type authStateContextKey struct{}

// ContextWithState stores the auth state in context.
func ContextWithState(ctx context.Context, state *AuthState) context.Context {
	return context.WithValue(ctx, authStateContextKey{}, state)
}

// StateFromContext extracts the auth state placed by RequireState.
func StateFromContext(ctx context.Context) *AuthState {
	state, _ := ctx.Value(authStateContextKey{}).(*AuthState)
	return state
}
