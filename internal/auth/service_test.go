package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ledgerlink/internal/xero"
	_ "github.com/noah-isme/ledgerlink/testing"
)

type stubConnections struct {
	connections []xero.Connection
	err         error
	gotToken    string
}

func (s *stubConnections) Connections(ctx context.Context, accessToken string) ([]xero.Connection, error) {
	s.gotToken = accessToken
	if s.err != nil {
		return nil, s.err
	}
	return s.connections, nil
}

func signedTestJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func newTestService(t *testing.T, tokenURL string, connections ConnectionsLister) *Service {
	t.Helper()
	return NewService(ServiceConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:5000/callback",
		Scopes:       []string{"openid", "profile", "accounting.transactions"},
		AuthorizeURL: "https://login.example.com/authorize",
		TokenURL:     tokenURL,
	}, connections, nil)
}

func TestConsentURL(t *testing.T) {
	svc := newTestService(t, "https://identity.example.com/token", &stubConnections{})

	raw := svc.ConsentURL("nonce-123")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "login.example.com", parsed.Host)
	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://localhost:5000/callback", q.Get("redirect_uri"))
	assert.Equal(t, "nonce-123", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "openid")
}

func TestExchangeAndBuildAuthState(t *testing.T) {
	accessToken := signedTestJWT(t, jwt.MapClaims{"sub": "user-1", "xero_userid": "xu-1"})
	idToken := signedTestJWT(t, jwt.MapClaims{"sub": "user-1", "email": "user@example.com"})

	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"refresh_token": "refresh-1",
			"id_token":      idToken,
			"token_type":    "Bearer",
			"expires_in":    1800,
		})
	}))
	defer identity.Close()

	connections := &stubConnections{connections: []xero.Connection{
		{ID: "conn-1", TenantID: "tenant-1", TenantType: "ORGANISATION", TenantName: "First Org"},
		{ID: "conn-2", TenantID: "tenant-2", TenantType: "ORGANISATION", TenantName: "Second Org"},
	}}
	svc := newTestService(t, identity.URL, connections)

	tokenSet, err := svc.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, accessToken, tokenSet.AccessToken)
	assert.Equal(t, "refresh-1", tokenSet.RefreshToken)
	assert.Equal(t, idToken, tokenSet.IDToken)
	assert.False(t, tokenSet.Expired())
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), tokenSet.ExpiresAt, time.Minute)

	state, err := svc.BuildAuthState(context.Background(), tokenSet)
	require.NoError(t, err)
	assert.Equal(t, accessToken, connections.gotToken)

	// The first connection becomes the active tenant.
	assert.Equal(t, "tenant-1", state.ActiveTenantID)
	require.Len(t, state.Tenants, 2)
	active, ok := state.ActiveTenant()
	require.True(t, ok)
	assert.Equal(t, "First Org", active.TenantName)

	assert.Equal(t, "user-1", state.AccessTokenClaims["sub"])
	assert.Equal(t, "user@example.com", state.IDTokenClaims["email"])
}

func TestBuildAuthStateWithoutTenants(t *testing.T) {
	svc := newTestService(t, "https://identity.example.com/token", &stubConnections{})

	_, err := svc.BuildAuthState(context.Background(), &TokenSet{
		AccessToken: signedTestJWT(t, jwt.MapClaims{"sub": "user-1"}),
	})
	require.ErrorIs(t, err, ErrNoTenants)
}

func TestTokenSetExpired(t *testing.T) {
	assert.False(t, TokenSet{}.Expired(), "zero expiry means unknown, not expired")
	assert.False(t, TokenSet{ExpiresAt: time.Now().Add(time.Minute)}.Expired())
	assert.True(t, TokenSet{ExpiresAt: time.Now().Add(-time.Minute)}.Expired())
}
