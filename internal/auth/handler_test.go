package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ledgerlink/internal/shared"
	"github.com/noah-isme/ledgerlink/internal/xero"
	_ "github.com/noah-isme/ledgerlink/testing"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
}

func sessionRequest(t *testing.T, sm *shared.SessionManager, target string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestConnectRedirectsToConsentURL(t *testing.T) {
	sm := newSessionManager(t)
	svc := newTestService(t, "https://identity.example.com/token", &stubConnections{})
	handler := NewHandler(nil, svc, sm)

	req, sess := sessionRequest(t, sm, "/connect")
	res := httptest.NewRecorder()
	handler.handleConnect(res, req)

	require.Equal(t, http.StatusFound, res.Code)
	location, err := url.Parse(res.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "login.example.com", location.Host)

	nonce := sess.Get(stateNonceKey)
	require.NotEmpty(t, nonce)
	assert.Equal(t, nonce, location.Query().Get("state"))
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	sm := newSessionManager(t)
	svc := newTestService(t, "https://identity.example.com/token", &stubConnections{})
	handler := NewHandler(nil, svc, sm)

	req, sess := sessionRequest(t, sm, "/callback?code=abc&state=tampered")
	sess.Set(stateNonceKey, "expected")
	res := httptest.NewRecorder()
	handler.handleCallback(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "state mismatch")
	assert.Empty(t, sess.Get(stateNonceKey), "nonce is single use")
}

func TestCallbackRejectsDeniedAuthorization(t *testing.T) {
	sm := newSessionManager(t)
	svc := newTestService(t, "https://identity.example.com/token", &stubConnections{})
	handler := NewHandler(nil, svc, sm)

	req, _ := sessionRequest(t, sm, "/callback?error=access_denied&error_description=user+cancelled")
	res := httptest.NewRecorder()
	handler.handleCallback(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "access_denied")
}

func TestCallbackStoresTypedAuthState(t *testing.T) {
	accessToken := signedTestJWT(t, jwt.MapClaims{"sub": "user-1"})
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   1800,
		})
	}))
	defer identity.Close()

	sm := newSessionManager(t)
	svc := newTestService(t, identity.URL, &stubConnections{connections: []xero.Connection{
		{ID: "conn-1", TenantID: "tenant-1", TenantName: "First Org"},
	}})
	handler := NewHandler(nil, svc, sm)

	req, sess := sessionRequest(t, sm, "/callback?code=auth-code&state=nonce-1")
	sess.Set(stateNonceKey, "nonce-1")
	res := httptest.NewRecorder()
	handler.handleCallback(res, req)

	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/organisation", res.Header().Get("Location"))

	state, err := StateFromSession(sess)
	require.NoError(t, err)
	assert.Equal(t, accessToken, state.TokenSet.AccessToken)
	assert.Equal(t, "tenant-1", state.ActiveTenantID)

	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
}

func TestStateFromSessionWithoutToken(t *testing.T) {
	sm := newSessionManager(t)
	_, sess := sessionRequest(t, sm, "/")

	_, err := StateFromSession(sess)
	require.ErrorIs(t, err, shared.ErrNotConnected)

	_, err = StateFromSession(nil)
	require.ErrorIs(t, err, shared.ErrNotConnected)
}

func TestRequireStateBlocksAndPassesThrough(t *testing.T) {
	sm := newSessionManager(t)
	var seen *AuthState
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = StateFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireState(nil)(next)

	// Token-less session fails fast with a problem document.
	req, _ := sessionRequest(t, sm, "/execute")
	res := httptest.NewRecorder()
	guarded.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Nil(t, seen)

	// Connected session passes and the typed state rides the context.
	req, sess := sessionRequest(t, sm, "/execute")
	state := &AuthState{
		TokenSet:       TokenSet{AccessToken: "token"},
		Tenants:        []Tenant{{TenantID: "tenant-1"}},
		ActiveTenantID: "tenant-1",
	}
	require.NoError(t, state.SaveTo(sess))
	res = httptest.NewRecorder()
	guarded.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "tenant-1", seen.ActiveTenantID)
}
