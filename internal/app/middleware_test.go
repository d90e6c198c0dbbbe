package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ledgerlink/internal/auth"
	"github.com/noah-isme/ledgerlink/internal/shared"
	_ "github.com/noah-isme/ledgerlink/testing"
)

type middlewareEnv struct {
	router   chi.Router
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
}

func newMiddlewareEnv(t *testing.T) *middlewareEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         slog.Default(),
		SessionManager: sessions,
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	auth.NewHandler(nil, nil, sessions).MountRoutes(r)
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return &middlewareEnv{router: r, sessions: sessions, csrf: csrf}
}

// connectedSession seeds a committed session carrying auth state and a CSRF
// token, returning the session ID and token for follow-up requests.
func (e *middlewareEnv) connectedSession(t *testing.T) (string, string) {
	t.Helper()
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := e.sessions.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("auth_state", `{"token_set":{"access_token":"token"}}`)
	token, err := e.csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NoError(t, e.sessions.Commit(ctx, httptest.NewRecorder(), req, sess))
	return sess.ID, token
}

func (e *middlewareEnv) postDisconnect(sessionID, token string) *httptest.ResponseRecorder {
	form := url.Values{}
	if token != "" {
		form.Set(shared.CSRFFormField, token)
	}
	req := httptest.NewRequest(http.MethodPost, "/disconnect", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: e.sessions.CookieName(), Value: sessionID})
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func (e *middlewareEnv) loadSession(t *testing.T, sessionID string) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: e.sessions.CookieName(), Value: sessionID})
	sess, err := e.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

func TestDisconnectRejectsMissingOrForgedCSRFToken(t *testing.T) {
	env := newMiddlewareEnv(t)
	sessionID, _ := env.connectedSession(t)

	res := env.postDisconnect(sessionID, "")
	assert.Equal(t, http.StatusForbidden, res.Code, "missing token")

	res = env.postDisconnect(sessionID, "forged-token")
	assert.Equal(t, http.StatusForbidden, res.Code, "forged token")

	// The session survives both rejected attempts.
	sess := env.loadSession(t, sessionID)
	assert.NotEmpty(t, sess.Get("auth_state"))
}

func TestDisconnectWithValidTokenDestroysSession(t *testing.T) {
	env := newMiddlewareEnv(t)
	sessionID, token := env.connectedSession(t)

	res := env.postDisconnect(sessionID, token)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))

	cookies := res.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, -1, cookies[0].MaxAge, "session cookie is cleared")

	sess := env.loadSession(t, sessionID)
	assert.Empty(t, sess.Get("auth_state"), "auth state is gone after disconnect")
}

func TestCSRFMiddlewareSkipsSafeMethods(t *testing.T) {
	env := newMiddlewareEnv(t)
	sessionID, _ := env.connectedSession(t)

	// GET passes the CSRF check without carrying a token.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.AddCookie(&http.Cookie{Name: env.sessions.CookieName(), Value: sessionID})
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNoContent, res.Code)
}
