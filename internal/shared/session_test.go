package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("auth_state", `{"active_tenant_id":"tenant-1"}`)

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	cookies := res.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	// A follow-up request with the cookie sees the stored value.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	assert.Equal(t, `{"active_tenant_id":"tenant-1"}`, loaded.Get("auth_state"))
}

func TestSessionDestroy(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("auth_state", "payload")
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	sm.Destroy(sess)
	res2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res2, req, sess))

	cookies := res2.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, -1, cookies[0].MaxAge)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	assert.Empty(t, loaded.Get("auth_state"))
}

func TestFlashSurvivesRedirect(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	// First request adds a flash and commits, as the callback handler does
	// before redirecting.
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Connected to Xero"})
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, sess))

	// The redirected-to request sees the flash exactly once.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	flash := loaded.PopFlash()
	require.NotNil(t, flash, "flash added before the redirect must be visible on the next request")
	assert.Equal(t, "Connected to Xero", flash.Message)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req2, loaded))

	// Once consumed and committed, it is gone.
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded3, err := sm.Load(ctx, req3)
	require.NoError(t, err)
	assert.Nil(t, loaded3.PopFlash())
}

func TestFlashIsSingleUse(t *testing.T) {
	sm := newManager(t)
	sess := sm.newSession()

	sess.AddFlash(FlashMessage{Kind: "success", Message: "Connected to Xero"})
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Connected to Xero", flash.Message)
	assert.Nil(t, sess.PopFlash())
}
