package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/noah-isme/ledgerlink/testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLIENT_ID", "client-id")
	t.Setenv("CLIENT_SECRET", "client-secret")
	t.Setenv("REDIRECT_URI", "http://localhost:5000/callback")
	t.Setenv("SESSION_SECRET", "session-secret")
	t.Setenv("CSRF_SECRET", "csrf-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.AppAddr)
	assert.Equal(t, DefaultScopes, cfg.Scopes)
	assert.Contains(t, cfg.ScopeList(), "openid")
	assert.Contains(t, cfg.ScopeList(), "accounting.transactions")
	assert.Contains(t, cfg.ScopeList(), "offline_access")
	assert.Equal(t, "https://identity.xero.com/connect/token", cfg.TokenURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresOAuthSettings(t *testing.T) {
	setRequiredEnv(t)
	os.Unsetenv("CLIENT_ID")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsEmptySessionSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "")

	_, err := LoadConfig()
	require.EqualError(t, err, "session secret must be provided")
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SCOPES", "openid accounting.contacts")
	t.Setenv("XERO_ACCOUNTING_URL", "http://127.0.0.1:9999/api.xro/2.0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"openid", "accounting.contacts"}, cfg.ScopeList())
	assert.Equal(t, "http://127.0.0.1:9999/api.xro/2.0", cfg.AccountingURL)
}
