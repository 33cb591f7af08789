package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "8080", cfg.ApiServer.Port)
	require.Equal(t, 24*time.Hour, cfg.Auth.AccessToken.Expiration)
	require.Equal(t, 10*time.Minute, cfg.OAuthState.TTL)
	require.Equal(t, "db", cfg.OAuthState.Backend)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[auth]
token_secret = "from-file"

[auth.github]
client_id = "gh-client"
client_secret = "gh-secret"
redirect_uri = "http://localhost:8080/oauth/callback/github"

[oauth_state]
ttl = "5m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.TokenSecret)
	require.True(t, cfg.Auth.GitHub.Enabled())
	require.False(t, cfg.Auth.Google.Enabled())
	require.Equal(t, 5*time.Minute, cfg.OAuthState.TTL)
	require.Equal(t, "access_token", cfg.Auth.AccessToken.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestConfigs_Validate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.Auth.TokenSecret = "secret"
	cfg.Session.Secret = "session"
	require.NoError(t, cfg.Validate())

	cfg.OAuthState.Backend = "redis"
	require.Error(t, cfg.Validate())

	cfg.Redis.Addr = "localhost:6379"
	require.NoError(t, cfg.Validate())
}
