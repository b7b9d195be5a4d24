package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  listen_addr: 0.0.0.0
  http_port: 9090
  static_dir: /srv/folio/web
site:
  base_url: https://example.dev
  title: Example Dev
database:
  path: /var/lib/folio/folio.db
game:
  max_players: 6
  question_interval: 20s
`

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.ListenAddr)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "https://example.dev", cfg.Site.BaseURL)
	assert.Equal(t, "/var/lib/folio/folio.db", cfg.Database.Path)
	assert.Equal(t, 6, cfg.Game.MaxPlayers)
	assert.Equal(t, 20*time.Second, cfg.Game.QuestionInterval)

	// defaults fill everything the file omits
	assert.Equal(t, 2, cfg.Game.MinPlayers)
	assert.Equal(t, 3*time.Second, cfg.Game.StartDelay)
	assert.Equal(t, "en", cfg.Site.Language)
	assert.Equal(t, 24*time.Hour, cfg.GitHub.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.CodeTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("FOLIO_JWT_SECRET", "env-secret")
	t.Setenv("GITHUB_TOKEN", "env-token")

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: file-secret\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "env-token", cfg.GitHub.Token)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1", cfg.Server.ListenAddr)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Empty(t, cfg.Server.StaticDir)
	assert.Equal(t, "http://localhost:8080", cfg.Site.BaseURL)
	assert.Equal(t, "folio.db", cfg.Database.Path)
}
