package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, []string{"indeed", "linkedin", "soa", "cas"}, sourceNames(cfg.EnabledSources()))
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigExpandsEnvAndOverrides(t *testing.T) {
	t.Setenv("TEST_FEED_HOST", "feeds.example.com")
	t.Setenv("ADZUNA_APP_ID", "id-123")
	t.Setenv("ADZUNA_APP_KEY", "key-456")
	t.Setenv("PORT", "9090")

	path := writeConfig(t, `
scraper:
  request_delay: 250ms
  max_pages: 2
sources:
  - name: rss
    enabled: true
    feeds: ["https://${TEST_FEED_HOST}/jobs.rss"]
  - name: adzuna
    enabled: true
  - name: indeed
    enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.RequestDelay)
	assert.Equal(t, 2, cfg.Scraper.MaxPages)
	assert.Equal(t, "id-123", cfg.Adzuna.AppID)

	rss, ok := cfg.Source("rss")
	require.True(t, ok)
	assert.Equal(t, []string{"https://feeds.example.com/jobs.rss"}, rss.Feeds)
	assert.Equal(t, []string{"rss", "adzuna"}, sourceNames(cfg.EnabledSources()))
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateMissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"adzuna", func(c *Config) { c.SelectSources([]string{"adzuna"}) }, "ADZUNA_APP_ID"},
		{"jsearch", func(c *Config) { c.SelectSources([]string{"jsearch"}) }, "JSEARCH_API_KEY"},
		{"rss without feeds", func(c *Config) { c.SelectSources([]string{"rss"}) }, "feed"},
		{"portal without key", func(c *Config) { c.Portal.URL = "https://portal.example.com" }, "ADMIN_API_KEY"},
		{"cross run without redis", func(c *Config) { c.Dedup.CrossRun = true }, "REDIS_URL"},
		{"firecrawl engine", func(c *Config) { c.Scraper.Engine = "firecrawl" }, "FIRECRAWL_API_KEY"},
		{"no sources", func(c *Config) { c.Sources = nil }, "no sources"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "Level"},
		{"too many pages", func(c *Config) { c.Scraper.MaxPages = 11 }, "MaxPages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSelectSourcesKeepsOrderAndSettings(t *testing.T) {
	cfg := Default()
	cfg.Sources = append(cfg.Sources, SourceConfig{Name: "lever", Boards: []string{"acme"}})

	cfg.SelectSources([]string{"Lever", " indeed ", ""})

	assert.Equal(t, []string{"lever", "indeed"}, sourceNames(cfg.EnabledSources()))
	lever, _ := cfg.Source("lever")
	assert.Equal(t, []string{"acme"}, lever.Boards)
}

func TestExpandEnvVarsLeavesUnknownUntouched(t *testing.T) {
	t.Setenv("KNOWN_VAR", "value")
	assert.Equal(t, "value/${UNKNOWN_VAR_X}/$UNKNOWN_Y", expandEnvVars("$KNOWN_VAR/${UNKNOWN_VAR_X}/$UNKNOWN_Y"))
}

func sourceNames(sources []SourceConfig) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	return names
}
