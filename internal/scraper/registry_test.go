package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest/internal/config"
)

func TestRegistryBuildsSourcesInOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Firecrawl.APIKey = "fc-test"
	cfg.Sources = []config.SourceConfig{
		{Name: "soa", Enabled: true},
		{Name: "indeed", Enabled: false},
		{Name: "greenhouse", Enabled: true, Boards: []string{"acme"}},
		{Name: "glassdoor", Enabled: true, Engine: "headed"},
		{Name: "LinkedIn", Enabled: true, Engine: "firecrawl"},
		{Name: "rss", Enabled: true, Feeds: []string{"https://feed.example/rss"}},
	}

	reg, err := NewRegistry(cfg, nil)
	require.NoError(t, err)
	defer reg.Close()

	var names []string
	for _, s := range reg.Sources() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"soa", "greenhouse", "glassdoor", "linkedin", "rss"}, names)
	assert.Equal(t, "https://jobs.soa.org/jobs/", reg.Sources()[0].BaseURL())
}

func TestRegistryUnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{Name: "monster", Enabled: true}}

	_, err := NewRegistry(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), `"monster"`)
}

func TestRegistryUnknownEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Sources = []config.SourceConfig{{Name: "indeed", Enabled: true, Engine: "telnet"}}

	_, err := NewRegistry(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRegistrySharesBrowser(t *testing.T) {
	cfg := config.Default()
	cfg.Scraper.Engine = "headed"
	cfg.Sources = []config.SourceConfig{
		{Name: "indeed", Enabled: true},
		{Name: "glassdoor", Enabled: true},
	}

	reg, err := NewRegistry(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, reg.browser)
	assert.NoError(t, reg.Close())
	assert.Nil(t, reg.browser)
}
