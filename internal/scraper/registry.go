package scraper

import (
	"fmt"
	"strings"
	"sync"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/captcha"
	"jobharvest/internal/scraper/engines/firecrawl"
	"jobharvest/internal/scraper/engines/headed"
	"jobharvest/internal/scraper/fetch"
	"jobharvest/internal/scraper/sources"
)

// Names lists every source the registry can build
var Names = []string{
	"indeed", "linkedin", "glassdoor", "simplyhired", "naukri",
	"soa", "cas", "rss",
	"adzuna", "jsearch", "greenhouse", "lever", "workday",
}

// Registry builds and owns the configured sources. Heavy engines (browser,
// hosted scraping) are created once and shared by every source using them.
type Registry struct {
	cfg      *config.Config
	logger   logging.Logger
	breakers *fetch.Breakers
	sources  []Source

	mu        sync.Mutex
	browser   *headed.Engine
	firecrawl *firecrawl.Engine
}

// NewRegistry builds the enabled sources in configuration order
func NewRegistry(cfg *config.Config, logger logging.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := &Registry{
		cfg:      cfg,
		logger:   logger,
		breakers: fetch.NewBreakers(cfg.Scraper.CircuitBreaker.MaxFailures, cfg.Scraper.CircuitBreaker.ResetTimeout),
	}

	for _, sc := range cfg.EnabledSources() {
		src, err := r.build(sc)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.sources = append(r.sources, src)
	}

	return r, nil
}

// Sources returns the built sources in run order
func (r *Registry) Sources() []Source {
	return r.sources
}

// Breakers exposes the shared circuit breakers
func (r *Registry) Breakers() *fetch.Breakers {
	return r.breakers
}

// Close releases the shared browser, if one was launched
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

func (r *Registry) build(sc config.SourceConfig) (Source, error) {
	name := strings.ToLower(sc.Name)
	logger := r.logger.WithField("source", name)
	client := fetch.NewClient(fetch.OptionsFromConfig(r.cfg), r.breakers, logger)

	switch name {
	case "adzuna":
		return sources.NewAdzuna(sources.AdzunaOptions{
			BaseURL:        sc.BaseURL,
			AppID:          r.cfg.Adzuna.AppID,
			AppKey:         r.cfg.Adzuna.AppKey,
			Country:        r.cfg.Adzuna.Country,
			ResultsPerPage: r.cfg.Adzuna.ResultsPerPage,
		}, client), nil
	case "jsearch":
		return sources.NewJSearch(r.cfg.JSearch.APIKey, r.cfg.JSearch.Host, sc.BaseURL, client), nil
	case "greenhouse":
		return sources.NewGreenhouse(sc.BaseURL, sc.Boards, client, logger), nil
	case "lever":
		return sources.NewLever(sc.BaseURL, sc.Boards, client, logger), nil
	case "workday":
		return sources.NewWorkday(sc.Boards, client, logger), nil
	}

	engine, err := r.engine(sc, client)
	if err != nil {
		return nil, err
	}

	switch name {
	case "indeed":
		return sources.NewIndeed(sc.BaseURL, engine), nil
	case "linkedin":
		return sources.NewLinkedIn(sc.BaseURL, engine), nil
	case "glassdoor":
		return sources.NewGlassdoor(sc.BaseURL, engine), nil
	case "simplyhired":
		return sources.NewSimplyHired(sc.BaseURL, engine), nil
	case "naukri":
		return sources.NewNaukri(sc.BaseURL, engine), nil
	case "soa":
		return sources.NewSOA(sc.BaseURL, engine), nil
	case "cas":
		return sources.NewCAS(sc.BaseURL, engine), nil
	case "rss":
		return sources.NewRSS(sc.Feeds, engine, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, sc.Name)
	}
}

// engine picks the page fetcher for an HTML source. Every engine runs through
// the source's client so pacing and retries apply uniformly.
func (r *Registry) engine(sc config.SourceConfig, client *fetch.Client) (fetch.Engine, error) {
	kind := sc.Engine
	if kind == "" {
		kind = r.cfg.Scraper.Engine
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case "", "http":
		return client, nil
	case "headed":
		if r.browser == nil {
			var solver captcha.Solver
			if r.cfg.Scraper.Captcha.EnableAutoSolve {
				solver = captcha.NewTwoCaptchaSolver(r.cfg, r.logger)
			}
			r.browser = headed.New(r.cfg, solver, r.logger)
		}
		return client.Paced(r.browser), nil
	case "firecrawl":
		if r.firecrawl == nil {
			fc, err := firecrawl.New(r.cfg, r.logger)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}
			r.firecrawl = fc
		}
		return client.Paced(r.firecrawl), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q for source %q", config.ErrInvalidConfig, kind, sc.Name)
	}
}
