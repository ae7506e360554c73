package pipeline

import (
	"context"
	"fmt"

	"jobharvest/internal/config"
	"jobharvest/internal/dedup"
	"jobharvest/internal/exporter"
	"jobharvest/internal/filter"
	"jobharvest/internal/logging"
	"jobharvest/internal/scraper"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// FromConfig wires the registry, sinks and seen store described by cfg. extra
// sinks are appended after the configured ones. The returned close func
// releases the browser, store connections and redis client.
func FromConfig(ctx context.Context, cfg *config.Config, logger logging.Logger, extra ...exporter.Sink) (*Runner, func(), error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	registry, err := scraper.NewRegistry(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sinks, closeSinks, err := exporter.FromConfig(ctx, cfg, logger)
	if err != nil {
		registry.Close()
		return nil, nil, err
	}

	cleanup := []func(){
		func() {
			if err := registry.Close(); err != nil {
				logger.Warn("Failed to close registry", map[string]interface{}{"error": err.Error()})
			}
		},
		closeSinks,
	}
	closeAll := func() {
		for _, fn := range cleanup {
			fn()
		}
	}

	opts := []Option{
		WithLogger(logger),
		WithSinks(append(sinks, extra...)...),
	}
	if cfg.Scraper.Parallel {
		opts = append(opts, WithParallel(cfg.Scraper.MaxParallel))
	}

	if cfg.Dedup.CrossRun {
		client, err := utils.NewRedisClient(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
		}
		cleanup = append(cleanup, func() { client.Close() })
		opts = append(opts, WithSeen(dedup.NewRedisSeen(client, cfg.Redis.KeyPrefix, cfg.Redis.SeenTTL)))
	}

	return New(registry.Sources(), opts...), closeAll, nil
}

// RequestFromConfig builds the default request from the search section
func RequestFromConfig(cfg *config.Config) Request {
	return Request{
		Keywords:  cfg.Search.Keywords,
		Locations: cfg.Search.Locations,
		MaxPages:  cfg.Scraper.MaxPages,
		Filter: filter.Criteria{
			RemoteOnly: cfg.Search.RemoteOnly,
			MinSalary:  cfg.Search.MinSalary,
		},
	}
}

// RequestFromScrape overlays a scrape request on the configured defaults.
// Empty fields fall back to the search section.
func RequestFromScrape(cfg *config.Config, req models.ScrapeRequest) Request {
	out := RequestFromConfig(cfg)
	if len(req.Keywords) > 0 {
		out.Keywords = req.Keywords
	}
	if len(req.Locations) > 0 {
		out.Locations = req.Locations
	}
	if req.MaxPages > 0 {
		out.MaxPages = req.MaxPages
	}
	if req.RemoteOnly {
		out.Filter.RemoteOnly = true
	}
	if req.MinSalary > 0 {
		out.Filter.MinSalary = req.MinSalary
	}
	return out
}

// Harvest runs one request against a copy of cfg narrowed to the requested
// sources. The configuration is validated before any network call.
func Harvest(ctx context.Context, cfg *config.Config, req models.ScrapeRequest, logger logging.Logger, extra ...exporter.Sink) (*Result, error) {
	runCfg := *cfg
	runCfg.SelectSources(req.Sources)
	if req.Parallel {
		runCfg.Scraper.Parallel = true
	}
	if err := runCfg.Validate(); err != nil {
		return nil, err
	}

	runner, closeFn, err := FromConfig(ctx, &runCfg, logger, extra...)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return runner.Run(ctx, RequestFromScrape(&runCfg, req))
}
