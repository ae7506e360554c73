package exporter

import (
	"context"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/fetch"
)

// FromConfig builds the sinks enabled in the output, database, sqlite and
// portal sections. The returned close func releases any store connections.
func FromConfig(ctx context.Context, cfg *config.Config, logger logging.Logger) ([]Sink, func(), error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	var (
		sinks  []Sink
		stores []DocumentStore
	)
	closeAll := func() {
		for _, s := range stores {
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close document store", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	if cfg.Output.JSONPath != "" {
		sinks = append(sinks, &JSONSink{Path: cfg.Output.JSONPath})
	}
	if cfg.Output.CSVPath != "" {
		sinks = append(sinks, &CSVSink{Path: cfg.Output.CSVPath})
	}
	if cfg.Output.PerJobDir != "" {
		sinks = append(sinks, &PerJobSink{Dir: cfg.Output.PerJobDir})
	}

	if cfg.Database.URL != "" {
		store, err := NewPostgresStore(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		stores = append(stores, store)
		sinks = append(sinks, NewDocumentSink("postgres", store, logger))
	}

	if cfg.SQLite.Path != "" {
		store, err := NewSQLiteStore(cfg.SQLite.Path, cfg.SQLite.Table)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		stores = append(stores, store)
		sinks = append(sinks, NewDocumentSink("sqlite", store, logger))
	}

	if cfg.Portal.URL != "" {
		client := fetch.NewClient(fetch.OptionsFromConfig(cfg), nil, logger)
		portal, err := NewPortalSink(cfg.Portal.URL, cfg.Portal.AdminAPIKey, cfg.Portal.BatchSize, client, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, portal)
	}

	return sinks, closeAll, nil
}
