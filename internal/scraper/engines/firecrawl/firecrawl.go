// Package firecrawl fetches pages through the Firecrawl hosted scraping API.
package firecrawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/mendableai/firecrawl-go"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
)

// ErrEmptyDocument is returned when Firecrawl returns no HTML for a page
var ErrEmptyDocument = errors.New("firecrawl returned no html")

type scrapeAPI interface {
	ScrapeURL(url string, params *firecrawl.ScrapeParams) (*firecrawl.FirecrawlDocument, error)
}

// Engine implements fetch.Engine on top of firecrawl-go
type Engine struct {
	app    scrapeAPI
	logger logging.Logger
}

// New creates a Firecrawl engine from the firecrawl section of the config
func New(cfg *config.Config, logger logging.Logger) (*Engine, error) {
	app, err := firecrawl.NewFirecrawlApp(cfg.Firecrawl.APIKey, cfg.Firecrawl.APIURL)
	if err != nil {
		return nil, fmt.Errorf("init firecrawl: %w", err)
	}

	return &Engine{app: app, logger: logger}, nil
}

// Fetch scrapes url and returns the page HTML. The SDK call is not
// cancellable, so a cancelled ctx returns immediately and the result is dropped.
func (e *Engine) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		doc *firecrawl.FirecrawlDocument
		err error
	}
	done := make(chan result, 1)

	go func() {
		doc, err := e.app.ScrapeURL(url, &firecrawl.ScrapeParams{Formats: []string{"html"}})
		done <- result{doc, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("firecrawl scrape %s: %w", url, r.err)
		}
		if r.doc == nil || r.doc.HTML == "" {
			return "", fmt.Errorf("%w: %s", ErrEmptyDocument, url)
		}

		e.logger.Debug("Firecrawl scrape completed", map[string]interface{}{
			"url":            url,
			"content_length": len(r.doc.HTML),
		})
		return r.doc.HTML, nil
	}
}
