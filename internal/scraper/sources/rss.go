package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// RSS reads job postings from one or more RSS 2.0 feeds. Feeds are not
// paginated, so only page 1 returns anything.
type RSS struct {
	feeds  []string
	engine fetch.Engine
	logger logging.Logger
}

// NewRSS creates an RSS source over feeds
func NewRSS(feeds []string, engine fetch.Engine, logger logging.Logger) *RSS {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RSS{feeds: feeds, engine: engine, logger: logger}
}

func (r *RSS) Catalog() bool { return true }

func (r *RSS) Name() string { return "rss" }

func (r *RSS) BaseURL() string {
	if len(r.feeds) == 0 {
		return ""
	}
	return r.feeds[0]
}

// Search fetches every feed. A failing feed is logged and skipped; the search
// fails only when no feed could be read.
func (r *RSS) Search(ctx context.Context, q models.Query) ([]models.RawJob, error) {
	if q.Page > 1 {
		return nil, nil
	}

	var (
		jobs    []models.RawJob
		lastErr error
		failed  int
	)
	for _, feed := range r.feeds {
		body, err := r.engine.Fetch(ctx, feed)
		if err == nil {
			var items []models.RawJob
			items, err = ParseFeed(body, feed)
			jobs = append(jobs, items...)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			r.logger.Warn("Feed failed", map[string]interface{}{
				"feed":  feed,
				"error": err.Error(),
			})
		}
	}

	if failed > 0 && failed == len(r.feeds) {
		return nil, fmt.Errorf("rss: all %d feeds failed: %w", failed, lastErr)
	}
	return jobs, nil
}

// ParseFeed extracts jobs from the <item> elements of an RSS document
func ParseFeed(body, feedURL string) ([]models.RawJob, error) {
	doc, err := xmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rss: parse %s: %w", feedURL, err)
	}

	var jobs []models.RawJob
	for _, item := range xmlquery.Find(doc, "//item") {
		fields := map[string]string{}
		for c := item.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			if _, seen := fields[c.Data]; !seen {
				fields[c.Data] = strings.TrimSpace(c.InnerText())
			}
		}

		title, company, location := splitFeedTitle(fields["title"])
		for _, key := range []string{"company", "creator", "author", "source"} {
			if v := fields[key]; v != "" {
				company = v
				break
			}
		}
		if v := fields["location"]; v != "" {
			location = v
		}
		if title == "" {
			continue
		}

		jobs = append(jobs, models.RawJob{
			Title:       title,
			Company:     company,
			Location:    location,
			Description: fields["description"],
			URL:         fields["link"],
			ExternalID:  fields["guid"],
			PostedDate:  parseDate(fields["pubDate"], time.RFC1123Z, time.RFC1123, time.RFC3339),
			Source:      "rss",
			BaseURL:     feedURL,
		})
	}
	return jobs, nil
}

// splitFeedTitle recovers the company from titles such as "Actuary at Acme",
// "Actuary - Acme - Boston, MA" or "Acme: Actuary"
func splitFeedTitle(raw string) (title, company, location string) {
	raw = strings.TrimSpace(raw)

	if i := strings.LastIndex(raw, " at "); i > 0 {
		return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+4:]), ""
	}

	if parts := strings.Split(raw, " - "); len(parts) >= 2 {
		title = strings.TrimSpace(parts[0])
		company = strings.TrimSpace(parts[1])
		if len(parts) >= 3 {
			location = strings.TrimSpace(strings.Join(parts[2:], " - "))
		}
		return title, company, location
	}

	if i := strings.Index(raw, ": "); i > 0 {
		return strings.TrimSpace(raw[i+2:]), strings.TrimSpace(raw[:i]), ""
	}

	return raw, "", ""
}
