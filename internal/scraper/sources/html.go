package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// HTMLBoard is a source whose listings are cards on a server-rendered search
// page. Each provider supplies the page URL builder, the card selector and a
// card parser.
type HTMLBoard struct {
	name    string
	base    string
	engine  fetch.Engine
	pageURL func(base string, q models.Query) (string, bool)
	cards   string
	parse   func(card *goquery.Selection) models.RawJob
	catalog bool
}

func (b *HTMLBoard) Name() string    { return b.name }
func (b *HTMLBoard) BaseURL() string { return b.base }

// Catalog reports whether the board ignores the search terms
func (b *HTMLBoard) Catalog() bool { return b.catalog }

// Search fetches one results page. Cards without a title are skipped.
func (b *HTMLBoard) Search(ctx context.Context, q models.Query) ([]models.RawJob, error) {
	pageURL, ok := b.pageURL(b.base, q)
	if !ok {
		return nil, nil
	}

	html, err := b.engine.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}

	return b.Parse(html)
}

// Parse extracts raw jobs from a results page
func (b *HTMLBoard) Parse(html string) ([]models.RawJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", b.name, err)
	}

	var jobs []models.RawJob
	doc.Find(b.cards).Each(func(_ int, card *goquery.Selection) {
		job := b.parse(card)
		if strings.TrimSpace(job.Title) == "" {
			return
		}
		job.Source = b.name
		job.BaseURL = b.base
		jobs = append(jobs, job)
	})
	return jobs, nil
}

func withDefault(base, fallback string) string {
	if base == "" {
		return fallback
	}
	return base
}

// text returns the trimmed text of the first element matching selector
func text(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

// attr returns an attribute of the first element matching selector. An empty
// selector reads the attribute from sel itself.
func attr(sel *goquery.Selection, selector, name string) string {
	if selector != "" {
		sel = sel.Find(selector).First()
	}
	v, _ := sel.Attr(name)
	return strings.TrimSpace(v)
}

func cardText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
