package sources

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// unknownCompany is used by boards whose cards omit the employer
const unknownCompany = "Unknown Company"

// NewSOA creates the Society of Actuaries job board adapter. The board only
// lists actuarial roles, so keywords and location are applied by the filter.
func NewSOA(base string, engine fetch.Engine) *HTMLBoard {
	return &HTMLBoard{
		name:    "soa",
		base:    withDefault(base, "https://jobs.soa.org/jobs/"),
		engine:  engine,
		catalog: true,
		cards:   ".job-listing, .list-group-item, .media",
		pageURL: func(base string, q models.Query) (string, bool) {
			if q.Page <= 1 {
				return base, true
			}
			return base + "?page=" + strconv.Itoa(q.Page), true
		},
		parse: func(card *goquery.Selection) models.RawJob {
			return models.RawJob{
				Title:       text(card, ".job-title, .media-heading, a"),
				Company:     text(card, ".company-name, .text-muted, .company"),
				Location:    text(card, ".job-location, .location"),
				Description: cardText(card),
				URL:         attr(card, "a[href]", "href"),
			}
		},
	}
}

// NewCAS creates the Casualty Actuarial Society career center adapter. The
// board is a single page.
func NewCAS(base string, engine fetch.Engine) *HTMLBoard {
	return &HTMLBoard{
		name:    "cas",
		base:    withDefault(base, "https://www.casact.org/career-center/job-board"),
		engine:  engine,
		catalog: true,
		cards:   ".job-item, article",
		pageURL: func(base string, q models.Query) (string, bool) {
			return base, q.Page <= 1
		},
		parse: func(card *goquery.Selection) models.RawJob {
			company := text(card, ".employer-name")
			if company == "" {
				company = unknownCompany
			}

			return models.RawJob{
				Title:       text(card, ".job-title, h3, a"),
				Company:     company,
				Location:    text(card, ".location"),
				Description: cardText(card),
				URL:         attr(card, "a[href]", "href"),
			}
		},
	}
}
