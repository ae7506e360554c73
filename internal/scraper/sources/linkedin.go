package sources

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// linkedinPageSize is the number of cards the guest search endpoint returns
const linkedinPageSize = 25

// NewLinkedIn creates the LinkedIn guest job search adapter
func NewLinkedIn(base string, engine fetch.Engine) *HTMLBoard {
	return &HTMLBoard{
		name:   "linkedin",
		base:   withDefault(base, "https://www.linkedin.com"),
		engine: engine,
		cards:  "div.base-card",
		pageURL: func(base string, q models.Query) (string, bool) {
			params := url.Values{}
			params.Set("keywords", q.Keywords)
			if q.Location != "" {
				params.Set("location", q.Location)
			}
			params.Set("start", strconv.Itoa((q.Page-1)*linkedinPageSize))
			return base + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + params.Encode(), true
		},
		parse: func(card *goquery.Selection) models.RawJob {
			urn := attr(card, "", "data-entity-urn")
			if i := strings.LastIndex(urn, ":"); i >= 0 {
				urn = urn[i+1:]
			}

			return models.RawJob{
				Title:      text(card, "h3.base-search-card__title"),
				Company:    text(card, "h4.base-search-card__subtitle"),
				Location:   text(card, "span.job-search-card__location"),
				Salary:     text(card, "span.job-search-card__salary-info"),
				URL:        attr(card, "a.base-card__full-link", "href"),
				ExternalID: urn,
				PostedDate: parseDate(attr(card, "time", "datetime"), "2006-01-02"),
			}
		},
	}
}
