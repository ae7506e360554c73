package sources

import (
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// NewSimplyHired creates the SimplyHired search adapter
func NewSimplyHired(base string, engine fetch.Engine) *HTMLBoard {
	return &HTMLBoard{
		name:   "simplyhired",
		base:   withDefault(base, "https://www.simplyhired.com"),
		engine: engine,
		cards:  "li[data-testid='searchSerpJob'], div.SerpJob-jobCard",
		pageURL: func(base string, q models.Query) (string, bool) {
			params := url.Values{}
			params.Set("q", q.Keywords)
			if q.Location != "" {
				params.Set("l", q.Location)
			}
			params.Set("pn", strconv.Itoa(q.Page))
			return base + "/search?" + params.Encode(), true
		},
		parse: func(card *goquery.Selection) models.RawJob {
			return models.RawJob{
				Title:       text(card, "[data-testid='searchSerpJobTitle'], h2 a, a.SerpJob-link"),
				Company:     text(card, "[data-testid='companyName'], .jobposting-company"),
				Location:    text(card, "[data-testid='searchSerpJobLocation'], .jobposting-location"),
				Salary:      text(card, "[data-testid='searchSerpJobSalaryConfirmed'], [data-testid='searchSerpJobSalaryEst'], .jobposting-salary"),
				Description: text(card, "[data-testid='searchSerpJobSnippet'], p.jobposting-snippet"),
				URL:         attr(card, "h2 a, a.SerpJob-link", "href"),
				ExternalID:  attr(card, "[data-jobkey]", "data-jobkey"),
				PostedDate:  relativeDate(text(card, "[data-testid='searchSerpJobDateStamp'], time")),
			}
		},
	}
}
