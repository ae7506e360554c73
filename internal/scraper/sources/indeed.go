package sources

import (
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// NewIndeed creates the Indeed search adapter
func NewIndeed(base string, engine fetch.Engine) *HTMLBoard {
	return &HTMLBoard{
		name:   "indeed",
		base:   withDefault(base, "https://www.indeed.com"),
		engine: engine,
		cards:  ".job_seen_beacon, .jobsearch-SerpJobCard",
		pageURL: func(base string, q models.Query) (string, bool) {
			params := url.Values{}
			params.Set("q", q.Keywords)
			if q.Location != "" {
				params.Set("l", q.Location)
			}
			params.Set("start", strconv.Itoa((q.Page-1)*10))
			return base + "/jobs?" + params.Encode(), true
		},
		parse: func(card *goquery.Selection) models.RawJob {
			link := card.Find("h2 a, a[data-jk]").First()
			href, _ := link.Attr("href")
			jk, _ := link.Attr("data-jk")

			return models.RawJob{
				Title:       text(card, "h2.jobTitle span[title], h2 a"),
				Company:     text(card, "[data-testid='company-name'], .companyName, .company"),
				Location:    text(card, "[data-testid='text-location'], .companyLocation, .location"),
				Salary:      text(card, ".salary-snippet-container, .salary-snippet, .salaryText"),
				Description: text(card, ".job-snippet, .summary"),
				URL:         href,
				ExternalID:  jk,
				PostedDate:  relativeDate(text(card, "span.date, [data-testid='myJobsStateDate']")),
			}
		},
	}
}
