package sources

import (
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// NewGlassdoor creates the Glassdoor search adapter. Glassdoor renders most
// listings client-side, so it is usually configured with the headed engine.
func NewGlassdoor(base string, engine fetch.Engine) *HTMLBoard {
	return &HTMLBoard{
		name:   "glassdoor",
		base:   withDefault(base, "https://www.glassdoor.com"),
		engine: engine,
		cards:  "li[data-test='jobListing'], li.react-job-listing",
		pageURL: func(base string, q models.Query) (string, bool) {
			params := url.Values{}
			params.Set("sc.keyword", q.Keywords)
			if q.Location != "" {
				params.Set("locKeyword", q.Location)
			}
			params.Set("p", strconv.Itoa(q.Page))
			return base + "/Job/jobs.htm?" + params.Encode(), true
		},
		parse: func(card *goquery.Selection) models.RawJob {
			id := attr(card, "", "data-jobid")
			if id == "" {
				id = attr(card, "", "data-id")
			}

			return models.RawJob{
				Title:       text(card, "[data-test='job-title'], a.jobLink"),
				Company:     text(card, "[class*='EmployerProfile_compactEmployerName'], [data-test='employer-short-name'], .employer-name"),
				Location:    text(card, "[data-test='emp-location'], .location"),
				Salary:      text(card, "[data-test='detailSalary']"),
				Description: text(card, "[data-test='descSnippet'], .job-description"),
				URL:         attr(card, "a[data-test='job-link'], a.jobLink, a[href]", "href"),
				ExternalID:  id,
				PostedDate:  relativeDate(text(card, "[data-test='job-age']")),
			}
		},
	}
}
