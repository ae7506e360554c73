package sources

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"
)

// NewNaukri creates the Naukri.com adapter. Salaries there are quoted in lakhs
// of rupees, so the salary label is not passed on for USD parsing.
func NewNaukri(base string, engine fetch.Engine) *HTMLBoard {
	return &HTMLBoard{
		name:   "naukri",
		base:   withDefault(base, "https://www.naukri.com"),
		engine: engine,
		cards:  "article.jobTuple, div.srp-jobtuple-wrapper",
		pageURL: func(base string, q models.Query) (string, bool) {
			path := utils.Slugify(q.Keywords, 80) + "-jobs"
			if q.Location != "" {
				path += "-in-" + utils.Slugify(q.Location, 40)
			}

			params := url.Values{}
			params.Set("k", q.Keywords)
			if q.Location != "" {
				params.Set("l", q.Location)
			}
			params.Set("page", strconv.Itoa(q.Page))
			return strings.TrimRight(base, "/") + "/" + path + "?" + params.Encode(), true
		},
		parse: func(card *goquery.Selection) models.RawJob {
			company := text(card, "a.subTitle, a.comp-name")
			if company == "" {
				company = unknownCompany
			}

			return models.RawJob{
				Title:       text(card, "a.title"),
				Company:     company,
				Location:    text(card, "li.location, span.locWdth"),
				Description: text(card, "div.job-description, span.job-desc"),
				URL:         attr(card, "a.title", "href"),
				ExternalID:  attr(card, "", "data-job-id"),
			}
		},
	}
}
