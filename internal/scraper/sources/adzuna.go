package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// AdzunaOptions holds the Adzuna API credentials
type AdzunaOptions struct {
	BaseURL        string
	AppID          string
	AppKey         string
	Country        string
	ResultsPerPage int
}

// Adzuna queries the Adzuna job search API
type Adzuna struct {
	opts   AdzunaOptions
	client *fetch.Client
}

type adzunaResponse struct {
	Results []struct {
		ID           string  `json:"id"`
		Title        string  `json:"title"`
		Description  string  `json:"description"`
		RedirectURL  string  `json:"redirect_url"`
		Created      string  `json:"created"`
		SalaryMin    float64 `json:"salary_min"`
		SalaryMax    float64 `json:"salary_max"`
		ContractTime string  `json:"contract_time"`
		ContractType string  `json:"contract_type"`
		Company      struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
		Location struct {
			DisplayName string `json:"display_name"`
		} `json:"location"`
	} `json:"results"`
}

// NewAdzuna creates the Adzuna source
func NewAdzuna(opts AdzunaOptions, client *fetch.Client) *Adzuna {
	opts.BaseURL = strings.TrimRight(withDefault(opts.BaseURL, "https://api.adzuna.com/v1/api/jobs"), "/")
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.ResultsPerPage <= 0 {
		opts.ResultsPerPage = 50
	}
	return &Adzuna{opts: opts, client: client}
}

func (a *Adzuna) Name() string    { return "adzuna" }
func (a *Adzuna) BaseURL() string { return a.opts.BaseURL }

func (a *Adzuna) Search(ctx context.Context, q models.Query) ([]models.RawJob, error) {
	params := url.Values{}
	params.Set("app_id", a.opts.AppID)
	params.Set("app_key", a.opts.AppKey)
	params.Set("results_per_page", strconv.Itoa(a.opts.ResultsPerPage))
	params.Set("what", q.Keywords)
	if q.Location != "" {
		params.Set("where", q.Location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	endpoint := fmt.Sprintf("%s/%s/search/%d?%s", a.opts.BaseURL, a.opts.Country, q.Page, params.Encode())

	var resp adzunaResponse
	if err := a.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("adzuna: %w", err)
	}

	jobs := make([]models.RawJob, 0, len(resp.Results))
	for _, r := range resp.Results {
		job := models.RawJob{
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: r.Description,
			URL:         r.RedirectURL,
			ExternalID:  r.ID,
			PostedDate:  parseDate(r.Created, time.RFC3339),
			JobType:     adzunaJobType(r.ContractTime, r.ContractType),
			Source:      "adzuna",
			BaseURL:     a.opts.BaseURL,
		}
		if r.SalaryMin > 0 && r.SalaryMax > 0 {
			job.Salary = fmt.Sprintf("%.0f - %.0f", r.SalaryMin, r.SalaryMax)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func adzunaJobType(contractTime, contractType string) string {
	switch {
	case contractType == "contract":
		return string(models.JobTypeContract)
	case contractTime == "part_time":
		return string(models.JobTypePartTime)
	case contractTime == "full_time":
		return string(models.JobTypeFullTime)
	default:
		return ""
	}
}
