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

// JSearch queries the RapidAPI JSearch aggregator
type JSearch struct {
	apiKey string
	host   string
	base   string
	client *fetch.Client
}

type jsearchResponse struct {
	Data []struct {
		JobID          string  `json:"job_id"`
		Title          string  `json:"job_title"`
		Employer       string  `json:"employer_name"`
		City           string  `json:"job_city"`
		State          string  `json:"job_state"`
		Country        string  `json:"job_country"`
		Description    string  `json:"job_description"`
		ApplyLink      string  `json:"job_apply_link"`
		PostedAt       string  `json:"job_posted_at_datetime_utc"`
		EmploymentType string  `json:"job_employment_type"`
		IsRemote       bool    `json:"job_is_remote"`
		MinSalary      float64 `json:"job_min_salary"`
		MaxSalary      float64 `json:"job_max_salary"`
	} `json:"data"`
}

// NewJSearch creates the JSearch source. base overrides https://{host}.
func NewJSearch(apiKey, host, base string, client *fetch.Client) *JSearch {
	host = withDefault(host, "jsearch.p.rapidapi.com")
	return &JSearch{
		apiKey: apiKey,
		host:   host,
		base:   strings.TrimRight(withDefault(base, "https://"+host), "/"),
		client: client,
	}
}

func (j *JSearch) Name() string    { return "jsearch" }
func (j *JSearch) BaseURL() string { return j.base }

func (j *JSearch) Search(ctx context.Context, q models.Query) ([]models.RawJob, error) {
	query := q.Keywords
	if q.Location != "" {
		query += " in " + q.Location
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("num_pages", "1")

	headers := map[string]string{
		"X-RapidAPI-Key":  j.apiKey,
		"X-RapidAPI-Host": j.host,
	}

	var resp jsearchResponse
	if err := j.client.GetJSON(ctx, j.base+"/search?"+params.Encode(), headers, &resp); err != nil {
		return nil, fmt.Errorf("jsearch: %w", err)
	}

	jobs := make([]models.RawJob, 0, len(resp.Data))
	for _, d := range resp.Data {
		var parts []string
		for _, p := range []string{d.City, d.State, d.Country} {
			if p != "" {
				parts = append(parts, p)
			}
		}

		job := models.RawJob{
			Title:       d.Title,
			Company:     d.Employer,
			Location:    strings.Join(parts, ", "),
			Description: d.Description,
			URL:         d.ApplyLink,
			ExternalID:  d.JobID,
			PostedDate:  parseDate(d.PostedAt, time.RFC3339, "2006-01-02T15:04:05.000Z"),
			JobType:     d.EmploymentType,
			Remote:      d.IsRemote,
			Source:      "jsearch",
			BaseURL:     j.base,
		}
		if d.MinSalary > 0 && d.MaxSalary > 0 {
			job.Salary = fmt.Sprintf("%.0f - %.0f", d.MinSalary, d.MaxSalary)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
