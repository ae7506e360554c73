package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// workdayPageSize is the largest page the Workday CXS endpoint accepts
const workdayPageSize = 20

// Workday searches Workday-hosted career sites through their CXS jobs
// endpoint. Boards are full endpoint URLs such as
// https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/jobs.
type Workday struct {
	set    boardSet
	client *fetch.Client
}

type workdayRequest struct {
	AppliedFacets map[string]interface{} `json:"appliedFacets"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
	SearchText    string                 `json:"searchText"`
}

type workdayResponse struct {
	JobPostings []struct {
		Title         string   `json:"title"`
		ExternalPath  string   `json:"externalPath"`
		LocationsText string   `json:"locationsText"`
		PostedOn      string   `json:"postedOn"`
		BulletFields  []string `json:"bulletFields"`
	} `json:"jobPostings"`
}

// NewWorkday creates the Workday source for boards
func NewWorkday(boards []string, client *fetch.Client, logger logging.Logger) *Workday {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Workday{
		set:    boardSet{source: "workday", boards: boards, logger: logger},
		client: client,
	}
}

func (w *Workday) Name() string { return "workday" }

func (w *Workday) BaseURL() string {
	if len(w.set.boards) == 0 {
		return ""
	}
	return w.set.boards[0]
}

func (w *Workday) Search(ctx context.Context, q models.Query) ([]models.RawJob, error) {
	return w.set.each(ctx, func(ctx context.Context, board string) ([]models.RawJob, error) {
		return w.board(ctx, board, q)
	})
}

func (w *Workday) board(ctx context.Context, board string, q models.Query) ([]models.RawJob, error) {
	u, err := url.Parse(board)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid workday board %q", board)
	}
	tenant, site, ok := workdayTenant(u.Path)
	if !ok {
		return nil, fmt.Errorf("workday board %q is not a /wday/cxs/{tenant}/{site}/jobs url", board)
	}

	searchText := q.Keywords
	if q.Location != "" {
		searchText += " " + q.Location
	}

	req := workdayRequest{
		AppliedFacets: map[string]interface{}{},
		Limit:         workdayPageSize,
		Offset:        (q.Page - 1) * workdayPageSize,
		SearchText:    strings.TrimSpace(searchText),
	}

	var resp workdayResponse
	if err := w.client.PostJSON(ctx, board, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("workday %s: %w", tenant, err)
	}

	siteBase := u.Scheme + "://" + u.Host + "/" + site
	jobs := make([]models.RawJob, 0, len(resp.JobPostings))
	for _, p := range resp.JobPostings {
		var id string
		if len(p.BulletFields) > 0 {
			id = p.BulletFields[0]
		}
		jobs = append(jobs, models.RawJob{
			Title:      p.Title,
			Company:    tenant,
			Location:   p.LocationsText,
			URL:        siteBase + p.ExternalPath,
			ExternalID: id,
			PostedDate: relativeDate(p.PostedOn),
			Source:     "workday",
			BaseURL:    siteBase,
		})
	}
	return jobs, nil
}

// workdayTenant extracts tenant and site from /wday/cxs/{tenant}/{site}/jobs
func workdayTenant(path string) (tenant, site string, ok bool) {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) < 5 || parts[0] != "wday" || parts[1] != "cxs" || parts[4] != "jobs" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
