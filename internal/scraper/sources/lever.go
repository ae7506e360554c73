package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// Lever reads the public postings API of companies hosted on Lever
type Lever struct {
	base   string
	set    boardSet
	client *fetch.Client
}

type leverPosting struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	DescriptionPlain string `json:"descriptionPlain"`
	HostedURL        string `json:"hostedUrl"`
	CreatedAt        int64  `json:"createdAt"`
	WorkplaceType    string `json:"workplaceType"`
	Categories       struct {
		Location   string `json:"location"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
}

// NewLever creates the Lever source for boards
func NewLever(base string, boards []string, client *fetch.Client, logger logging.Logger) *Lever {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Lever{
		base:   strings.TrimRight(withDefault(base, "https://api.lever.co"), "/"),
		set:    boardSet{source: "lever", boards: boards, logger: logger},
		client: client,
	}
}

func (l *Lever) Catalog() bool { return true }

func (l *Lever) Name() string    { return "lever" }
func (l *Lever) BaseURL() string { return l.base }

func (l *Lever) Search(ctx context.Context, q models.Query) ([]models.RawJob, error) {
	if q.Page > 1 {
		return nil, nil
	}
	return l.set.each(ctx, l.board)
}

func (l *Lever) board(ctx context.Context, board string) ([]models.RawJob, error) {
	token, err := extractBoardToken(board, "jobs.lever.co", 0)
	if err != nil {
		return nil, err
	}

	var postings []leverPosting
	endpoint := fmt.Sprintf("%s/v0/postings/%s?mode=json", l.base, token)
	if err := l.client.GetJSON(ctx, endpoint, nil, &postings); err != nil {
		return nil, fmt.Errorf("lever %s: %w", token, err)
	}

	jobs := make([]models.RawJob, 0, len(postings))
	for _, p := range postings {
		job := models.RawJob{
			Title:       p.Text,
			Company:     token,
			Location:    p.Categories.Location,
			Description: p.DescriptionPlain,
			URL:         p.HostedURL,
			ExternalID:  p.ID,
			JobType:     p.Categories.Commitment,
			Remote:      strings.EqualFold(p.WorkplaceType, "remote"),
			Source:      "lever",
			BaseURL:     l.base,
		}
		if p.CreatedAt > 0 {
			t := time.UnixMilli(p.CreatedAt).UTC()
			job.PostedDate = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
