package sources

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// Greenhouse reads the public job board API of companies hosted on Greenhouse
type Greenhouse struct {
	base   string
	set    boardSet
	client *fetch.Client
}

type greenhouseResponse struct {
	Jobs []struct {
		ID          int64  `json:"id"`
		Title       string `json:"title"`
		AbsoluteURL string `json:"absolute_url"`
		UpdatedAt   string `json:"updated_at"`
		Content     string `json:"content"`
		Location    struct {
			Name string `json:"name"`
		} `json:"location"`
	} `json:"jobs"`
}

// NewGreenhouse creates the Greenhouse source for boards
func NewGreenhouse(base string, boards []string, client *fetch.Client, logger logging.Logger) *Greenhouse {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Greenhouse{
		base:   strings.TrimRight(withDefault(base, "https://boards-api.greenhouse.io"), "/"),
		set:    boardSet{source: "greenhouse", boards: boards, logger: logger},
		client: client,
	}
}

func (g *Greenhouse) Catalog() bool { return true }

func (g *Greenhouse) Name() string    { return "greenhouse" }
func (g *Greenhouse) BaseURL() string { return g.base }

// Search lists every open job on every board. Boards are not paginated.
func (g *Greenhouse) Search(ctx context.Context, q models.Query) ([]models.RawJob, error) {
	if q.Page > 1 {
		return nil, nil
	}
	return g.set.each(ctx, g.board)
}

func (g *Greenhouse) board(ctx context.Context, board string) ([]models.RawJob, error) {
	token, err := extractBoardToken(board, "greenhouse.io", -1)
	if err != nil {
		return nil, err
	}

	var resp greenhouseResponse
	endpoint := fmt.Sprintf("%s/v1/boards/%s/jobs?content=true", g.base, token)
	if err := g.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("greenhouse %s: %w", token, err)
	}

	jobs := make([]models.RawJob, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		jobs = append(jobs, models.RawJob{
			Title:       j.Title,
			Company:     token,
			Location:    j.Location.Name,
			Description: html.UnescapeString(j.Content),
			URL:         j.AbsoluteURL,
			ExternalID:  strconv.FormatInt(j.ID, 10),
			PostedDate:  parseDate(j.UpdatedAt, time.RFC3339),
			Source:      "greenhouse",
			BaseURL:     g.base,
		})
	}
	return jobs, nil
}
