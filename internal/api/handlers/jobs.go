package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"jobharvest/internal/api/middleware"
	"jobharvest/internal/filter"
	"jobharvest/internal/report"
	"jobharvest/pkg/models"
	"jobharvest/pkg/utils"

	"github.com/labstack/echo/v4"
)

// DefaultJobsLimit applies when the jobs endpoint is called without a limit
const DefaultJobsLimit = 50

// JobStore is the read side of the job document store filled by harvest runs
type JobStore interface {
	Documents() []models.JobDocument
	LastUpdated() time.Time
}

// JobsHandler lists stored jobs, most recently updated first
func JobsHandler(store JobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var q models.JobsQuery
		if err := c.Bind(&q); err != nil {
			return utils.NewBadRequestError("Invalid query parameters")
		}
		if err := validate.Struct(&q); err != nil {
			return utils.NewValidationError(err.Error())
		}
		if q.Limit == 0 {
			q.Limit = DefaultJobsLimit
		}

		docs := store.Documents()
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].LastUpdated.After(docs[j].LastUpdated)
		})

		records := make([]models.JobRecord, 0, len(docs))
		for _, d := range docs {
			if q.Source != "" && !strings.EqualFold(d.Source, q.Source) {
				continue
			}
			records = append(records, d.JobRecord)
		}

		criteria := filter.Criteria{MinSalary: q.MinSalary}
		if q.Location != "" {
			criteria.Locations = []string{q.Location}
		}
		records = filter.Apply(criteria, records)

		total := len(records)
		if len(records) > q.Limit {
			records = records[:q.Limit]
		}

		return c.JSON(http.StatusOK, models.JobsResponse{
			Jobs:      records,
			Count:     len(records),
			Total:     total,
			RequestID: middleware.RequestID(c),
		})
	}
}

// StatsHandler summarizes the stored job set
func StatsHandler(store JobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		docs := store.Documents()
		records := make([]models.JobRecord, len(docs))
		for i, d := range docs {
			records[i] = d.JobRecord
		}

		resp := models.StatsResponse{
			Summary:   report.Summarize(records),
			RequestID: middleware.RequestID(c),
		}
		if last := store.LastUpdated(); !last.IsZero() {
			resp.LastScrape = &last
		}

		return c.JSON(http.StatusOK, resp)
	}
}
