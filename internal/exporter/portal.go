package exporter

import (
	"context"
	"fmt"
	"strings"

	"jobharvest/internal/logging"
	"jobharvest/internal/scraper/fetch"
	"jobharvest/pkg/models"
)

// defaultBatchSize is the number of records per portal request
const defaultBatchSize = 50

// PortalSink posts records in batches to a job portal's bulk create endpoint
type PortalSink struct {
	url       string
	apiKey    string
	batchSize int
	client    *fetch.Client
	logger    logging.Logger
}

type portalResponse struct {
	Data struct {
		Inserted int `json:"inserted"`
		Updated  int `json:"updated"`
	} `json:"data"`
}

// NewPortalSink creates a sink posting to {baseURL}/api/jobs/create
func NewPortalSink(baseURL, apiKey string, batchSize int, client *fetch.Client, logger logging.Logger) (*PortalSink, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: portal requires url and admin api key", ErrSinkConfig)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PortalSink{
		url:       strings.TrimRight(baseURL, "/") + "/api/jobs/create",
		apiKey:    apiKey,
		batchSize: batchSize,
		client:    client,
		logger:    logger,
	}, nil
}

func (p *PortalSink) Name() string { return "portal" }

func (p *PortalSink) Export(ctx context.Context, records []models.JobRecord) error {
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	for start := 0; start < len(records); start += p.batchSize {
		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := start/p.batchSize + 1

		var resp portalResponse
		if err := p.client.PostJSON(ctx, p.url, headers, records[start:end], &resp); err != nil {
			return fmt.Errorf("%w: batch %d: %v", ErrUpsert, batch, err)
		}

		p.logger.Info("Portal batch posted", map[string]interface{}{
			"batch":    batch,
			"records":  end - start,
			"inserted": resp.Data.Inserted,
			"updated":  resp.Data.Updated,
		})
	}
	return nil
}
