package exporter

import (
	"context"
	"errors"
	"time"

	"jobharvest/internal/logging"
	"jobharvest/pkg/models"
)

// Sentinel errors to allow precise mapping in handlers
var (
	ErrSinkConfig = errors.New("sink_configuration")
	ErrWrite      = errors.New("write_failed")
	ErrUpsert     = errors.New("upsert_failed")
)

// Sink writes the final record set to one destination. Sinks create their
// target directory, table or collection before writing.
type Sink interface {
	Name() string
	Export(ctx context.Context, records []models.JobRecord) error
}

// Result is the outcome of one sink
type Result struct {
	Sink     string        `json:"sink"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ExportAll runs every sink in order. A failing sink is logged and reported
// but does not stop the others.
func ExportAll(ctx context.Context, sinks []Sink, records []models.JobRecord, logger logging.Logger) []Result {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	results := make([]Result, 0, len(sinks))
	for _, sink := range sinks {
		start := time.Now()
		err := sink.Export(ctx, records)

		res := Result{Sink: sink.Name(), Records: len(records), Duration: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
			logger.Error("Export failed", map[string]interface{}{
				"sink":  sink.Name(),
				"error": err.Error(),
			})
		} else {
			logger.Info("Export completed", map[string]interface{}{
				"sink":     sink.Name(),
				"records":  len(records),
				"duration": res.Duration.String(),
			})
		}
		results = append(results, res)
	}
	return results
}
