// Package pipeline runs sources, normalizes and deduplicates their listings,
// and exports the final set.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"jobharvest/internal/dedup"
	"jobharvest/internal/exporter"
	"jobharvest/internal/filter"
	"jobharvest/internal/logging"
	"jobharvest/internal/normalizer"
	"jobharvest/internal/report"
	"jobharvest/internal/scraper"
	"jobharvest/pkg/models"
)

// DefaultMaxPages applies when a request leaves MaxPages unset
const DefaultMaxPages = 3

// Request describes one harvest run
type Request struct {
	Keywords  []string        `json:"keywords"`
	Locations []string        `json:"locations,omitempty"`
	MaxPages  int             `json:"max_pages"`
	Filter    filter.Criteria `json:"filter"`
}

// SourceResult reports what one source contributed
type SourceResult struct {
	Name     string        `json:"name"`
	Pages    int           `json:"pages"`
	Raw      int           `json:"raw"`
	Rejected int           `json:"rejected"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Result is the outcome of a run
type Result struct {
	Records     []models.JobRecord `json:"records"`
	Sources     []SourceResult     `json:"sources"`
	Duplicates  int                `json:"duplicates"`
	Filtered    int                `json:"filtered"`
	SeenBefore  int                `json:"seen_before"`
	Exports     []exporter.Result  `json:"exports"`
	Summary     report.Summary     `json:"summary"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
}

// FailedSources returns the number of sources that returned an error
func (r *Result) FailedSources() int {
	n := 0
	for _, s := range r.Sources {
		if s.Error != "" {
			n++
		}
	}
	return n
}

// Runner executes runs over a fixed set of sources and sinks
type Runner struct {
	sources     []scraper.Source
	normalizer  *normalizer.Normalizer
	seen        dedup.Seen
	sinks       []exporter.Sink
	logger      logging.Logger
	parallel    bool
	maxParallel int
	now         func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithSinks sets the export destinations
func WithSinks(sinks ...exporter.Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithSeen enables cross-run filtering against seen
func WithSeen(seen dedup.Seen) Option {
	return func(r *Runner) { r.seen = seen }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithNormalizer replaces the default normalizer
func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(r *Runner) { r.normalizer = n }
}

// WithParallel fetches up to limit sources concurrently
func WithParallel(limit int) Option {
	return func(r *Runner) {
		r.parallel = true
		r.maxParallel = limit
	}
}

// New creates a runner. Sources run, and win ties, in the given order.
func New(sources []scraper.Source, opts ...Option) *Runner {
	r := &Runner{
		sources:     sources,
		normalizer:  normalizer.New(),
		logger:      logging.NewNopLogger(),
		maxParallel: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxParallel < 1 {
		r.maxParallel = 1
	}
	return r
}

// sourceOutput is the normalized contribution of one source
type sourceOutput struct {
	result  SourceResult
	records []models.JobRecord
}

// Run harvests every source, then deduplicates, filters and exports. A source
// that fails part way keeps the pages it fetched; a failing sink is reported in
// the result. Records are only marked seen once a sink has accepted them. Run
// only returns an error when ctx is cancelled before export.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.MaxPages <= 0 {
		req.MaxPages = DefaultMaxPages
	}

	result := &Result{StartedAt: r.now().UTC()}
	r.logger.Info("Harvest started", map[string]interface{}{
		"sources":   len(r.sources),
		"keywords":  req.Keywords,
		"locations": req.Locations,
		"max_pages": req.MaxPages,
		"parallel":  r.parallel,
	})

	outputs := r.harvest(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []models.JobRecord
	for _, out := range outputs {
		result.Sources = append(result.Sources, out.result)
		merged = append(merged, out.records...)
	}

	unique := dedup.Dedup(merged)
	result.Duplicates = len(merged) - len(unique)

	records := filter.Apply(req.Filter, unique)
	result.Filtered = len(unique) - len(records)

	if r.seen != nil {
		fresh, err := dedup.FilterSeen(ctx, r.seen, records)
		if err != nil {
			r.logger.Warn("Seen store failed, keeping unchecked records", map[string]interface{}{
				"error": err.Error(),
			})
		}
		result.SeenBefore = len(records) - len(fresh)
		records = fresh
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Records = records
	result.Exports = exporter.ExportAll(ctx, r.sinks, records, r.logger)

	if r.seen != nil && delivered(result.Exports) {
		if err := dedup.MarkSeen(ctx, r.seen, records); err != nil {
			r.logger.Warn("Failed to mark records as seen", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	result.Summary = report.Summarize(records)
	result.CompletedAt = r.now().UTC()

	r.logger.Info("Harvest completed", map[string]interface{}{
		"records":        len(records),
		"duplicates":     result.Duplicates,
		"filtered":       result.Filtered,
		"seen_before":    result.SeenBefore,
		"failed_sources": result.FailedSources(),
		"duration":       result.CompletedAt.Sub(result.StartedAt).String(),
	})

	return result, nil
}

// harvest runs every source and returns outputs in source order
func (r *Runner) harvest(ctx context.Context, req Request) []sourceOutput {
	outputs := make([]sourceOutput, len(r.sources))

	if !r.parallel || len(r.sources) < 2 {
		for i, src := range r.sources {
			if ctx.Err() != nil {
				break
			}
			outputs[i] = r.runSource(ctx, src, req)
		}
		return outputs
	}

	var g errgroup.Group
	g.SetLimit(r.maxParallel)
	for i, src := range r.sources {
		i, src := i, src
		g.Go(func() error {
			outputs[i] = r.runSource(ctx, src, req)
			return nil
		})
	}
	_ = g.Wait()
	return outputs
}

// runSource pages through every query for src and normalizes the listings
func (r *Runner) runSource(ctx context.Context, src scraper.Source, req Request) sourceOutput {
	start := time.Now()
	logger := r.logger.WithField("source", src.Name())
	res := SourceResult{Name: src.Name()}

	raw, pages, err := r.collect(ctx, src, req)
	res.Pages = pages
	res.Duration = time.Since(start)

	if ctx.Err() != nil {
		res.Error = ctx.Err().Error()
		return sourceOutput{result: res}
	}
	if err != nil {
		res.Error = err.Error()
		logger.Error("Source failed", map[string]interface{}{
			"error": err.Error(),
			"pages": pages,
			"raw":   len(raw),
		})
	}

	res.Raw = len(raw)
	records, rejected := r.normalizer.NormalizeAll(raw)
	res.Rejected = rejected

	if scraper.IsCatalog(src) {
		records = filter.Apply(filter.Criteria{Keywords: req.Keywords, Locations: req.Locations}, records)
	}
	res.Records = len(records)

	logger.Info("Source completed", map[string]interface{}{
		"pages":    pages,
		"raw":      res.Raw,
		"rejected": rejected,
		"records":  res.Records,
		"duration": res.Duration.String(),
	})

	return sourceOutput{result: res, records: records}
}

// collect pages through every query. A page error ends that query but keeps
// the listings already fetched; the remaining queries still run. The returned
// error joins every page error.
func (r *Runner) collect(ctx context.Context, src scraper.Source, req Request) ([]models.RawJob, int, error) {
	var (
		raw   []models.RawJob
		pages int
		errs  []error
	)

	queries := Queries(req)
	if scraper.IsCatalog(src) {
		// catalogs ignore the search terms, so one pass covers every location
		queries = queries[:1]
	}

	for _, q := range queries {
		for page := 1; page <= req.MaxPages; page++ {
			if err := ctx.Err(); err != nil {
				return raw, pages, err
			}

			q.Page = page
			jobs, err := src.Search(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return raw, pages, ctx.Err()
				}
				r.logger.Warn("Page failed", map[string]interface{}{
					"source":   src.Name(),
					"location": q.Location,
					"page":     page,
					"error":    err.Error(),
				})
				errs = append(errs, err)
				break
			}
			if len(jobs) == 0 {
				break
			}

			pages++
			raw = append(raw, jobs...)
		}
	}

	return raw, pages, errors.Join(errs...)
}

// delivered reports whether at least one sink accepted the export. A run with
// no sinks counts as delivered.
func delivered(exports []exporter.Result) bool {
	if len(exports) == 0 {
		return true
	}
	for _, e := range exports {
		if e.Error == "" {
			return true
		}
	}
	return false
}

// Queries expands a request into one query per location. Keywords are sent
// together as one search string.
func Queries(req Request) []models.Query {
	keywords := strings.Join(nonBlank(req.Keywords), " ")

	locations := nonBlank(req.Locations)
	if len(locations) == 0 {
		return []models.Query{{Keywords: keywords}}
	}

	queries := make([]models.Query, 0, len(locations))
	for _, loc := range locations {
		queries = append(queries, models.Query{Keywords: keywords, Location: loc})
	}
	return queries
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
