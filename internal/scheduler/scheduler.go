// Package scheduler submits the configured default harvest on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"jobharvest/internal/background"
	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/pkg/models"
)

// DefaultInterval applies when the schedule section leaves the interval unset
const DefaultInterval = 6 * time.Hour

// Submitter queues harvest runs
type Submitter interface {
	SubmitHarvest(ctx context.Context, processID string, taskType background.TaskType, request models.ScrapeRequest) error
}

// Scheduler wraps robfig/cron and triggers scheduled harvests
type Scheduler struct {
	cron       *cron.Cron
	tasks      Submitter
	request    models.ScrapeRequest
	schedule   string
	runOnStart bool
	logger     logging.Logger
	newID      func() string
}

// New creates a Scheduler for the schedule section of cfg
func New(cfg *config.Config, tasks Submitter, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	interval := cfg.Schedule.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cronLogger{logger})),
		tasks:      tasks,
		request:    DefaultRequest(cfg),
		schedule:   "@every " + interval.String(),
		runOnStart: cfg.Schedule.RunOnStart,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// DefaultRequest is the scheduled request: every enabled source with the
// search section's keywords, locations and filters
func DefaultRequest(cfg *config.Config) models.ScrapeRequest {
	return models.ScrapeRequest{
		Keywords:   cfg.Search.Keywords,
		Locations:  cfg.Search.Locations,
		MaxPages:   cfg.Scraper.MaxPages,
		RemoteOnly: cfg.Search.RemoteOnly,
		MinSalary:  cfg.Search.MinSalary,
		Parallel:   cfg.Scraper.Parallel,
	}
}

// Start registers the job and starts the cron loop. When run_on_start is set
// one harvest is submitted immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Trigger(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", map[string]interface{}{
		"schedule":     s.schedule,
		"run_on_start": s.runOnStart,
	})

	if s.runOnStart {
		s.Trigger(ctx)
	}
	return nil
}

// Stop stops the cron loop and returns a context that is done once any
// running trigger has returned
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Scheduler stopped", map[string]interface{}{})
	return s.cron.Stop()
}

// Trigger submits one scheduled harvest. A run that is already active is
// left alone and the tick is skipped.
func (s *Scheduler) Trigger(ctx context.Context) string {
	processID := s.newID()

	err := s.tasks.SubmitHarvest(ctx, processID, background.TaskTypeScheduled, s.request)
	switch {
	case err == nil:
		s.logger.Info("Scheduled harvest submitted", map[string]interface{}{
			"process_id": processID,
		})
		return processID
	case errors.Is(err, background.ErrRunInProgress):
		s.logger.Info("Scheduled harvest skipped, a run is already active", map[string]interface{}{})
	default:
		s.logger.Error("Failed to submit scheduled harvest", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return ""
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	f := fields(keysAndValues)
	f["error"] = err.Error()
	l.logger.Error("cron: "+msg, f)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
