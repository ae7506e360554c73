package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jobharvest/internal/config"
	"jobharvest/internal/logging"
	"jobharvest/internal/pipeline"
	"jobharvest/pkg/models"
)

// Task manager configuration constants
const (
	// Default configuration values
	DefaultMaxWorkers   = 1
	DefaultMaxQueueSize = 10

	// Maximum configuration values for safety
	MaxWorkers   = 16
	MaxQueueSize = 1000
)

// RunFunc executes one harvest run
type RunFunc func(ctx context.Context, req models.ScrapeRequest) (*pipeline.Result, error)

// Notifier is told about every finished task
type Notifier interface {
	NotifyCompletion(ctx context.Context, result *TaskResult) error
}

// TaskManager defines the interface for managing background tasks
type TaskManager interface {
	// Start starts the task manager
	Start(ctx context.Context) error

	// Stop stops the task manager gracefully, cancelling any running harvest
	Stop(ctx context.Context) error

	// SubmitHarvest queues a harvest run. Only one run may be queued or
	// running at a time; a second submission returns ErrRunInProgress.
	SubmitHarvest(ctx context.Context, processID string, taskType TaskType, request models.ScrapeRequest) error

	// Cancel stops a queued or running harvest
	Cancel(ctx context.Context, processID string) error

	// GetTaskResult retrieves the result of a task by process ID
	GetTaskResult(ctx context.Context, processID string) (*TaskResult, error)

	// GetTaskStatus retrieves the status of a task by process ID
	GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error)

	// ListTasks lists all known tasks, newest first
	ListTasks(ctx context.Context) ([]*TaskResult, error)

	// ActiveTask returns the process ID of the queued or running harvest, if any
	ActiveTask() string

	// IsHealthy checks if the task manager is healthy
	IsHealthy() bool
}

// TaskManagerImpl implements the TaskManager interface
type TaskManagerImpl struct {
	store     TaskStore
	logger    *TaskCompletionLogger
	appLogger logging.Logger
	run       RunFunc
	notifier  Notifier

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	taskChan chan *TaskExecution

	maxWorkers      int
	maxQueueSize    int
	taskTimeout     time.Duration
	cleanupInterval time.Duration
	maxTaskAge      time.Duration

	activeMu sync.Mutex
	active   map[string]context.CancelFunc
}

// TaskExecution represents a task execution context
type TaskExecution struct {
	ProcessID string
	Type      TaskType
	Request   models.ScrapeRequest
	Context   context.Context
	Cancel    context.CancelFunc
}

// Option configures a TaskManagerImpl
type Option func(*TaskManagerImpl)

// WithNotifier reports finished tasks to n
func WithNotifier(n Notifier) Option {
	return func(tm *TaskManagerImpl) { tm.notifier = n }
}

// WithStore replaces the in-memory task store
func WithStore(store TaskStore) Option {
	return func(tm *TaskManagerImpl) { tm.store = store }
}

// WithLogger sets the application logger
func WithLogger(logger logging.Logger) Option {
	return func(tm *TaskManagerImpl) { tm.appLogger = logger }
}

// validateTaskManagerConfig validates and returns safe configuration values
func validateTaskManagerConfig(cfg *config.Config) (maxWorkers, maxQueueSize int, err error) {
	maxWorkers = cfg.BackgroundTasks.Workers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	} else if maxWorkers > MaxWorkers {
		return 0, 0, fmt.Errorf("worker count (%d) exceeds maximum (%d)", maxWorkers, MaxWorkers)
	}

	maxQueueSize = cfg.BackgroundTasks.QueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	} else if maxQueueSize > MaxQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) exceeds maximum (%d)", maxQueueSize, MaxQueueSize)
	}

	return maxWorkers, maxQueueSize, nil
}

// NewTaskManager creates a new task manager that executes harvests with run
func NewTaskManager(cfg *config.Config, run RunFunc, opts ...Option) *TaskManagerImpl {
	tm := &TaskManagerImpl{
		store:           NewInMemoryTaskStore(),
		appLogger:       logging.GetGlobalLogger(),
		run:             run,
		taskTimeout:     cfg.BackgroundTasks.TaskTimeout,
		cleanupInterval: cfg.BackgroundTasks.CleanupInterval,
		maxTaskAge:      cfg.BackgroundTasks.MaxTaskAge,
		active:          make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(tm)
	}
	tm.logger = NewTaskCompletionLogger(tm.appLogger)

	maxWorkers, maxQueueSize, err := validateTaskManagerConfig(cfg)
	if err != nil {
		tm.appLogger.Warn("Task manager configuration validation failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		maxWorkers = DefaultMaxWorkers
		maxQueueSize = DefaultMaxQueueSize
	}
	if tm.cleanupInterval <= 0 {
		tm.cleanupInterval = time.Hour
	}
	if tm.maxTaskAge <= 0 {
		tm.maxTaskAge = 24 * time.Hour
	}

	tm.maxWorkers = maxWorkers
	tm.maxQueueSize = maxQueueSize

	tm.appLogger.Info("Task manager configuration initialized", map[string]interface{}{
		"max_workers":    maxWorkers,
		"max_queue_size": maxQueueSize,
		"task_timeout":   tm.taskTimeout.String(),
		"using_defaults": err != nil,
	})

	return tm
}

// Start starts the task manager
func (tm *TaskManagerImpl) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.taskChan = make(chan *TaskExecution, tm.maxQueueSize)
	tm.running = true

	for i := 0; i < tm.maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker(i)
	}

	tm.wg.Add(1)
	go tm.cleanupRoutine()

	tm.appLogger.Info("Task manager started", map[string]interface{}{
		"max_workers": tm.maxWorkers,
	})
	return nil
}

// Stop stops the task manager gracefully
func (tm *TaskManagerImpl) Stop(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.running {
		return nil
	}

	tm.appLogger.Info("Stopping task manager...", map[string]interface{}{})

	tm.cancel()
	close(tm.taskChan)

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.appLogger.Info("Task manager stopped gracefully", map[string]interface{}{})
	case <-ctx.Done():
		tm.appLogger.Warn("Task manager shutdown timed out", map[string]interface{}{})
	}

	tm.running = false
	return nil
}

// SubmitHarvest submits a harvest run for background processing
func (tm *TaskManagerImpl) SubmitHarvest(ctx context.Context, processID string, taskType TaskType, request models.ScrapeRequest) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if !tm.running || tm.ctx.Err() != nil {
		return ErrNotRunning
	}

	tm.activeMu.Lock()
	defer tm.activeMu.Unlock()

	if len(tm.active) > 0 {
		return ErrRunInProgress
	}

	result := &TaskResult{
		ProcessID: processID,
		Type:      taskType,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
		Metadata: map[string]interface{}{
			"keywords":  request.Keywords,
			"locations": request.Locations,
			"sources":   request.Sources,
			"max_pages": request.MaxPages,
		},
	}

	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	taskCtx, cancelFunc := context.WithCancel(tm.ctx)
	execution := &TaskExecution{
		ProcessID: processID,
		Type:      taskType,
		Request:   request,
		Context:   taskCtx,
		Cancel:    cancelFunc,
	}

	select {
	case tm.taskChan <- execution:
	default:
		cancelFunc()
		_ = tm.store.Delete(ctx, processID)
		return ErrQueueFull
	}

	tm.active[processID] = cancelFunc
	tm.logger.LogTaskAccepted(processID, taskType)
	return nil
}

// Cancel stops the harvest with processID. The task is marked CANCELLED once
// its worker observes the cancellation.
func (tm *TaskManagerImpl) Cancel(ctx context.Context, processID string) error {
	tm.activeMu.Lock()
	cancel, ok := tm.active[processID]
	tm.activeMu.Unlock()

	if ok {
		cancel()
		tm.appLogger.Info("Harvest cancellation requested", map[string]interface{}{
			"process_id": processID,
		})
		return nil
	}

	if _, err := tm.store.Get(ctx, processID); err != nil {
		return err
	}
	return ErrTaskCompleted
}

// GetTaskResult retrieves the result of a task by process ID
func (tm *TaskManagerImpl) GetTaskResult(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.store.Get(ctx, processID)
}

// GetTaskStatus retrieves the status of a task by process ID
func (tm *TaskManagerImpl) GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error) {
	result, err := tm.store.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// ListTasks lists all known tasks
func (tm *TaskManagerImpl) ListTasks(ctx context.Context) ([]*TaskResult, error) {
	return tm.store.List(ctx)
}

// ActiveTask returns the process ID of the queued or running harvest
func (tm *TaskManagerImpl) ActiveTask() string {
	tm.activeMu.Lock()
	defer tm.activeMu.Unlock()

	for id := range tm.active {
		return id
	}
	return ""
}

// IsHealthy checks if the task manager is healthy
func (tm *TaskManagerImpl) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

// worker processes tasks from the task channel
func (tm *TaskManagerImpl) worker(workerID int) {
	defer tm.wg.Done()

	for {
		select {
		case <-tm.ctx.Done():
			tm.drain()
			return
		case task, ok := <-tm.taskChan:
			if !ok {
				return
			}
			tm.processTask(workerID, task)
		}
	}
}

// drain marks queued tasks as cancelled during shutdown
func (tm *TaskManagerImpl) drain() {
	for task := range tm.taskChan {
		tm.processTask(-1, task)
	}
}

// processTask runs a single harvest and records its outcome
func (tm *TaskManagerImpl) processTask(workerID int, task *TaskExecution) {
	defer task.Cancel()

	result, err := tm.store.Get(context.Background(), task.ProcessID)
	if err != nil {
		tm.appLogger.Error("Failed to load task for processing", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
		tm.release(task.ProcessID)
		return
	}

	startTime := time.Now()
	result.StartedAt = &startTime

	if task.Context.Err() == nil {
		result.Status = TaskStatusProcessing
		if err := tm.store.Update(context.Background(), result); err != nil {
			tm.appLogger.Error("Failed to update task status to processing", map[string]interface{}{
				"error": err.Error(),
			})
		}
		tm.logger.LogTaskStart(task.ProcessID, task.Type)

		tm.appLogger.Info("Processing task", map[string]interface{}{
			"worker_id":  workerID,
			"process_id": task.ProcessID,
			"task_type":  task.Type,
		})

		runCtx := task.Context
		if tm.taskTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(task.Context, tm.taskTimeout)
			defer cancel()
		}

		res, runErr := tm.run(runCtx, task.Request)
		switch {
		case runErr == nil:
			result.Status = TaskStatusSuccess
			result.Data = NewHarvestTaskData(res)
		case task.Context.Err() != nil:
			result.Status = TaskStatusCancelled
			result.Error = "harvest cancelled"
		default:
			result.Status = TaskStatusFailure
			result.Error = runErr.Error()
		}
	} else {
		result.Status = TaskStatusCancelled
		result.Error = "harvest cancelled before start"
	}

	completedAt := time.Now()
	processingTime := completedAt.Sub(startTime)
	result.CompletedAt = &completedAt
	result.ProcessingTime = &processingTime

	if err := tm.store.Update(context.Background(), result); err != nil {
		tm.appLogger.Error("Failed to store task result", map[string]interface{}{
			"error": err.Error(),
		})
	}
	tm.release(task.ProcessID)

	switch result.Status {
	case TaskStatusSuccess:
		tm.logger.LogTaskSuccess(task.ProcessID, task.Type, processingTime)
	case TaskStatusFailure:
		tm.logger.LogTaskError(task.ProcessID, task.Type, errors.New(result.Error))
	}

	if err := tm.logger.LogTaskCompletion(result); err != nil {
		tm.appLogger.Error("Failed to log task completion", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if tm.notifier != nil {
		if err := tm.notifier.NotifyCompletion(context.Background(), result); err != nil {
			tm.appLogger.Warn("Failed to send completion notification", map[string]interface{}{
				"process_id": task.ProcessID,
				"error":      err.Error(),
			})
		}
	}
}

func (tm *TaskManagerImpl) release(processID string) {
	tm.activeMu.Lock()
	delete(tm.active, processID)
	tm.activeMu.Unlock()
}

// cleanupRoutine periodically removes old finished task results
func (tm *TaskManagerImpl) cleanupRoutine() {
	defer tm.wg.Done()

	ticker := time.NewTicker(tm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			if err := tm.store.Cleanup(context.Background(), tm.maxTaskAge); err != nil {
				tm.appLogger.Error("Failed to cleanup old task results", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
