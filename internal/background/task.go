package background

import (
	"context"
	"sort"
	"sync"
	"time"

	"jobharvest/internal/exporter"
	"jobharvest/internal/pipeline"
	"jobharvest/internal/report"
)

// TaskStatus represents the status of a background task
type TaskStatus string

const (
	TaskStatusAccepted   TaskStatus = "ACCEPTED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusSuccess    TaskStatus = "SUCCESS"
	TaskStatusFailure    TaskStatus = "FAILURE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// Terminal reports whether the status is final
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure || s == TaskStatusCancelled
}

// TaskType represents the type of background task
type TaskType string

const (
	TaskTypeHarvest   TaskType = "harvest"
	TaskTypeScheduled TaskType = "scheduled_harvest"
)

// TaskResult represents the result of a background task
type TaskResult struct {
	ProcessID      string                 `json:"processId"`
	Type           TaskType               `json:"type"`
	Status         TaskStatus             `json:"status"`
	Data           *HarvestTaskData       `json:"data,omitempty"`
	Error          string                 `json:"error,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	StartedAt      *time.Time             `json:"startedAt,omitempty"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	ProcessingTime *time.Duration         `json:"processingTime,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// HarvestTaskData is the outcome of a harvest run without the records themselves
type HarvestTaskData struct {
	Records    int                     `json:"records"`
	Duplicates int                     `json:"duplicates"`
	Filtered   int                     `json:"filtered"`
	SeenBefore int                     `json:"seenBefore"`
	Sources    []pipeline.SourceResult `json:"sources"`
	Exports    []exporter.Result       `json:"exports"`
	Summary    report.Summary          `json:"summary"`
}

// NewHarvestTaskData condenses a pipeline result
func NewHarvestTaskData(res *pipeline.Result) *HarvestTaskData {
	return &HarvestTaskData{
		Records:    len(res.Records),
		Duplicates: res.Duplicates,
		Filtered:   res.Filtered,
		SeenBefore: res.SeenBefore,
		Sources:    res.Sources,
		Exports:    res.Exports,
		Summary:    res.Summary,
	}
}

// TaskStore defines the interface for storing and retrieving task results
type TaskStore interface {
	// Store stores a task result
	Store(ctx context.Context, result *TaskResult) error

	// Get retrieves a copy of a task result by process ID
	Get(ctx context.Context, processID string) (*TaskResult, error)

	// Update replaces an existing task result
	Update(ctx context.Context, result *TaskResult) error

	// Delete removes a task result
	Delete(ctx context.Context, processID string) error

	// Cleanup removes finished task results older than maxAge
	Cleanup(ctx context.Context, maxAge time.Duration) error

	// List returns all task results, newest first
	List(ctx context.Context) ([]*TaskResult, error)
}

// InMemoryTaskStore implements TaskStore using in-memory storage
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*TaskResult
	now   func() time.Time
}

// NewInMemoryTaskStore creates a new in-memory task store
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*TaskResult),
		now:   time.Now,
	}
}

func (s *InMemoryTaskStore) Store(ctx context.Context, result *TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *result
	s.tasks[result.ProcessID] = &copied
	return nil
}

func (s *InMemoryTaskStore) Get(ctx context.Context, processID string) (*TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, exists := s.tasks[processID]
	if !exists {
		return nil, ErrTaskNotFound
	}

	copied := *result
	return &copied, nil
}

func (s *InMemoryTaskStore) Update(ctx context.Context, result *TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[result.ProcessID]; !exists {
		return ErrTaskNotFound
	}

	copied := *result
	s.tasks[result.ProcessID] = &copied
	return nil
}

func (s *InMemoryTaskStore) Delete(ctx context.Context, processID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[processID]; !exists {
		return ErrTaskNotFound
	}

	delete(s.tasks, processID)
	return nil
}

// Cleanup never removes a task that is still queued or running
func (s *InMemoryTaskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)

	for processID, result := range s.tasks {
		if result.Status.Terminal() && result.CreatedAt.Before(cutoff) {
			delete(s.tasks, processID)
		}
	}

	return nil
}

func (s *InMemoryTaskStore) List(ctx context.Context) ([]*TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*TaskResult, 0, len(s.tasks))
	for _, result := range s.tasks {
		copied := *result
		results = append(results, &copied)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	return results, nil
}

// Common errors
var (
	ErrTaskNotFound  = NewTaskError("task not found", "TASK_NOT_FOUND")
	ErrRunInProgress = NewTaskError("a harvest run is already in progress", "RUN_IN_PROGRESS")
	ErrQueueFull     = NewTaskError("task queue is full", "QUEUE_FULL")
	ErrNotRunning    = NewTaskError("task manager is not running", "NOT_RUNNING")
	ErrTaskCompleted = NewTaskError("task has already completed", "TASK_COMPLETED")
)

// TaskError represents a background task error
type TaskError struct {
	Message string
	Code    string
}

func NewTaskError(message, code string) *TaskError {
	return &TaskError{
		Message: message,
		Code:    code,
	}
}

func (e *TaskError) Error() string {
	return e.Message
}
