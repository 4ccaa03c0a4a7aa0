package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeIngestCycle TaskType = "ingest_cycle"
	TaskTypePurgeItems  TaskType = "purge_items"
	TaskTypeSuggest     TaskType = "suggest"
)

// DefaultMaxRetries bounds how often the scheduler re-enqueues a failing task.
const DefaultMaxRetries = 3

// TaskInterface is what a scheduler worker runs. Execute does the work; the
// rest is retry and timing bookkeeping, normally provided by embedding Task.
type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSubject() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	RetryDelay() time.Duration
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by all task types. Subject names what
// the task works on, e.g. "all feeds" or an item ID, for logging.
type Task struct {
	ID         string
	Type       TaskType
	Subject    string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func NewTask(taskType TaskType, subject string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Subject:    subject,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) GetID() string { return t.ID }
func (t *Task) GetType() TaskType { return t.Type }
func (t *Task) GetSubject() string { return t.Subject }
func (t *Task) GetRetryCount() int { return t.RetryCount }
func (t *Task) GetMaxRetries() int { return t.MaxRetries }
func (t *Task) IncrementRetryCount() { t.RetryCount++ }

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// RetryDelay doubles with each retry, starting at one second.
func (t *Task) RetryDelay() time.Duration {
	if t.RetryCount <= 0 {
		return 0
	}
	return time.Second << uint(t.RetryCount-1)
}

// Start marks the beginning of an execution attempt. Retries restart the clock.
func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}
