package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-curator/app/database"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background work.
// Example usage:
//
//	scheduler := NewScheduler(orchestrator, itemRepo, suggester, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewSuggestTask(itemID, itemRepo, suggester))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type CycleRunner interface {
	RunCycle(ctx context.Context) (int, error)
}

type ItemStore interface {
	Get(ctx context.Context, id int64) (*database.Item, error)
	List(ctx context.Context, filter database.ItemFilter) ([]database.Item, error)
	SetAISuggestion(ctx context.Context, id int64, suggestion string) (bool, error)
	PurgeApproved(ctx context.Context, before time.Time) (int64, error)
}

type Suggester interface {
	Suggest(ctx context.Context, title, summary string) (string, error)
	Configured() bool
}
