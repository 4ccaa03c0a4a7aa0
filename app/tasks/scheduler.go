package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-curator/app/database"
)

const suggestBatchSize = 20

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Options struct {
	Interval      time.Duration
	WorkerCount   int
	RetentionDays int
	AutoSuggest   bool
}

type Scheduler struct {
	runner        CycleRunner
	items         ItemStore
	suggester     Suggester
	interval      time.Duration
	workerCount   int
	retentionDays int
	autoSuggest   bool
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface
}

func NewScheduler(runner CycleRunner, items ItemStore, suggester Suggester, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:        runner,
		items:         items,
		suggester:     suggester,
		interval:      opts.Interval,
		workerCount:   max(opts.WorkerCount, 1),
		retentionDays: opts.RetentionDays,
		autoSuggest:   opts.AutoSuggest && suggester != nil && suggester.Configured(),
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

	slog.Info("Scheduler started", "workers", s.workerCount, "interval", s.interval.String(), "auto_suggest", s.autoSuggest)
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	if err := s.EnqueueTask(NewIngestCycleTask(s.runner)); err != nil {
		slog.Warn("Failed to enqueue IngestCycleTask", "error", err)
	}

	if err := s.EnqueueTask(NewPurgeItemsTask(s.items, s.retentionDays)); err != nil {
		slog.Warn("Failed to enqueue PurgeItemsTask", "error", err)
	}

	if s.autoSuggest {
		s.enqueueSuggestTasks()
	}
}

func (s *Scheduler) enqueueSuggestTasks() {
	pending := false
	items, err := s.items.List(s.ctx, database.ItemFilter{Approved: &pending, WithoutSuggest: true, Limit: suggestBatchSize})
	if err != nil {
		slog.Warn("Failed to list items awaiting suggestions", "error", err)
		return
	}

	if len(items) == 0 {
		slog.Debug("No items awaiting suggestions")
		return
	}

	for _, item := range items {
		if err := s.EnqueueTask(NewSuggestTask(item.ID, s.items, s.suggester)); err != nil {
			slog.Warn("Failed to enqueue SuggestTask", "item_id", item.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := min(task.RetryDelay(), 30*time.Second)

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				select {
				case <-time.After(retryDelay):
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				}
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
