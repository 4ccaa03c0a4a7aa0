package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-curator/app/database"
)

type fakeRunner struct {
	calls    atomic.Int32
	failures int32
}

func (r *fakeRunner) RunCycle(context.Context) (int, error) {
	n := r.calls.Add(1)
	if n <= r.failures {
		return 0, errors.New("storage unavailable")
	}
	return 2, nil
}

type fakeItems struct {
	mu          sync.Mutex
	items       map[int64]*database.Item
	purgeBefore time.Time
	purged      int64
}

func newFakeItems(items ...database.Item) *fakeItems {
	f := &fakeItems{items: make(map[int64]*database.Item)}
	for i := range items {
		item := items[i]
		f.items[item.ID] = &item
	}
	return f
}

func (f *fakeItems) Get(_ context.Context, id int64) (*database.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeItems) List(_ context.Context, filter database.ItemFilter) ([]database.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.Item
	for _, item := range f.items {
		if filter.WithoutSuggest && item.AISuggestion != nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (f *fakeItems) SetAISuggestion(_ context.Context, id int64, suggestion string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return false, nil
	}
	item.AISuggestion = &suggestion
	return true, nil
}

func (f *fakeItems) PurgeApproved(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgeBefore = before
	return f.purged, nil
}

func (f *fakeItems) suggestion(id int64) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].AISuggestion
}

type fakeSuggester struct {
	configured bool
	err        error
	calls      atomic.Int32
}

func (s *fakeSuggester) Suggest(_ context.Context, title, _ string) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return title, s.err
	}
	return "suggested: " + title, nil
}

func (s *fakeSuggester) Configured() bool { return s.configured }

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeIngestCycle, "all feeds")

	if _, err := uuid.Parse(task.ID); err != nil {
		t.Errorf("Expected UUID task ID, got %s", task.ID)
	}
	if task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected %d max retries, got %d", DefaultMaxRetries, task.MaxRetries)
	}
	if task.GetDuration() != 0 {
		t.Errorf("Expected zero duration before start, got %s", task.GetDuration())
	}

	if task.RetryDelay() != 0 {
		t.Errorf("Expected no retry delay before the first retry, got %s", task.RetryDelay())
	}

	delays := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected task to be retryable after %d retries", i)
		}
		task.IncrementRetryCount()
		if task.RetryDelay() != delays[i] {
			t.Errorf("Expected retry delay %s after %d retries, got %s", delays[i], i+1, task.RetryDelay())
		}
	}
	if task.CanRetry() {
		t.Error("Expected task not to be retryable after max retries")
	}
}

func TestIngestCycleTask(t *testing.T) {
	runner := &fakeRunner{}
	task := NewIngestCycleTask(runner)

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, int32(1), runner.calls.Load())

	failing := NewIngestCycleTask(&fakeRunner{failures: 1})
	assert.Error(t, failing.Execute(context.Background()))
}

func TestIngestCycleTaskCancelled(t *testing.T) {
	runner := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewIngestCycleTask(runner).Execute(ctx), context.Canceled)
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestPurgeItemsTask(t *testing.T) {
	items := newFakeItems()
	items.purged = 4

	require.NoError(t, NewPurgeItemsTask(items, 30).Execute(context.Background()))

	expected := time.Now().AddDate(0, 0, -30)
	assert.WithinDuration(t, expected, items.purgeBefore, time.Minute)
}

func TestPurgeItemsTaskDisabled(t *testing.T) {
	items := newFakeItems()

	require.NoError(t, NewPurgeItemsTask(items, 0).Execute(context.Background()))
	assert.True(t, items.purgeBefore.IsZero())
}

func TestSuggestTask(t *testing.T) {
	ctx := context.Background()
	existing := "already here"
	items := newFakeItems(
		database.Item{ID: 1, Title: "Fresh"},
		database.Item{ID: 2, Title: "Done", AISuggestion: &existing},
	)
	suggester := &fakeSuggester{configured: true}

	require.NoError(t, NewSuggestTask(1, items, suggester).Execute(ctx))
	require.NotNil(t, items.suggestion(1))
	assert.Equal(t, "suggested: Fresh", *items.suggestion(1))

	require.NoError(t, NewSuggestTask(2, items, suggester).Execute(ctx))
	assert.Equal(t, "already here", *items.suggestion(2))

	require.NoError(t, NewSuggestTask(99, items, suggester).Execute(ctx))
	assert.Equal(t, int32(1), suggester.calls.Load())
}

func TestSuggestTaskErrorStoresNothing(t *testing.T) {
	items := newFakeItems(database.Item{ID: 1, Title: "Fresh"})
	suggester := &fakeSuggester{configured: true, err: errors.New("rate limited")}

	assert.Error(t, NewSuggestTask(1, items, suggester).Execute(context.Background()))
	assert.Nil(t, items.suggestion(1))
}

func TestSchedulerRunsCycleOnStart(t *testing.T) {
	runner := &fakeRunner{}
	scheduler := NewScheduler(runner, newFakeItems(), &fakeSuggester{}, Options{
		Interval:      time.Hour,
		WorkerCount:   2,
		RetentionDays: 30,
	})

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	runner := &fakeRunner{failures: 1}
	scheduler := NewScheduler(runner, newFakeItems(), nil, Options{Interval: time.Hour, WorkerCount: 1})

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool { return runner.calls.Load() == 2 }, 5*time.Second, 20*time.Millisecond)
}

func TestSchedulerAutoSuggest(t *testing.T) {
	items := newFakeItems(
		database.Item{ID: 1, Title: "One"},
		database.Item{ID: 2, Title: "Two"},
	)
	scheduler := NewScheduler(&fakeRunner{}, items, &fakeSuggester{configured: true}, Options{
		Interval:    time.Hour,
		WorkerCount: 2,
		AutoSuggest: true,
	})

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return items.suggestion(1) != nil && items.suggestion(2) != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerAutoSuggestNeedsConfiguredSuggester(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, newFakeItems(), &fakeSuggester{}, Options{Interval: time.Hour, AutoSuggest: true})
	defer scheduler.cancel()

	assert.False(t, scheduler.autoSuggest)
	assert.Equal(t, 1, scheduler.workerCount)
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	scheduler := NewScheduler(&fakeRunner{}, newFakeItems(), nil, Options{Interval: time.Hour})
	defer scheduler.cancel()

	for i := 0; i < cap(scheduler.taskQueue); i++ {
		require.NoError(t, scheduler.EnqueueTask(NewIngestCycleTask(&fakeRunner{})))
	}

	assert.Error(t, scheduler.EnqueueTask(NewIngestCycleTask(&fakeRunner{})))
}
