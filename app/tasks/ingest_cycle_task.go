package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type IngestCycleTask struct {
	Task
	runner CycleRunner
}

func NewIngestCycleTask(runner CycleRunner) *IngestCycleTask {
	return &IngestCycleTask{
		Task:   NewTask(TaskTypeIngestCycle, "all feeds"),
		runner: runner,
	}
}

func (t *IngestCycleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	total, err := t.runner.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("failed to run ingestion cycle: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestCycle",
		"id", t.ID,
		"duration", t.GetDuration(),
		"new", total)

	return nil
}
