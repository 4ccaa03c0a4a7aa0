package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PurgeItemsTask deletes approved items older than the retention window
type PurgeItemsTask struct {
	Task
	items         ItemStore
	retentionDays int
}

func NewPurgeItemsTask(items ItemStore, retentionDays int) *PurgeItemsTask {
	return &PurgeItemsTask{
		Task:          NewTask(TaskTypePurgeItems, "approved items"),
		items:         items,
		retentionDays: retentionDays,
	}
}

func (t *PurgeItemsTask) Execute(ctx context.Context) error {
	if t.retentionDays <= 0 {
		slog.Debug("Retention disabled, skipping purge")
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -t.retentionDays)
	deleted, err := t.items.PurgeApproved(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge approved items: %w", err)
	}

	slog.Info("Task completed",
		"type", "PurgeItems",
		"id", t.ID,
		"duration", t.GetDuration(),
		"retention_days", t.retentionDays,
		"deleted", deleted)

	return nil
}
