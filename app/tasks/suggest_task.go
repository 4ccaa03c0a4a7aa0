package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// SuggestTask stores an AI suggestion for one item that has none yet
type SuggestTask struct {
	Task
	itemID    int64
	items     ItemStore
	suggester Suggester
}

func NewSuggestTask(itemID int64, items ItemStore, suggester Suggester) *SuggestTask {
	return &SuggestTask{
		Task:      NewTask(TaskTypeSuggest, "item "+strconv.FormatInt(itemID, 10)),
		itemID:    itemID,
		items:     items,
		suggester: suggester,
	}
}

func (t *SuggestTask) Execute(ctx context.Context) error {
	item, err := t.items.Get(ctx, t.itemID)
	if err != nil {
		return fmt.Errorf("failed to load item: %w", err)
	}
	if item == nil {
		slog.Debug("Item gone, skipping suggestion", "item_id", t.itemID)
		return nil
	}
	if item.AISuggestion != nil {
		slog.Debug("Item already has a suggestion", "item_id", t.itemID)
		return nil
	}

	suggestion, err := t.suggester.Suggest(ctx, item.Title, item.Summary)
	if err != nil {
		return err
	}

	if _, err := t.items.SetAISuggestion(ctx, t.itemID, suggestion); err != nil {
		return fmt.Errorf("failed to store suggestion: %w", err)
	}

	slog.Info("Task completed",
		"type", "Suggest",
		"id", t.ID,
		"item_id", t.itemID,
		"duration", t.GetDuration())

	return nil
}
