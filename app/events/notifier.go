package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lysyi3m/rss-curator/app/database"
)

// Notifier announces newly ingested items to downstream consumers
type Notifier interface {
	Notify(ctx context.Context, items []database.Item) error
	Close() error
}

// ItemEvent is the message published for each new item
type ItemEvent struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link"`
	Category    string    `json:"category"`
	PublishedAt string    `json:"published_at"`
	FeedSource  string    `json:"feed_source"`
	IngestedAt  time.Time `json:"ingested_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	slog.Info("Kafka notifier initialized", "brokers", brokers, "topic", topic)

	return &KafkaNotifier{writer: writer, topic: topic}
}

// Notify writes one message per item, keyed by link so every event for a
// link lands on the same partition.
func (n *KafkaNotifier) Notify(ctx context.Context, items []database.Item) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(items))
	for _, item := range items {
		value, err := json.Marshal(ItemEvent{
			ID:          item.ID,
			Title:       item.Title,
			Summary:     item.Summary,
			Link:        item.Link,
			Category:    item.Category,
			PublishedAt: item.PublishedAt,
			FeedSource:  item.FeedSource,
			IngestedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal item event: %w", err)
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(item.Link),
			Value: value,
			Time:  now,
		})
	}

	if err := n.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write messages to Kafka: %w", err)
	}

	slog.Debug("Item events published", "topic", n.topic, "count", len(msgs))

	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, []database.Item) error { return nil }

func (NopNotifier) Close() error { return nil }
