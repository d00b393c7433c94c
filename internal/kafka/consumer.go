package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventHandler processes one decoded booking event.
type EventHandler func(ctx context.Context, event BookingEvent) error

type Consumer struct {
	reader *kafka.Reader
	log    *slog.Logger
}

func NewConsumer(brokers []string, groupID, topic string, log *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			StartOffset:       kafka.FirstOffset,
			MaxWait:           time.Second,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume runs until ctx is done or handle fails. An offset is committed only
// after its event was handled, so delivery is at least once. Messages that do
// not decode are logged and committed.
func (c *Consumer) Consume(ctx context.Context, handle EventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		event, err := DecodeBookingEvent(msg)
		if err != nil {
			c.log.WarnContext(ctx, "skipping undecodable message",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		} else if err := handle(ctx, event); err != nil {
			return fmt.Errorf("handle %s event %s: %w", event.Type, event.ID, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func DecodeBookingEvent(msg kafka.Message) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode %s message at offset %d: %w", msg.Topic, msg.Offset, err)
	}
	if event.Type == "" {
		return BookingEvent{}, fmt.Errorf("decode %s message at offset %d: missing event type", msg.Topic, msg.Offset)
	}
	return event, nil
}
