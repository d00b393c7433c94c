package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	EventReservationConfirmed = "reservation_confirmed"
	EventSignupConfirmed      = "event_signup_confirmed"
)

// BookingEvent is published after a reservation or signup commits.
// Reservation and signup fields are mutually exclusive.
type BookingEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`

	ReservationID int64  `json:"reservation_id,omitempty"`
	RoomID        int64  `json:"room_id,omitempty"`
	RoomNumber    string `json:"room_number,omitempty"`
	RoomType      string `json:"room_type,omitempty"`
	CheckIn       string `json:"check_in,omitempty"`
	CheckOut      string `json:"check_out,omitempty"`
	Nights        int    `json:"nights,omitempty"`
	Total         string `json:"total,omitempty"`
	GuestName     string `json:"guest_name,omitempty"`

	SignupID  int64 `json:"signup_id,omitempty"`
	EventID   int64 `json:"event_id,omitempty"`
	SlotID    int64 `json:"slot_id,omitempty"`
	PartySize int   `json:"party_size,omitempty"`
	Remaining int   `json:"remaining,omitempty"`
}

// Key partitions events by user so one user's notifications stay ordered.
func (e BookingEvent) Key() string {
	return strconv.FormatInt(e.UserID, 10)
}

func NewReservationEvent(res *domain.Reservation, now time.Time) BookingEvent {
	return BookingEvent{
		ID:            uuid.New(),
		Type:          EventReservationConfirmed,
		UserID:        res.UserID,
		OccurredAt:    now.UTC(),
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		RoomNumber:    res.RoomNumber,
		RoomType:      res.RoomType,
		CheckIn:       res.CheckIn.Format(domain.DateLayout),
		CheckOut:      res.CheckOut.Format(domain.DateLayout),
		Nights:        res.Nights,
		Total:         res.Total.StringFixed(2),
		GuestName:     res.Guest.FirstName + " " + res.Guest.LastName,
	}
}

func NewSignupEvent(s *domain.EventSignup, now time.Time) BookingEvent {
	return BookingEvent{
		ID:         uuid.New(),
		Type:       EventSignupConfirmed,
		UserID:     s.UserID,
		OccurredAt: now.UTC(),
		SignupID:   s.ID,
		EventID:    s.EventID,
		SlotID:     s.SlotID,
		PartySize:  s.PartySize,
		Remaining:  s.Remaining,
		GuestName:  s.Attendee.FirstName + " " + s.Attendee.LastName,
	}
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	log     *slog.Logger
}

func NewProducer(brokers []string, log *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		log:     log,
	}
}

func buildMessage(topic, key string, payload any, now time.Time) (kafka.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  now,
	}, nil
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	message, err := buildMessage(topic, key, payload, time.Now())
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.log.Debug("published to kafka", "topic", topic, "key", key)
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partition list.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	return nil
}
