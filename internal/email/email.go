package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/resortbooking/internal/kafka"
)

type Message struct {
	UserID  int64
	Subject string
	Body    string
}

// Sender turns booking events into guest notifications. Delivery is a
// structured log line until a mail provider is configured.
type Sender struct {
	log *slog.Logger
}

func NewSender(log *slog.Logger) *Sender {
	return &Sender{log: log}
}

func Compose(event kafka.BookingEvent) (Message, error) {
	switch event.Type {
	case kafka.EventReservationConfirmed:
		return Message{
			UserID:  event.UserID,
			Subject: fmt.Sprintf("Reservation #%d confirmed", event.ReservationID),
			Body: fmt.Sprintf("Dear %s, your %s room %s is booked from %s to %s (%d nights). Total: %s.",
				event.GuestName, event.RoomType, event.RoomNumber, event.CheckIn, event.CheckOut, event.Nights, event.Total),
		}, nil
	case kafka.EventSignupConfirmed:
		return Message{
			UserID:  event.UserID,
			Subject: fmt.Sprintf("Signup #%d confirmed", event.SignupID),
			Body: fmt.Sprintf("Dear %s, %d place(s) are held for you in slot %d of event %d.",
				event.GuestName, event.PartySize, event.SlotID, event.EventID),
		}, nil
	default:
		return Message{}, fmt.Errorf("unsupported event type %q", event.Type)
	}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	msg, err := Compose(event)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "notification sent",
		"event_id", event.ID.String(),
		"user_id", msg.UserID,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
