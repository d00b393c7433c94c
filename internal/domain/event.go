package domain

import "time"

type Event struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Slots       []EventSlot `json:"slots"`
}

type EventSlot struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"-"`
	StartsAt  time.Time `json:"start_time"`
	Capacity  int       `json:"capacity"`
	Remaining int       `json:"remaining"`
}

type EventSignup struct {
	ID        int64
	EventID   int64
	SlotID    int64
	UserID    int64
	Attendee  Attendee
	PartySize int
	Remaining int
	CreatedAt time.Time
}

// SignupRequest is a validated SignupForEvent call.
type SignupRequest struct {
	UserID    int64
	EventID   int64
	SlotID    int64
	PartySize int
	Attendee  Attendee
}

type SignupSummary struct {
	EventID   int64     `json:"event_id"`
	Title     string    `json:"title"`
	SlotID    int64     `json:"slot_id"`
	StartsAt  time.Time `json:"start_time"`
	PartySize int       `json:"party_size"`
}
