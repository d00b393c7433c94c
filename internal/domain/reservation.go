package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	// ReservationStatusPending is reserved for a future hold flow. Nothing
	// creates it yet, but it blocks a room exactly like CONFIRMED.
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// BlockingStatuses are the reservation statuses that occupy a room.
var BlockingStatuses = []ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed}

func (s ReservationStatus) Blocks() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

type Reservation struct {
	ID         int64
	RoomID     int64
	RoomNumber string
	RoomType   string
	UserID     int64
	CheckIn    time.Time
	CheckOut   time.Time
	Nights     int
	Adults     int
	Children   int
	Total      decimal.Decimal
	Status     ReservationStatus
	Guest      GuestDetails
	CreatedAt  time.Time
}

// ReservationRequest is a validated BookRoom call.
type ReservationRequest struct {
	UserID    int64
	RoomType  string
	Stay      Stay
	Occupancy Occupancy
	Guest     GuestDetails
}

// ReservationSummary is the read projection used by "my reservations" and
// the dashboard.
type ReservationSummary struct {
	ID         int64             `json:"id"`
	CheckIn    time.Time         `json:"check_in"`
	CheckOut   time.Time         `json:"check_out"`
	Adults     int               `json:"adults"`
	Children   int               `json:"children"`
	Total      decimal.Decimal   `json:"total"`
	Status     ReservationStatus `json:"status"`
	RoomType   string            `json:"room_type"`
	RoomNumber string            `json:"room_number"`
	CreatedAt  time.Time         `json:"created_at"`
}
