package domain

import "github.com/shopspring/decimal"

type Room struct {
	ID          int64
	RoomType    string
	Number      string
	Price       decimal.Decimal
	MaxGuests   int
	Description string
	Active      bool
}

// RoomTypeAvailability is one row of an availability search: a room type
// aggregated over its active rooms that fit the requested guest count.
type RoomTypeAvailability struct {
	RoomType       string          `json:"room_type"`
	MinPrice       decimal.Decimal `json:"min_price"`
	MaxCapacity    int             `json:"max_capacity"`
	Description    string          `json:"description"`
	TotalRooms     int             `json:"total_rooms"`
	AvailableRooms int             `json:"available_rooms"`
}

// StayTotal is the price of a stay: nightly price times nights.
func StayTotal(price decimal.Decimal, nights int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(nights)))
}
