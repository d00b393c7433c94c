package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const DateLayout = "2006-01-02"

const (
	minNameLen      = 2
	maxNameLen      = 100
	maxPhoneLen     = 30
	maxNotesLen     = 400
	maxAttendeeName = 60
	maxAttendeeLast = 80
	maxRoomTypeLen  = 100

	// MaxPartySize bounds guests, adults, children and event party sizes,
	// alone and summed. It keeps counts well inside a Postgres int4.
	MaxPartySize = 100
	// MaxStayNights bounds a single reservation.
	MaxStayNights = 365
)

const secondsPerDay = 24 * 60 * 60

// Stay is a validated half-open date interval [CheckIn, CheckOut). Both
// bounds are calendar dates at midnight UTC.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
	Nights   int
}

// Overlaps applies the half-open rule: touching endpoints do not overlap.
func (s Stay) Overlaps(checkIn, checkOut time.Time) bool {
	return s.CheckIn.Before(checkOut) && checkIn.Before(s.CheckOut)
}

// Today returns the start of the current day in loc as a UTC calendar date,
// comparable with dates returned by ParseStay.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, invalid(field, "date is required")
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, invalid(field, "expected YYYY-MM-DD")
	}
	return t, nil
}

// ParseStay validates a from/to pair against today (see Today).
func ParseStay(from, to string, today time.Time) (Stay, error) {
	checkIn, err := parseDate("from", from)
	if err != nil {
		return Stay{}, err
	}
	checkOut, err := parseDate("to", to)
	if err != nil {
		return Stay{}, err
	}
	if checkIn.Before(today) {
		return Stay{}, invalid("from", "date is in the past")
	}
	if !checkOut.After(checkIn) {
		return Stay{}, invalid("to", "must be after from")
	}
	// both bounds are UTC midnights, so the difference is whole days
	days := (checkOut.Unix() - checkIn.Unix()) / secondsPerDay
	if days < 1 {
		return Stay{}, invalid("to", "minimum stay is one night")
	}
	if days > MaxStayNights {
		return Stay{}, invalid("to", "maximum stay is "+strconv.Itoa(MaxStayNights)+" nights")
	}
	nights := int(days)
	return Stay{CheckIn: checkIn, CheckOut: checkOut, Nights: nights}, nil
}

// ParseGuests reads an optional positive guest count; empty means 1.
func ParseGuests(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, invalid("guests", "must be a whole number of at least 1")
	}
	if n > MaxPartySize {
		return 0, invalid("guests", "must be at most "+strconv.Itoa(MaxPartySize))
	}
	return n, nil
}

type SearchQuery struct {
	Stay   Stay
	Guests int
}

func ParseSearch(from, to string, guests int, today time.Time) (SearchQuery, error) {
	stay, err := ParseStay(from, to, today)
	if err != nil {
		return SearchQuery{}, err
	}
	if guests < 1 {
		return SearchQuery{}, invalid("guests", "must be at least 1")
	}
	if guests > MaxPartySize {
		return SearchQuery{}, invalid("guests", "must be at most "+strconv.Itoa(MaxPartySize))
	}
	return SearchQuery{Stay: stay, Guests: guests}, nil
}

type Occupancy struct {
	Adults   int
	Children int
}

func (o Occupancy) Validate() error {
	if o.Adults < 1 {
		return invalid("adults", "must be at least 1")
	}
	if o.Children < 0 {
		return invalid("children", "must not be negative")
	}
	// checked one at a time so the sum below cannot overflow
	if o.Adults > MaxPartySize {
		return invalid("adults", "must be at most "+strconv.Itoa(MaxPartySize))
	}
	if o.Children > MaxPartySize {
		return invalid("children", "must be at most "+strconv.Itoa(MaxPartySize))
	}
	if o.Total() > MaxPartySize {
		return invalid("children", "adults and children together must be at most "+strconv.Itoa(MaxPartySize))
	}
	return nil
}

func (o Occupancy) Total() int { return o.Adults + o.Children }

type GuestDetails struct {
	FirstName string
	LastName  string
	Phone     string
	Notes     string
}

// Normalize trims every field and enforces length bounds.
func (g GuestDetails) Normalize() (GuestDetails, error) {
	out := GuestDetails{
		FirstName: strings.TrimSpace(g.FirstName),
		LastName:  strings.TrimSpace(g.LastName),
		Phone:     strings.TrimSpace(g.Phone),
		Notes:     strings.TrimSpace(g.Notes),
	}
	if err := checkLen("first_name", out.FirstName, minNameLen, maxNameLen); err != nil {
		return GuestDetails{}, err
	}
	if err := checkLen("last_name", out.LastName, minNameLen, maxNameLen); err != nil {
		return GuestDetails{}, err
	}
	if err := checkLen("phone", out.Phone, 0, maxPhoneLen); err != nil {
		return GuestDetails{}, err
	}
	if err := checkLen("notes", out.Notes, 0, maxNotesLen); err != nil {
		return GuestDetails{}, err
	}
	return out, nil
}

type Attendee struct {
	FirstName string
	LastName  string
}

func (a Attendee) Normalize() (Attendee, error) {
	out := Attendee{
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
	}
	if err := checkLen("first_name", out.FirstName, 1, maxAttendeeName); err != nil {
		return Attendee{}, err
	}
	if err := checkLen("last_name", out.LastName, 1, maxAttendeeLast); err != nil {
		return Attendee{}, err
	}
	return out, nil
}

// ParseRoomType trims a room type name and rejects empty or oversized names.
func ParseRoomType(raw string) (string, error) {
	rt := strings.TrimSpace(raw)
	if err := checkLen("room_type", rt, 1, maxRoomTypeLen); err != nil {
		return "", err
	}
	return rt, nil
}

// ValidateSignup checks the identifiers and party size of a signup.
func ValidateSignup(eventID, slotID int64, partySize int) error {
	if eventID < 1 {
		return invalid("event_id", "must be a positive id")
	}
	if slotID < 1 {
		return invalid("slot_id", "must be a positive id")
	}
	if partySize < 1 {
		return invalid("party_size", "must be at least 1")
	}
	if partySize > MaxPartySize {
		return invalid("party_size", "must be at most "+strconv.Itoa(MaxPartySize))
	}
	return nil
}

func checkLen(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		if min == 1 {
			return invalid(field, "is required")
		}
		return invalid(field, "must be at least "+strconv.Itoa(min)+" characters")
	}
	if n > max {
		return invalid(field, "must be at most "+strconv.Itoa(max)+" characters")
	}
	return nil
}
