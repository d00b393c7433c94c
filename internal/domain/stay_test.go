package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func TestParseStay_Valid(t *testing.T) {
	stay, err := ParseStay("2026-10-18", "2026-10-20", today)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), stay.CheckIn)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), stay.CheckOut)
	assert.Equal(t, 2, stay.Nights)
}

func TestParseStay_NightsFromCalendarDays(t *testing.T) {
	stay, err := ParseStay("2026-10-18", "2027-10-18", today)
	require.NoError(t, err)
	assert.Equal(t, MaxStayNights, stay.Nights)
	assert.Equal(t, stay.CheckOut, stay.CheckIn.AddDate(0, 0, stay.Nights))

	stay, err = ParseStay("2028-02-28", "2028-03-01", today)
	require.NoError(t, err)
	assert.Equal(t, 2, stay.Nights)
}

func TestParseStay_TodayIsAllowed(t *testing.T) {
	stay, err := ParseStay("2026-10-17", "2026-10-18", today)

	require.NoError(t, err)
	assert.Equal(t, 1, stay.Nights)
}

func TestParseStay_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		from  string
		to    string
		field string
	}{
		{name: "empty from", from: "", to: "2026-10-20", field: "from"},
		{name: "time component", from: "2026-10-18T10:00:00", to: "2026-10-20", field: "from"},
		{name: "single digit month", from: "2026-1-18", to: "2026-10-20", field: "from"},
		{name: "impossible day", from: "2026-10-18", to: "2026-02-30", field: "to"},
		{name: "past check-in", from: "2026-10-16", to: "2026-10-20", field: "from"},
		{name: "same day", from: "2026-10-18", to: "2026-10-18", field: "to"},
		{name: "reversed", from: "2026-10-20", to: "2026-10-18", field: "to"},
		{name: "longer than a year", from: "2026-10-18", to: "2027-10-19", field: "to"},
		{name: "far future check-out", from: "2026-10-18", to: "9999-12-31", field: "to"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStay(tc.from, tc.to, today)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestToday_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, 10, 17, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), Today(now, loc))
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), Today(now, time.UTC))
}

func TestStay_OverlapsIsHalfOpen(t *testing.T) {
	stay, err := ParseStay("2026-10-20", "2026-10-22", today)
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

	assert.False(t, stay.Overlaps(day(18), day(20)), "ends on our check-in")
	assert.False(t, stay.Overlaps(day(22), day(24)), "starts on our check-out")
	assert.True(t, stay.Overlaps(day(19), day(21)))
	assert.True(t, stay.Overlaps(day(21), day(23)))
	assert.True(t, stay.Overlaps(day(18), day(25)))
}

func TestParseGuests(t *testing.T) {
	n, err := ParseGuests("")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = ParseGuests(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ParseGuests("100")
	require.NoError(t, err)
	assert.Equal(t, MaxPartySize, n)

	for _, raw := range []string{"0", "-1", "abc", "2.5", "101", "9223372036854775807", "99999999999999999999"} {
		_, err := ParseGuests(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestParseSearch(t *testing.T) {
	q, err := ParseSearch("2026-10-18", "2026-10-20", 2, today)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Guests)
	assert.Equal(t, 2, q.Stay.Nights)

	_, err = ParseSearch("2026-10-18", "2026-10-20", 0, today)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseSearch("2026-10-18", "2026-10-20", MaxPartySize+1, today)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOccupancy_Validate(t *testing.T) {
	assert.NoError(t, Occupancy{Adults: 1}.Validate())
	assert.NoError(t, Occupancy{Adults: 2, Children: 2}.Validate())
	assert.ErrorIs(t, Occupancy{Adults: 0}.Validate(), ErrValidation)
	assert.NoError(t, Occupancy{Adults: 60, Children: 40}.Validate())
	assert.ErrorIs(t, Occupancy{Adults: 1, Children: -1}.Validate(), ErrValidation)
	assert.Equal(t, 4, Occupancy{Adults: 3, Children: 1}.Total())
}

func TestGuestDetails_Normalize(t *testing.T) {
	g, err := GuestDetails{
		FirstName: "  Anna ",
		LastName:  "Nowak",
		Phone:     " +48 600 000 000 ",
		Notes:     " late arrival ",
	}.Normalize()

	require.NoError(t, err)
	assert.Equal(t, "Anna", g.FirstName)
	assert.Equal(t, "+48 600 000 000", g.Phone)
	assert.Equal(t, "late arrival", g.Notes)
}

func TestGuestDetails_NormalizeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		guest GuestDetails
		field string
	}{
		{name: "short first name", guest: GuestDetails{FirstName: " A ", LastName: "Nowak"}, field: "first_name"},
		{name: "short last name", guest: GuestDetails{FirstName: "Anna", LastName: "N"}, field: "last_name"},
		{name: "notes too long", guest: GuestDetails{FirstName: "Anna", LastName: "Nowak", Notes: strings.Repeat("x", 401)}, field: "notes"},
		{name: "phone too long", guest: GuestDetails{FirstName: "Anna", LastName: "Nowak", Phone: strings.Repeat("1", 31)}, field: "phone"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.guest.Normalize()
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestGuestDetails_NotesAtLimit(t *testing.T) {
	_, err := GuestDetails{FirstName: "Anna", LastName: "Nowak", Notes: strings.Repeat("ż", 400)}.Normalize()
	assert.NoError(t, err)
}

func TestAttendee_Normalize(t *testing.T) {
	a, err := Attendee{FirstName: " Jan ", LastName: " Kowalski "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Attendee{FirstName: "Jan", LastName: "Kowalski"}, a)

	_, err = Attendee{FirstName: "  ", LastName: "Kowalski"}.Normalize()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStayTotal(t *testing.T) {
	assert.True(t, decimal.NewFromInt(200).Equal(StayTotal(decimal.NewFromInt(100), 2)))
	assert.Equal(t, "379.50", StayTotal(decimal.RequireFromString("126.50"), 3).StringFixed(2))
}

func TestParseRoomType(t *testing.T) {
	rt, err := ParseRoomType("  Deluxe ")
	require.NoError(t, err)
	assert.Equal(t, "Deluxe", rt)

	_, err = ParseRoomType("   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseRoomType(strings.Repeat("x", 101))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOccupancy_ValidateBounds(t *testing.T) {
	testCases := []struct {
		name      string
		occupancy Occupancy
		field     string
	}{
		{name: "too many adults", occupancy: Occupancy{Adults: MaxPartySize + 1}, field: "adults"},
		{name: "too many children", occupancy: Occupancy{Adults: 1, Children: MaxPartySize + 1}, field: "children"},
		{name: "sum over limit", occupancy: Occupancy{Adults: 60, Children: 41}, field: "children"},
		{name: "adults overflow int", occupancy: Occupancy{Adults: math.MaxInt, Children: 1}, field: "adults"},
		{name: "children overflow int", occupancy: Occupancy{Adults: 1, Children: math.MaxInt}, field: "children"},
		{name: "adults beyond int32", occupancy: Occupancy{Adults: math.MaxInt32 + 1}, field: "adults"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.occupancy.Validate()

			assert.ErrorIs(t, err, ErrValidation)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestValidateSignup(t *testing.T) {
	assert.NoError(t, ValidateSignup(1, 2, 3))

	for _, tc := range []struct {
		event, slot int64
		party       int
		field       string
	}{
		{0, 2, 1, "event_id"},
		{1, 0, 1, "slot_id"},
		{1, 2, 0, "party_size"},
		{1, 2, MaxPartySize + 1, "party_size"},
		{1, 2, math.MaxInt, "party_size"},
	} {
		err := ValidateSignup(tc.event, tc.slot, tc.party)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, tc.field, vErr.Field)
	}
}
