// Package repotest holds behavioural tests shared by every implementation
// of the room and event repositories.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/Domenick1991/resortbooking/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture is a freshly seeded repository pair plus read-back helpers that
// bypass the repository interfaces.
type Fixture struct {
	Rooms  repository.RoomRepository
	Events repository.EventRepository

	// Reservations returns every reservation stored for a room.
	Reservations func(t *testing.T, roomID int64) []domain.Reservation
	// Slot returns the slot and the party sizes of its committed signups.
	Slot func(t *testing.T, slotID int64) (domain.EventSlot, []int)
}

// Catalog is the seed data handed to a Factory.
type Catalog struct {
	Rooms  []domain.Room
	Events []domain.Event
}

type Factory func(t *testing.T, catalog Catalog) Fixture

var today = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func stay(t *testing.T, from, to string) domain.Stay {
	t.Helper()
	s, err := domain.ParseStay(from, to, today)
	require.NoError(t, err)
	return s
}

func room(id int64, roomType string, price string, maxGuests int) domain.Room {
	return domain.Room{
		ID:          id,
		RoomType:    roomType,
		Number:      fmt.Sprintf("%d", 100+id),
		Price:       decimal.RequireFromString(price),
		MaxGuests:   maxGuests,
		Description: roomType + " room",
		Active:      true,
	}
}

func bookRequest(userID int64, roomType string, s domain.Stay) domain.ReservationRequest {
	return domain.ReservationRequest{
		UserID:    userID,
		RoomType:  roomType,
		Stay:      s,
		Occupancy: domain.Occupancy{Adults: 1},
		Guest:     domain.GuestDetails{FirstName: "Ann", LastName: "Lee"},
	}
}

func eventWithSlot(eventID, slotID int64, capacity int) domain.Event {
	return domain.Event{
		ID:    eventID,
		Title: fmt.Sprintf("Event %d", eventID),
		Slots: []domain.EventSlot{{
			ID:        slotID,
			StartsAt:  time.Date(2030, 2, 1, 10, 0, 0, 0, time.UTC),
			Capacity:  capacity,
			Remaining: capacity,
		}},
	}
}

func signupRequest(userID, eventID, slotID int64, party int) domain.SignupRequest {
	return domain.SignupRequest{
		UserID:    userID,
		EventID:   eventID,
		SlotID:    slotID,
		PartySize: party,
		Attendee:  domain.Attendee{FirstName: "Ann", LastName: "Lee"},
	}
}

// Run executes the whole suite against f.
func Run(t *testing.T, f Factory) {
	t.Run("RoomScenario", func(t *testing.T) { testRoomScenario(t, f) })
	t.Run("BoundaryInterval", func(t *testing.T) { testBoundaryInterval(t, f) })
	t.Run("CheapestRoomFirst", func(t *testing.T) { testCheapestRoomFirst(t, f) })
	t.Run("SearchOrderingAndGuests", func(t *testing.T) { testSearchOrdering(t, f) })
	t.Run("IdempotentRead", func(t *testing.T) { testIdempotentRead(t, f) })
	t.Run("RoomRace", func(t *testing.T) { testRoomRace(t, f) })
	t.Run("OverlapExclusivity", func(t *testing.T) { testOverlapExclusivity(t, f) })
	t.Run("ListByUser", func(t *testing.T) { testListByUser(t, f) })
	t.Run("EventScenario", func(t *testing.T) { testEventScenario(t, f) })
	t.Run("EventNotFound", func(t *testing.T) { testEventNotFound(t, f) })
	t.Run("EventRace", func(t *testing.T) { testEventRace(t, f) })
	t.Run("NonNegativeCapacity", func(t *testing.T) { testNonNegativeCapacity(t, f) })
	t.Run("ListEventsAndUpcoming", func(t *testing.T) { testListEvents(t, f) })
}

func testRoomScenario(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{room(1, "Standard", "100", 2)}})
	q := domain.SearchQuery{Stay: stay(t, "2030-01-02", "2030-01-04"), Guests: 1}

	items, err := fx.Rooms.SearchAvailability(ctx, q)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Standard", items[0].RoomType)
	assert.True(t, items[0].MinPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, items[0].TotalRooms)
	assert.Equal(t, 1, items[0].AvailableRooms)

	res, err := fx.Rooms.Reserve(ctx, bookRequest(7, "Standard", q.Stay))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RoomID)
	assert.Equal(t, 2, res.Nights)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(200)), "total %s", res.Total)
	assert.Equal(t, domain.ReservationStatusConfirmed, res.Status)
	assert.NotZero(t, res.ID)

	items, err = fx.Rooms.SearchAvailability(ctx, q)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].AvailableRooms)
	assert.Equal(t, 1, items[0].TotalRooms)

	_, err = fx.Rooms.Reserve(ctx, bookRequest(8, "Standard", q.Stay))
	require.ErrorIs(t, err, domain.ErrCapacityConflict)
	var cErr *domain.CapacityConflictError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, 0, cErr.Remaining)

	assert.Len(t, fx.Reservations(t, 1), 1)
}

func testBoundaryInterval(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{room(1, "Standard", "100", 2)}})

	_, err := fx.Rooms.Reserve(ctx, bookRequest(1, "Standard", stay(t, "2030-01-10", "2030-01-12")))
	require.NoError(t, err)

	_, err = fx.Rooms.Reserve(ctx, bookRequest(2, "Standard", stay(t, "2030-01-12", "2030-01-14")))
	require.NoError(t, err, "check-out day of one stay is free for the next check-in")

	_, err = fx.Rooms.Reserve(ctx, bookRequest(3, "Standard", stay(t, "2030-01-08", "2030-01-10")))
	require.NoError(t, err, "a stay ending on another's check-in does not overlap")

	_, err = fx.Rooms.Reserve(ctx, bookRequest(4, "Standard", stay(t, "2030-01-11", "2030-01-13")))
	assert.ErrorIs(t, err, domain.ErrCapacityConflict)

	assert.Len(t, fx.Reservations(t, 1), 3)
}

func testCheapestRoomFirst(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{
		room(1, "Deluxe", "150", 3),
		room(2, "Deluxe", "120", 3),
		room(3, "Deluxe", "120", 3),
		room(4, "Deluxe", "90", 1),
	}})
	s := stay(t, "2030-01-05", "2030-01-08")

	req := bookRequest(1, "Deluxe", s)
	req.Occupancy = domain.Occupancy{Adults: 2}

	var picked []int64
	for i := 0; i < 3; i++ {
		res, err := fx.Rooms.Reserve(ctx, req)
		require.NoError(t, err)
		picked = append(picked, res.RoomID)
	}
	assert.Equal(t, []int64{2, 3, 1}, picked, "lowest price, then lowest id; room 4 is too small")

	_, err := fx.Rooms.Reserve(ctx, req)
	assert.ErrorIs(t, err, domain.ErrCapacityConflict)
}

func testSearchOrdering(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{
		room(1, "Suite", "300", 4),
		room(2, "Standard", "100", 2),
		room(3, "Standard", "110", 3),
		room(4, "Family", "100", 5),
	}})

	items, err := fx.Rooms.SearchAvailability(ctx, domain.SearchQuery{Stay: stay(t, "2030-01-02", "2030-01-03"), Guests: 1})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"Family", "Standard", "Suite"}, []string{items[0].RoomType, items[1].RoomType, items[2].RoomType})
	assert.Equal(t, 3, items[1].MaxCapacity)
	assert.Equal(t, 2, items[1].TotalRooms)

	items, err = fx.Rooms.SearchAvailability(ctx, domain.SearchQuery{Stay: stay(t, "2030-01-02", "2030-01-03"), Guests: 3})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Standard", items[1].RoomType)
	assert.Equal(t, 1, items[1].TotalRooms, "rooms smaller than the party are not counted")
	assert.True(t, items[1].MinPrice.Equal(decimal.NewFromInt(110)))

	ok, err := fx.Rooms.RoomTypeExists(ctx, "Suite")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = fx.Rooms.RoomTypeExists(ctx, "Penthouse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testIdempotentRead(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{room(1, "Standard", "100", 2), room(2, "Suite", "250", 4)}})
	_, err := fx.Rooms.Reserve(ctx, bookRequest(1, "Standard", stay(t, "2030-01-03", "2030-01-06")))
	require.NoError(t, err)

	q := domain.SearchQuery{Stay: stay(t, "2030-01-01", "2030-01-04"), Guests: 2}
	first, err := fx.Rooms.SearchAvailability(ctx, q)
	require.NoError(t, err)
	second, err := fx.Rooms.SearchAvailability(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func testRoomRace(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{room(1, "Standard", "100", 2)}})
	s := stay(t, "2030-03-01", "2030-03-05")

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			<-start
			_, err := fx.Rooms.Reserve(ctx, bookRequest(user, "Standard", s))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrCapacityConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(int64(i + 1))
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, fx.Reservations(t, 1), 1)
}

func testOverlapExclusivity(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{
		room(1, "Standard", "100", 2),
		room(2, "Standard", "100", 2),
		room(3, "Standard", "120", 2),
	}})

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			checkIn := today.AddDate(0, 0, 1+i%7)
			nights := 1 + i%4
			s, err := domain.ParseStay(checkIn.Format(domain.DateLayout), checkIn.AddDate(0, 0, nights).Format(domain.DateLayout), today)
			if err != nil {
				return
			}
			_, _ = fx.Rooms.Reserve(ctx, bookRequest(int64(i+1), "Standard", s))
		}(i)
	}
	wg.Wait()

	total := 0
	for _, id := range []int64{1, 2, 3} {
		rs := fx.Reservations(t, id)
		total += len(rs)
		for a := 0; a < len(rs); a++ {
			for b := a + 1; b < len(rs); b++ {
				overlap := rs[a].CheckIn.Before(rs[b].CheckOut) && rs[b].CheckIn.Before(rs[a].CheckOut)
				assert.False(t, overlap, "room %d: reservations %d and %d overlap", id, rs[a].ID, rs[b].ID)
			}
		}
	}
	assert.Positive(t, total)
}

func testListByUser(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Rooms: []domain.Room{room(1, "Standard", "100", 2), room(2, "Suite", "200", 2)}})

	first, err := fx.Rooms.Reserve(ctx, bookRequest(5, "Standard", stay(t, "2030-04-10", "2030-04-12")))
	require.NoError(t, err)
	second, err := fx.Rooms.Reserve(ctx, bookRequest(5, "Suite", stay(t, "2030-04-01", "2030-04-03")))
	require.NoError(t, err)
	_, err = fx.Rooms.Reserve(ctx, bookRequest(6, "Standard", stay(t, "2030-05-01", "2030-05-02")))
	require.NoError(t, err)

	newest, err := fx.Rooms.ListByUser(ctx, 5, repository.NewestFirst, 10)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, second.ID, newest[0].ID)
	assert.Equal(t, "Suite", newest[0].RoomType)
	assert.Equal(t, "102", newest[0].RoomNumber)

	byCheckIn, err := fx.Rooms.ListByUser(ctx, 5, repository.EarliestCheckInFirst, 1)
	require.NoError(t, err)
	require.Len(t, byCheckIn, 1)
	assert.Equal(t, second.ID, byCheckIn[0].ID)

	byCheckIn, err = fx.Rooms.ListByUser(ctx, 5, repository.EarliestCheckInFirst, 10)
	require.NoError(t, err)
	require.Len(t, byCheckIn, 2)
	assert.Equal(t, first.ID, byCheckIn[1].ID)

	none, err := fx.Rooms.ListByUser(ctx, 99, repository.NewestFirst, 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testEventScenario(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Events: []domain.Event{eventWithSlot(1, 11, 10)}})

	signup, err := fx.Events.Signup(ctx, signupRequest(1, 1, 11, 7))
	require.NoError(t, err)
	assert.Equal(t, 3, signup.Remaining)

	_, err = fx.Events.Signup(ctx, signupRequest(2, 1, 11, 5))
	require.ErrorIs(t, err, domain.ErrCapacityConflict)
	var cErr *domain.CapacityConflictError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, 3, cErr.Remaining)

	signup, err = fx.Events.Signup(ctx, signupRequest(3, 1, 11, 3))
	require.NoError(t, err)
	assert.Equal(t, 0, signup.Remaining)

	slot, parties := fx.Slot(t, 11)
	assert.Equal(t, 0, slot.Remaining)
	assert.Equal(t, []int{7, 3}, parties)
}

func testEventNotFound(t *testing.T, f Factory) {
	ctx := context.Background()
	fx := f(t, Catalog{Events: []domain.Event{eventWithSlot(1, 11, 10), eventWithSlot(2, 21, 10)}})

	_, err := fx.Events.Signup(ctx, signupRequest(1, 1, 99, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = fx.Events.Signup(ctx, signupRequest(1, 1, 21, 1))
	assert.ErrorIs(t, err, domain.ErrNotFound, "slot must belong to the event")

	slot, parties := fx.Slot(t, 21)
	assert.Equal(t, 10, slot.Remaining)
	assert.Empty(t, parties)
}

func testEventRace(t *testing.T, f Factory) {
	ctx := context.Background()
	const party = 4
	fx := f(t, Catalog{Events: []domain.Event{eventWithSlot(1, 11, party)}})

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			<-start
			_, err := fx.Events.Signup(ctx, signupRequest(user, 1, 11, party))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrCapacityConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(int64(i + 1))
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	slot, parties := fx.Slot(t, 11)
	assert.Equal(t, 0, slot.Remaining)
	assert.Equal(t, []int{party}, parties)
}

func testNonNegativeCapacity(t *testing.T, f Factory) {
	ctx := context.Background()
	const capacity = 20
	fx := f(t, Catalog{Events: []domain.Event{eventWithSlot(1, 11, capacity)}})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = fx.Events.Signup(ctx, signupRequest(int64(i+1), 1, 11, 1+i%3))
		}(i)
	}
	wg.Wait()

	slot, parties := fx.Slot(t, 11)
	sum := 0
	for _, p := range parties {
		sum += p
	}
	assert.GreaterOrEqual(t, slot.Remaining, 0)
	assert.Equal(t, capacity-slot.Remaining, sum)
}

func testListEvents(t *testing.T, f Factory) {
	ctx := context.Background()
	ev := eventWithSlot(1, 11, 10)
	ev.Slots = append(ev.Slots, domain.EventSlot{
		ID:        12,
		StartsAt:  time.Date(2029, 12, 1, 10, 0, 0, 0, time.UTC),
		Capacity:  5,
		Remaining: 5,
	})
	fx := f(t, Catalog{Events: []domain.Event{ev, eventWithSlot(2, 21, 3)}})

	_, err := fx.Events.Signup(ctx, signupRequest(9, 1, 11, 2))
	require.NoError(t, err)
	_, err = fx.Events.Signup(ctx, signupRequest(9, 1, 12, 1))
	require.NoError(t, err)
	_, err = fx.Events.Signup(ctx, signupRequest(9, 2, 21, 1))
	require.NoError(t, err)

	events, err := fx.Events.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Len(t, events[0].Slots, 2)
	assert.Equal(t, int64(11), events[0].Slots[0].ID)
	assert.Equal(t, 8, events[0].Slots[0].Remaining)
	assert.Equal(t, 4, events[0].Slots[1].Remaining)
	assert.Equal(t, int64(2), events[1].ID)

	upcoming, err := fx.Events.ListUpcomingByUser(ctx, 9, today, 5)
	require.NoError(t, err)
	require.Len(t, upcoming, 2, "the slot in the past is excluded")
	assert.Equal(t, int64(11), upcoming[0].SlotID)
	assert.Equal(t, 2, upcoming[0].PartySize)
	assert.Equal(t, "Event 1", upcoming[0].Title)

	limited, err := fx.Events.ListUpcomingByUser(ctx, 9, today, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
