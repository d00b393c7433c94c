// Package memory is a single-process implementation of the room and event
// repositories. Every room and every slot carries its own mutex, so writes
// to different rooms or slots never wait for each other.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/Domenick1991/resortbooking/internal/repository"
)

type roomEntry struct {
	mu           sync.Mutex
	room         domain.Room
	reservations []domain.Reservation
}

type slotEntry struct {
	mu      sync.Mutex
	slot    domain.EventSlot
	active  bool
	signups []domain.EventSignup
}

type eventEntry struct {
	event  domain.Event
	active bool
	slots  []*slotEntry
}

// Store holds the catalog and all bookings in memory. The catalog itself is
// guarded by mu; reservation sets and slot counters by the per-entry locks.
type Store struct {
	mu     sync.RWMutex
	rooms  []*roomEntry
	events []*eventEntry
	slots  map[int64]*slotEntry

	reservationSeq atomic.Int64
	signupSeq      atomic.Int64
	now            func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		slots: make(map[int64]*slotEntry),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddRoom inserts a room into the catalog, keeping rooms ordered by price
// then id.
func (s *Store) AddRoom(room domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms = append(s.rooms, &roomEntry{room: room})
	sort.SliceStable(s.rooms, func(i, j int) bool {
		a, b := s.rooms[i].room, s.rooms[j].room
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

// AddEvent inserts an event and its slots. Remaining is stored as given,
// so a zero value seeds a sold-out slot.
func (s *Store) AddEvent(event domain.Event, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &eventEntry{event: domain.Event{ID: event.ID, Title: event.Title, Description: event.Description}, active: active}
	for _, slot := range event.Slots {
		if _, ok := s.slots[slot.ID]; ok {
			return fmt.Errorf("slot %d already exists", slot.ID)
		}
		slot.EventID = event.ID
		if slot.Remaining < 0 || slot.Remaining > slot.Capacity {
			return fmt.Errorf("slot %d: remaining %d outside [0, %d]", slot.ID, slot.Remaining, slot.Capacity)
		}
		se := &slotEntry{slot: slot, active: true}
		entry.slots = append(entry.slots, se)
		s.slots[slot.ID] = se
	}
	sort.Slice(entry.slots, func(i, j int) bool { return entry.slots[i].slot.ID < entry.slots[j].slot.ID })

	s.events = append(s.events, entry)
	sort.Slice(s.events, func(i, j int) bool { return s.events[i].event.ID < s.events[j].event.ID })
	return nil
}

func (s *Store) SearchAvailability(_ context.Context, q domain.SearchQuery) ([]domain.RoomTypeAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[string]*domain.RoomTypeAvailability)
	for _, e := range s.rooms {
		e.mu.Lock()
		room := e.room
		free := !overlapsAny(e.reservations, q.Stay)
		e.mu.Unlock()

		if !room.Active || room.MaxGuests < q.Guests {
			continue
		}
		a, ok := byType[room.RoomType]
		if !ok {
			a = &domain.RoomTypeAvailability{
				RoomType:    room.RoomType,
				MinPrice:    room.Price,
				MaxCapacity: room.MaxGuests,
				Description: room.Description,
			}
			byType[room.RoomType] = a
		}
		if room.Price.LessThan(a.MinPrice) {
			a.MinPrice = room.Price
		}
		if room.MaxGuests > a.MaxCapacity {
			a.MaxCapacity = room.MaxGuests
		}
		if room.Description < a.Description {
			a.Description = room.Description
		}
		a.TotalRooms++
		if free {
			a.AvailableRooms++
		}
	}

	items := make([]domain.RoomTypeAvailability, 0, len(byType))
	for _, a := range byType {
		items = append(items, *a)
	}
	sort.Slice(items, func(i, j int) bool {
		if c := items[i].MinPrice.Cmp(items[j].MinPrice); c != 0 {
			return c < 0
		}
		return items[i].RoomType < items[j].RoomType
	})
	return items, nil
}

func (s *Store) RoomTypeExists(_ context.Context, roomType string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.rooms {
		if e.room.RoomType == roomType && e.room.Active {
			return true, nil
		}
	}
	return false, nil
}

// Reserve walks eligible rooms cheapest first and commits to the first one
// that is free under its own lock.
func (s *Store) Reserve(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.rooms {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewInfrastructure("reserve room", err)
		}
		if !e.room.Active || e.room.RoomType != req.RoomType || e.room.MaxGuests < req.Occupancy.Total() {
			continue
		}
		if res, ok := s.tryReserve(e, req); ok {
			return res, nil
		}
	}
	return nil, domain.NewCapacityConflict("room type "+req.RoomType, 0)
}

func (s *Store) tryReserve(e *roomEntry, req domain.ReservationRequest) (*domain.Reservation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if overlapsAny(e.reservations, req.Stay) {
		return nil, false
	}
	res := domain.Reservation{
		ID:         s.reservationSeq.Add(1),
		RoomID:     e.room.ID,
		RoomNumber: e.room.Number,
		RoomType:   e.room.RoomType,
		UserID:     req.UserID,
		CheckIn:    req.Stay.CheckIn,
		CheckOut:   req.Stay.CheckOut,
		Nights:     req.Stay.Nights,
		Adults:     req.Occupancy.Adults,
		Children:   req.Occupancy.Children,
		Total:      domain.StayTotal(e.room.Price, req.Stay.Nights),
		Status:     domain.ReservationStatusConfirmed,
		Guest:      req.Guest,
		CreatedAt:  s.now(),
	}
	e.reservations = append(e.reservations, res)
	return &res, true
}

func (s *Store) ListByUser(_ context.Context, userID int64, order repository.ReservationOrder, limit int) ([]domain.ReservationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.ReservationSummary, 0)
	for _, e := range s.rooms {
		e.mu.Lock()
		for _, r := range e.reservations {
			if r.UserID != userID {
				continue
			}
			items = append(items, domain.ReservationSummary{
				ID:         r.ID,
				CheckIn:    r.CheckIn,
				CheckOut:   r.CheckOut,
				Adults:     r.Adults,
				Children:   r.Children,
				Total:      r.Total,
				Status:     r.Status,
				RoomType:   r.RoomType,
				RoomNumber: r.RoomNumber,
				CreatedAt:  r.CreatedAt,
			})
		}
		e.mu.Unlock()
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if order == repository.EarliestCheckInFirst {
			if !a.CheckIn.Equal(b.CheckIn) {
				return a.CheckIn.Before(b.CheckIn)
			}
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return truncate(items, limit), nil
}

func (s *Store) ListActive(_ context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.Event, 0, len(s.events))
	for _, ee := range s.events {
		if !ee.active {
			continue
		}
		ev := ee.event
		ev.Slots = nil
		for _, se := range ee.slots {
			se.mu.Lock()
			slot, active := se.slot, se.active
			se.mu.Unlock()
			if active {
				ev.Slots = append(ev.Slots, slot)
			}
		}
		if len(ev.Slots) > 0 {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (s *Store) Signup(_ context.Context, req domain.SignupRequest) (*domain.EventSignup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	se, ok := s.slots[req.SlotID]
	if !ok || se.slot.EventID != req.EventID || !s.eventActive(req.EventID) {
		return nil, domain.NewNotFound("event slot", req.SlotID)
	}

	se.mu.Lock()
	defer se.mu.Unlock()

	if !se.active {
		return nil, domain.NewNotFound("event slot", req.SlotID)
	}
	if se.slot.Remaining < req.PartySize {
		return nil, domain.NewCapacityConflict(fmt.Sprintf("event slot %d", req.SlotID), se.slot.Remaining)
	}
	se.slot.Remaining -= req.PartySize

	signup := domain.EventSignup{
		ID:        s.signupSeq.Add(1),
		EventID:   req.EventID,
		SlotID:    req.SlotID,
		UserID:    req.UserID,
		Attendee:  req.Attendee,
		PartySize: req.PartySize,
		Remaining: se.slot.Remaining,
		CreatedAt: s.now(),
	}
	se.signups = append(se.signups, signup)
	return &signup, nil
}

func (s *Store) ListUpcomingByUser(_ context.Context, userID int64, from time.Time, limit int) ([]domain.SignupSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		summary domain.SignupSummary
		id      int64
	}
	rows := make([]row, 0)
	for _, ee := range s.events {
		if !ee.active {
			continue
		}
		for _, se := range ee.slots {
			se.mu.Lock()
			if se.active && !se.slot.StartsAt.Before(from) {
				for _, z := range se.signups {
					if z.UserID != userID {
						continue
					}
					rows = append(rows, row{id: z.ID, summary: domain.SignupSummary{
						EventID:   ee.event.ID,
						Title:     ee.event.Title,
						SlotID:    se.slot.ID,
						StartsAt:  se.slot.StartsAt,
						PartySize: z.PartySize,
					}})
				}
			}
			se.mu.Unlock()
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].summary.StartsAt.Equal(rows[j].summary.StartsAt) {
			return rows[i].summary.StartsAt.Before(rows[j].summary.StartsAt)
		}
		return rows[i].id < rows[j].id
	})

	items := make([]domain.SignupSummary, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.summary)
	}
	return truncate(items, limit), nil
}

// SlotSignups returns a snapshot of a slot and its committed signups.
func (s *Store) SlotSignups(slotID int64) (domain.EventSlot, []domain.EventSignup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	se, ok := s.slots[slotID]
	if !ok {
		return domain.EventSlot{}, nil, false
	}
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.slot, append([]domain.EventSignup(nil), se.signups...), true
}

// RoomReservations returns a snapshot of the reservations held by a room.
func (s *Store) RoomReservations(roomID int64) []domain.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.rooms {
		if e.room.ID != roomID {
			continue
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		return append([]domain.Reservation(nil), e.reservations...)
	}
	return nil
}

// eventActive must be called with mu held.
func (s *Store) eventActive(id int64) bool {
	for _, ee := range s.events {
		if ee.event.ID == id {
			return ee.active
		}
	}
	return false
}

func overlapsAny(reservations []domain.Reservation, stay domain.Stay) bool {
	for _, r := range reservations {
		if r.Status.Blocks() && stay.Overlaps(r.CheckIn, r.CheckOut) {
			return true
		}
	}
	return false
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

var (
	_ repository.RoomRepository  = (*Store)(nil)
	_ repository.EventRepository = (*Store)(nil)
)
