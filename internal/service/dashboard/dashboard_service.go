package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/Domenick1991/resortbooking/internal/repository"
)

type DashboardUseCase interface {
	Get(ctx context.Context, userID int64) (*Dashboard, error)
}

type Dashboard struct {
	Reservations []domain.ReservationSummary `json:"reservations"`
	Events       []domain.SignupSummary      `json:"events"`
}

type DashboardService struct {
	rooms           repository.RoomRepository
	events          repository.EventRepository
	log             *slog.Logger
	now             func() time.Time
	reservationsMax int
	eventsMax       int
}

type Option func(*DashboardService)

func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

func WithLimits(reservations, events int) Option {
	return func(s *DashboardService) {
		s.reservationsMax = reservations
		s.eventsMax = events
	}
}

func NewDashboardService(rooms repository.RoomRepository, events repository.EventRepository, log *slog.Logger, opts ...Option) *DashboardService {
	s := &DashboardService{
		rooms:           rooms,
		events:          events,
		log:             log,
		now:             time.Now,
		reservationsMax: 5,
		eventsMax:       5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's earliest stays by check-in and their next upcoming
// event signups.
func (s *DashboardService) Get(ctx context.Context, userID int64) (*Dashboard, error) {
	if userID <= 0 {
		return nil, domain.ErrAuthRequired
	}

	reservations, err := s.rooms.ListByUser(ctx, userID, repository.EarliestCheckInFirst, s.reservationsMax)
	if err != nil {
		s.log.ErrorContext(ctx, "dashboard reservations failed", "user_id", userID, "error", err)
		return nil, err
	}
	events, err := s.events.ListUpcomingByUser(ctx, userID, s.now(), s.eventsMax)
	if err != nil {
		s.log.ErrorContext(ctx, "dashboard events failed", "user_id", userID, "error", err)
		return nil, err
	}

	if reservations == nil {
		reservations = []domain.ReservationSummary{}
	}
	if events == nil {
		events = []domain.SignupSummary{}
	}
	return &Dashboard{Reservations: reservations, Events: events}, nil
}

var _ DashboardUseCase = (*DashboardService)(nil)
