package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/Domenick1991/resortbooking/internal/kafka"
	"github.com/Domenick1991/resortbooking/internal/metrics"
	"github.com/Domenick1991/resortbooking/internal/repository"
)

type EventUseCase interface {
	List(ctx context.Context) ([]domain.Event, error)
	Signup(ctx context.Context, userID, eventID int64, input SignupInput) (*SignupResult, error)
	ListMine(ctx context.Context, userID int64) ([]domain.SignupSummary, error)
}

type EventsCache interface {
	EventsGeneration(ctx context.Context) (int64, error)
	GetEvents(ctx context.Context, gen int64) ([]domain.Event, bool, error)
	SetEvents(ctx context.Context, gen int64, events []domain.Event) error
	InvalidateEvents(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type SignupInput struct {
	SlotID    int64  `json:"slot_id"`
	PartySize int    `json:"party_size"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type SignupResult struct {
	SignupID  int64 `json:"signup_id"`
	EventID   int64 `json:"event_id"`
	SlotID    int64 `json:"slot_id"`
	PartySize int   `json:"party_size"`
	Remaining int   `json:"remaining"`
}

type EventService struct {
	events             repository.EventRepository
	cache              EventsCache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	metrics            *metrics.Metrics
	log                *slog.Logger
	now                func() time.Time
	listLimit          int
	publishTimeout     time.Duration
}

const defaultPublishTimeout = 2 * time.Second

type Option func(*EventService)

func WithCache(cache EventsCache) Option {
	return func(s *EventService) { s.cache = cache }
}

func WithProducer(producer Producer, bookingTopic string) Option {
	return func(s *EventService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) Option {
	return func(s *EventService) { s.notificationsTopic = topic }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *EventService) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *EventService) { s.now = now }
}

func WithListLimit(limit int) Option {
	return func(s *EventService) { s.listLimit = limit }
}

// WithPublishTimeout bounds the broker writes made after a commit.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *EventService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func NewEventService(events repository.EventRepository, log *slog.Logger, opts ...Option) *EventService {
	s := &EventService{
		events:         events,
		log:            log,
		now:            time.Now,
		listLimit:      5,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EventService) List(ctx context.Context) ([]domain.Event, error) {
	if s.cache == nil {
		return s.events.ListActive(ctx)
	}

	gen, err := s.cache.EventsGeneration(ctx)
	if err != nil {
		s.metrics.CacheLookup(metrics.CacheEvents, "error")
		s.log.WarnContext(ctx, "events cache unavailable", "error", err)
		return s.events.ListActive(ctx)
	}
	if cached, ok, err := s.cache.GetEvents(ctx, gen); err == nil && ok {
		s.metrics.CacheLookup(metrics.CacheEvents, "hit")
		return cached, nil
	}
	s.metrics.CacheLookup(metrics.CacheEvents, "miss")

	events, err := s.events.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetEvents(ctx, gen, events); err != nil {
		s.log.WarnContext(ctx, "events cache write failed", "error", err)
	}
	return events, nil
}

func (s *EventService) Signup(ctx context.Context, userID, eventID int64, input SignupInput) (*SignupResult, error) {
	if userID <= 0 {
		return nil, domain.ErrAuthRequired
	}
	if err := domain.ValidateSignup(eventID, input.SlotID, input.PartySize); err != nil {
		return nil, err
	}
	attendee, err := domain.Attendee{FirstName: input.FirstName, LastName: input.LastName}.Normalize()
	if err != nil {
		return nil, err
	}

	req := domain.SignupRequest{
		UserID:    userID,
		EventID:   eventID,
		SlotID:    input.SlotID,
		PartySize: input.PartySize,
		Attendee:  attendee,
	}

	start := time.Now()
	signup, err := s.events.Signup(ctx, req)
	s.metrics.ObserveWrite(metrics.OpEventSignup, err, time.Since(start))
	if err != nil {
		s.logFailure(ctx, err, "user_id", userID, "event_id", eventID, "slot_id", input.SlotID, "party_size", input.PartySize)
		return nil, err
	}

	s.log.InfoContext(ctx, "event signup",
		"signup_id", signup.ID,
		"user_id", userID,
		"slot_id", signup.SlotID,
		"party_size", signup.PartySize,
		"remaining", signup.Remaining,
	)

	if s.cache != nil {
		if err := s.cache.InvalidateEvents(ctx); err != nil {
			s.log.WarnContext(ctx, "events cache invalidation failed", "error", err)
		}
	}
	s.publish(ctx, kafka.NewSignupEvent(signup, s.now()))

	return &SignupResult{
		SignupID:  signup.ID,
		EventID:   signup.EventID,
		SlotID:    signup.SlotID,
		PartySize: signup.PartySize,
		Remaining: signup.Remaining,
	}, nil
}

// ListMine returns the user's signups for slots that have not started yet,
// soonest first.
func (s *EventService) ListMine(ctx context.Context, userID int64) ([]domain.SignupSummary, error) {
	if userID <= 0 {
		return nil, domain.ErrAuthRequired
	}
	return s.events.ListUpcomingByUser(ctx, userID, s.now(), s.listLimit)
}

func (s *EventService) logFailure(ctx context.Context, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	switch {
	case errors.Is(err, domain.ErrCapacityConflict):
		s.log.InfoContext(ctx, "event signup conflict", attrs...)
	case errors.Is(err, domain.ErrInfrastructure):
		s.log.ErrorContext(ctx, "event signup failed", attrs...)
	default:
		s.log.InfoContext(ctx, "event signup rejected", attrs...)
	}
}

func (s *EventService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	// the caller may already be gone; the response must not wait on the broker
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
		s.log.WarnContext(ctx, "publish signup event failed", "topic", s.bookingTopic, "event_id", event.ID.String(), "error", err)
	}
	if s.notificationsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
		s.log.WarnContext(ctx, "publish notification failed", "topic", s.notificationsTopic, "event_id", event.ID.String(), "error", err)
	}
}

var _ EventUseCase = (*EventService)(nil)
