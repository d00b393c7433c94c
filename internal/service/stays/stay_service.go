package stays

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/Domenick1991/resortbooking/internal/kafka"
	"github.com/Domenick1991/resortbooking/internal/metrics"
	"github.com/Domenick1991/resortbooking/internal/repository"
	"github.com/shopspring/decimal"
)

type StayUseCase interface {
	Search(ctx context.Context, input SearchInput) ([]domain.RoomTypeAvailability, error)
	Book(ctx context.Context, userID int64, input BookInput) (*BookResult, error)
	ListMine(ctx context.Context, userID int64) ([]domain.ReservationSummary, error)
}

type AvailabilityCache interface {
	AvailabilityGeneration(ctx context.Context) (int64, error)
	GetAvailability(ctx context.Context, gen int64, q domain.SearchQuery) ([]domain.RoomTypeAvailability, bool, error)
	SetAvailability(ctx context.Context, gen int64, q domain.SearchQuery, items []domain.RoomTypeAvailability) error
	InvalidateAvailability(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type SearchInput struct {
	From   string
	To     string
	Guests string
}

type BookInput struct {
	RoomType  string `json:"room_type"`
	From      string `json:"from"`
	To        string `json:"to"`
	Adults    int    `json:"adults"`
	Children  int    `json:"children"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

type BookResult struct {
	ReservationID int64           `json:"reservation_id"`
	RoomID        int64           `json:"room_id"`
	RoomNumber    string          `json:"room_number"`
	RoomType      string          `json:"room_type"`
	CheckIn       string          `json:"check_in"`
	CheckOut      string          `json:"check_out"`
	Nights        int             `json:"nights"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
}

type StayService struct {
	rooms              repository.RoomRepository
	cache              AvailabilityCache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	metrics            *metrics.Metrics
	log                *slog.Logger
	loc                *time.Location
	now                func() time.Time
	listLimit          int
	publishTimeout     time.Duration
}

const defaultPublishTimeout = 2 * time.Second

type Option func(*StayService)

func WithCache(cache AvailabilityCache) Option {
	return func(s *StayService) { s.cache = cache }
}

func WithProducer(producer Producer, bookingTopic string) Option {
	return func(s *StayService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) Option {
	return func(s *StayService) { s.notificationsTopic = topic }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *StayService) { s.metrics = m }
}

// WithLocation sets the zone whose calendar day counts as "today".
func WithLocation(loc *time.Location) Option {
	return func(s *StayService) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *StayService) { s.now = now }
}

func WithListLimit(limit int) Option {
	return func(s *StayService) { s.listLimit = limit }
}

// WithPublishTimeout bounds the broker writes made after a commit.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *StayService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func NewStayService(rooms repository.RoomRepository, log *slog.Logger, opts ...Option) *StayService {
	s := &StayService{
		rooms:          rooms,
		log:            log,
		loc:            time.Local,
		now:            time.Now,
		listLimit:      50,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StayService) Search(ctx context.Context, input SearchInput) ([]domain.RoomTypeAvailability, error) {
	guests, err := domain.ParseGuests(input.Guests)
	if err != nil {
		return nil, err
	}
	q, err := domain.ParseSearch(input.From, input.To, guests, domain.Today(s.now(), s.loc))
	if err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.rooms.SearchAvailability(ctx, q)
	}

	gen, err := s.cache.AvailabilityGeneration(ctx)
	if err != nil {
		s.metrics.CacheLookup(metrics.CacheAvailability, "error")
		s.log.WarnContext(ctx, "availability cache unavailable", "error", err)
		return s.rooms.SearchAvailability(ctx, q)
	}
	if cached, ok, err := s.cache.GetAvailability(ctx, gen, q); err == nil && ok {
		s.metrics.CacheLookup(metrics.CacheAvailability, "hit")
		return cached, nil
	}
	s.metrics.CacheLookup(metrics.CacheAvailability, "miss")

	items, err := s.rooms.SearchAvailability(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetAvailability(ctx, gen, q, items); err != nil {
		s.log.WarnContext(ctx, "availability cache write failed", "error", err)
	}
	return items, nil
}

func (s *StayService) Book(ctx context.Context, userID int64, input BookInput) (*BookResult, error) {
	if userID <= 0 {
		return nil, domain.ErrAuthRequired
	}
	req, err := s.validate(userID, input)
	if err != nil {
		return nil, err
	}

	exists, err := s.rooms.RoomTypeExists(ctx, req.RoomType)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.NewNotFound("room type", req.RoomType)
	}

	start := time.Now()
	res, err := s.rooms.Reserve(ctx, req)
	s.metrics.ObserveWrite(metrics.OpBookRoom, err, time.Since(start))
	if err != nil {
		s.logFailure(ctx, err, "user_id", userID, "room_type", req.RoomType,
			"check_in", input.From, "check_out", input.To)
		return nil, err
	}

	s.log.InfoContext(ctx, "room booked",
		"reservation_id", res.ID,
		"user_id", userID,
		"room_id", res.RoomID,
		"nights", res.Nights,
		"total", res.Total.StringFixed(2),
	)

	if s.cache != nil {
		if err := s.cache.InvalidateAvailability(ctx); err != nil {
			s.log.WarnContext(ctx, "availability cache invalidation failed", "error", err)
		}
	}
	s.publish(ctx, kafka.NewReservationEvent(res, s.now()))

	return &BookResult{
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		RoomNumber:    res.RoomNumber,
		RoomType:      res.RoomType,
		CheckIn:       res.CheckIn.Format(domain.DateLayout),
		CheckOut:      res.CheckOut.Format(domain.DateLayout),
		Nights:        res.Nights,
		Total:         res.Total,
		Status:        string(res.Status),
	}, nil
}

func (s *StayService) ListMine(ctx context.Context, userID int64) ([]domain.ReservationSummary, error) {
	if userID <= 0 {
		return nil, domain.ErrAuthRequired
	}
	return s.rooms.ListByUser(ctx, userID, repository.NewestFirst, s.listLimit)
}

func (s *StayService) validate(userID int64, input BookInput) (domain.ReservationRequest, error) {
	roomType, err := domain.ParseRoomType(input.RoomType)
	if err != nil {
		return domain.ReservationRequest{}, err
	}
	stay, err := domain.ParseStay(input.From, input.To, domain.Today(s.now(), s.loc))
	if err != nil {
		return domain.ReservationRequest{}, err
	}
	occupancy := domain.Occupancy{Adults: input.Adults, Children: input.Children}
	if err := occupancy.Validate(); err != nil {
		return domain.ReservationRequest{}, err
	}
	guest, err := domain.GuestDetails{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Notes:     input.Notes,
	}.Normalize()
	if err != nil {
		return domain.ReservationRequest{}, err
	}
	return domain.ReservationRequest{
		UserID:    userID,
		RoomType:  roomType,
		Stay:      stay,
		Occupancy: occupancy,
		Guest:     guest,
	}, nil
}

func (s *StayService) logFailure(ctx context.Context, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	var cErr *domain.CapacityConflictError
	if errors.As(err, &cErr) {
		s.log.InfoContext(ctx, "room booking conflict", append(attrs, "remaining_known", cErr.RemainingKnown())...)
		return
	}
	if errors.Is(err, domain.ErrInfrastructure) {
		s.log.ErrorContext(ctx, "room booking failed", attrs...)
		return
	}
	s.log.InfoContext(ctx, "room booking rejected", attrs...)
}

// publish is best effort: the reservation is already committed.
func (s *StayService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	// the caller may already be gone; the response must not wait on the broker
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
		s.log.WarnContext(ctx, "publish booking event failed", "topic", s.bookingTopic, "event_id", event.ID.String(), "error", err)
	}
	if s.notificationsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
		s.log.WarnContext(ctx, "publish notification failed", "topic", s.notificationsTopic, "event_id", event.ID.String(), "error", err)
	}
}

var _ StayUseCase = (*StayService)(nil)
