package stays

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/Domenick1991/resortbooking/internal/kafka"
	"github.com/Domenick1991/resortbooking/internal/repository"
	"github.com/Domenick1991/resortbooking/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) SearchAvailability(ctx context.Context, q domain.SearchQuery) ([]domain.RoomTypeAvailability, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RoomTypeAvailability), args.Error(1)
}

func (m *MockRoomRepository) RoomTypeExists(ctx context.Context, roomType string) (bool, error) {
	args := m.Called(ctx, roomType)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) Reserve(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockRoomRepository) ListByUser(ctx context.Context, userID int64, order repository.ReservationOrder, limit int) ([]domain.ReservationSummary, error) {
	args := m.Called(ctx, userID, order, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReservationSummary), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AvailabilityGeneration(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) GetAvailability(ctx context.Context, gen int64, q domain.SearchQuery) ([]domain.RoomTypeAvailability, bool, error) {
	args := m.Called(ctx, gen, q)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.RoomTypeAvailability), args.Bool(1), args.Error(2)
}

func (m *MockCache) SetAvailability(ctx context.Context, gen int64, q domain.SearchQuery, items []domain.RoomTypeAvailability) error {
	args := m.Called(ctx, gen, q, items)
	return args.Error(0)
}

func (m *MockCache) InvalidateAvailability(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

// publishCtx matches the detached, deadline-bounded context used for broker writes.
var publishCtx = mock.MatchedBy(func(ctx context.Context) bool {
	_, ok := ctx.Deadline()
	return ok && ctx.Err() == nil
})

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(repo repository.RoomRepository, opts ...Option) *StayService {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	}, opts...)
	return NewStayService(repo, discardLogger(), opts...)
}

func validInput() BookInput {
	return BookInput{
		RoomType:  "Standard",
		From:      "2026-10-18",
		To:        "2026-10-20",
		Adults:    2,
		Children:  1,
		FirstName: " Ann ",
		LastName:  "Lee",
		Phone:     "+48 600 000 000",
	}
}

func TestStayService_Search_CacheMiss(t *testing.T) {
	repo := &MockRoomRepository{}
	cache := &MockCache{}
	service := newService(repo, WithCache(cache))
	ctx := context.Background()

	items := []domain.RoomTypeAvailability{{RoomType: "Standard", MinPrice: decimal.NewFromInt(100), TotalRooms: 1, AvailableRooms: 1}}

	cache.On("AvailabilityGeneration", ctx).Return(int64(4), nil).Once()
	cache.On("GetAvailability", ctx, int64(4), mock.AnythingOfType("domain.SearchQuery")).Return(nil, false, nil).Once()
	repo.On("SearchAvailability", ctx, mock.MatchedBy(func(q domain.SearchQuery) bool {
		return q.Guests == 2 && q.Stay.Nights == 2
	})).Return(items, nil).Once()
	cache.On("SetAvailability", ctx, int64(4), mock.AnythingOfType("domain.SearchQuery"), items).Return(nil).Once()

	got, err := service.Search(ctx, SearchInput{From: "2026-10-18", To: "2026-10-20", Guests: "2"})

	require.NoError(t, err)
	assert.Equal(t, items, got)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestStayService_Search_CacheHit(t *testing.T) {
	repo := &MockRoomRepository{}
	cache := &MockCache{}
	service := newService(repo, WithCache(cache))
	ctx := context.Background()

	items := []domain.RoomTypeAvailability{{RoomType: "Suite"}}
	cache.On("AvailabilityGeneration", ctx).Return(int64(0), nil).Once()
	cache.On("GetAvailability", ctx, int64(0), mock.Anything).Return(items, true, nil).Once()

	got, err := service.Search(ctx, SearchInput{From: "2026-10-18", To: "2026-10-19"})

	require.NoError(t, err)
	assert.Equal(t, items, got)
	repo.AssertNotCalled(t, "SearchAvailability", mock.Anything, mock.Anything)
}

func TestStayService_Search_CacheDown(t *testing.T) {
	repo := &MockRoomRepository{}
	cache := &MockCache{}
	service := newService(repo, WithCache(cache))
	ctx := context.Background()

	cache.On("AvailabilityGeneration", ctx).Return(int64(0), errors.New("dial tcp: connection refused")).Once()
	repo.On("SearchAvailability", ctx, mock.Anything).Return([]domain.RoomTypeAvailability{}, nil).Once()

	got, err := service.Search(ctx, SearchInput{From: "2026-10-18", To: "2026-10-19"})

	require.NoError(t, err)
	assert.Empty(t, got)
	cache.AssertNotCalled(t, "SetAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStayService_Search_Invalid(t *testing.T) {
	repo := &MockRoomRepository{}
	service := newService(repo)

	testCases := []struct {
		name  string
		input SearchInput
		field string
	}{
		{"past", SearchInput{From: "2026-10-16", To: "2026-10-18"}, "from"},
		{"reversed", SearchInput{From: "2026-10-19", To: "2026-10-18"}, "to"},
		{"guests", SearchInput{From: "2026-10-18", To: "2026-10-19", Guests: "zero"}, "guests"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Search(context.Background(), tc.input)
			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
	repo.AssertNotCalled(t, "SearchAvailability", mock.Anything, mock.Anything)
}

func TestStayService_Book_Success(t *testing.T) {
	repo := &MockRoomRepository{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newService(repo,
		WithCache(cache),
		WithProducer(producer, "booking_topic"),
		WithNotificationsTopic("notifications_topic"),
	)
	ctx := context.Background()

	reserved := &domain.Reservation{
		ID:         10,
		RoomID:     3,
		RoomNumber: "103",
		RoomType:   "Standard",
		UserID:     7,
		CheckIn:    time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Nights:     2,
		Total:      decimal.NewFromInt(200),
		Status:     domain.ReservationStatusConfirmed,
	}

	repo.On("RoomTypeExists", ctx, "Standard").Return(true, nil).Once()
	repo.On("Reserve", ctx, mock.MatchedBy(func(req domain.ReservationRequest) bool {
		return req.UserID == 7 &&
			req.Occupancy.Total() == 3 &&
			req.Guest.FirstName == "Ann" &&
			req.Stay.Nights == 2
	})).Return(reserved, nil).Once()
	cache.On("InvalidateAvailability", ctx).Return(nil).Once()
	isReservationEvent := mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventReservationConfirmed && e.ReservationID == 10
	})
	producer.On("Publish", publishCtx, "booking_topic", "7", isReservationEvent).Return(nil).Once()
	producer.On("Publish", publishCtx, "notifications_topic", "7", isReservationEvent).Return(nil).Once()

	result, err := service.Book(ctx, 7, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(10), result.ReservationID)
	assert.Equal(t, int64(3), result.RoomID)
	assert.Equal(t, 2, result.Nights)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "2026-10-18", result.CheckIn)
	assert.Equal(t, "CONFIRMED", result.Status)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestStayService_Book_RequiresUser(t *testing.T) {
	repo := &MockRoomRepository{}
	service := newService(repo)

	_, err := service.Book(context.Background(), 0, validInput())

	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	repo.AssertNotCalled(t, "RoomTypeExists", mock.Anything, mock.Anything)
}

func TestStayService_Book_ValidationNeverTouchesStore(t *testing.T) {
	repo := &MockRoomRepository{}
	service := newService(repo)

	testCases := []struct {
		name   string
		mutate func(*BookInput)
		field  string
	}{
		{"no room type", func(in *BookInput) { in.RoomType = " " }, "room_type"},
		{"past", func(in *BookInput) { in.From = "2026-10-01" }, "from"},
		{"no adults", func(in *BookInput) { in.Adults = 0 }, "adults"},
		{"negative children", func(in *BookInput) { in.Children = -1 }, "children"},
		{"too many adults", func(in *BookInput) { in.Adults = domain.MaxPartySize + 1 }, "adults"},
		{"party over limit", func(in *BookInput) { in.Adults, in.Children = 60, 41 }, "children"},
		{"stay longer than a year", func(in *BookInput) { in.To = "9999-12-31" }, "to"},
		{"short name", func(in *BookInput) { in.LastName = "L" }, "last_name"},
		{"long notes", func(in *BookInput) { in.Notes = strings.Repeat("n", 401) }, "notes"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			_, err := service.Book(context.Background(), 7, input)

			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
	repo.AssertNotCalled(t, "RoomTypeExists", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestStayService_Book_UnknownRoomType(t *testing.T) {
	repo := &MockRoomRepository{}
	service := newService(repo)
	ctx := context.Background()

	repo.On("RoomTypeExists", ctx, "Standard").Return(false, nil).Once()

	_, err := service.Book(ctx, 7, validInput())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestStayService_Book_ConflictSkipsSideEffects(t *testing.T) {
	repo := &MockRoomRepository{}
	cache := &MockCache{}
	producer := &MockProducer{}
	service := newService(repo, WithCache(cache), WithProducer(producer, "booking_topic"))
	ctx := context.Background()

	repo.On("RoomTypeExists", ctx, "Standard").Return(true, nil).Once()
	repo.On("Reserve", ctx, mock.Anything).Return(nil, domain.NewCapacityConflict("room type Standard", 0)).Once()

	_, err := service.Book(ctx, 7, validInput())

	assert.ErrorIs(t, err, domain.ErrCapacityConflict)
	cache.AssertNotCalled(t, "InvalidateAvailability", mock.Anything)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStayService_Book_PublishFailureIsNotFatal(t *testing.T) {
	repo := &MockRoomRepository{}
	producer := &MockProducer{}
	service := newService(repo, WithProducer(producer, "booking_topic"))
	ctx := context.Background()

	repo.On("RoomTypeExists", ctx, "Standard").Return(true, nil).Once()
	repo.On("Reserve", ctx, mock.Anything).Return(&domain.Reservation{ID: 1, UserID: 7, Nights: 2, Total: decimal.NewFromInt(200)}, nil).Once()
	producer.On("Publish", publishCtx, "booking_topic", "7", mock.Anything).Return(errors.New("kafka down")).Once()

	result, err := service.Book(ctx, 7, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ReservationID)
	producer.AssertExpectations(t)
}

func TestStayService_Book_PublishOutlivesCanceledRequest(t *testing.T) {
	repo := &MockRoomRepository{}
	producer := &MockProducer{}
	service := newService(repo,
		WithProducer(producer, "booking_topic"),
		WithPublishTimeout(50*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())

	repo.On("RoomTypeExists", ctx, "Standard").Return(true, nil).Once()
	repo.On("Reserve", ctx, mock.Anything).Run(func(mock.Arguments) {
		// client disconnects right after the commit
		cancel()
	}).Return(&domain.Reservation{ID: 1, UserID: 7, Nights: 2, Total: decimal.NewFromInt(200)}, nil).Once()

	var deadline time.Time
	producer.On("Publish", publishCtx, "booking_topic", "7", mock.Anything).Run(func(args mock.Arguments) {
		deadline, _ = args.Get(0).(context.Context).Deadline()
	}).Return(nil).Once()

	start := time.Now()
	result, err := service.Book(ctx, 7, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.ReservationID)
	assert.WithinDuration(t, start.Add(50*time.Millisecond), deadline, time.Second)
	producer.AssertExpectations(t)
}

func TestStayService_Book_OversizedPartyNeverReserved(t *testing.T) {
	store := memory.NewStore()
	store.AddRoom(domain.Room{ID: 1, RoomType: "Standard", Number: "101", Price: decimal.NewFromInt(100), MaxGuests: 2, Active: true})
	service := newService(store)

	input := validInput()
	input.Adults = math.MaxInt
	input.Children = 1

	_, err := service.Book(context.Background(), 7, input)

	assert.ErrorIs(t, err, domain.ErrValidation)
	mine, err := service.ListMine(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestStayService_ListMine(t *testing.T) {
	repo := &MockRoomRepository{}
	service := newService(repo, WithListLimit(20))
	ctx := context.Background()

	summaries := []domain.ReservationSummary{{ID: 2}, {ID: 1}}
	repo.On("ListByUser", ctx, int64(7), repository.NewestFirst, 20).Return(summaries, nil).Once()

	got, err := service.ListMine(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, summaries, got)

	_, err = service.ListMine(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestStayService_StandardRoomScenario(t *testing.T) {
	store := memory.NewStore()
	store.AddRoom(domain.Room{ID: 1, RoomType: "Standard", Number: "101", Price: decimal.NewFromInt(100), MaxGuests: 2, Active: true})
	service := newService(store)
	ctx := context.Background()

	search := SearchInput{From: "2026-10-18", To: "2026-10-20", Guests: "1"}
	items, err := service.Search(ctx, search)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].AvailableRooms)

	input := validInput()
	input.Children = 0
	result, err := service.Book(ctx, 7, input)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Nights)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(200)))

	items, err = service.Search(ctx, search)
	require.NoError(t, err)
	assert.Equal(t, 0, items[0].AvailableRooms)

	_, err = service.Book(ctx, 8, input)
	assert.ErrorIs(t, err, domain.ErrCapacityConflict)
}
