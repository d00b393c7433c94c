package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&domain.ValidationError{Field: "from", Reason: "x"}, "validation"},
		{domain.ErrAuthRequired, "unauthorized"},
		{domain.NewNotFound("event slot", 1), "not_found"},
		{fmt.Errorf("book: %w", domain.NewCapacityConflict("room type Deluxe", 0)), "conflict"},
		{domain.NewInfrastructure("reserve room", errors.New("boom")), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestObserveWrite(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveWrite(OpBookRoom, nil, 10*time.Millisecond)
	m.ObserveWrite(OpBookRoom, domain.NewCapacityConflict("room type Deluxe", 0), time.Millisecond)
	m.ObserveWrite(OpBookRoom, domain.NewCapacityConflict("room type Deluxe", 0), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues(OpBookRoom, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.writes.WithLabelValues(OpBookRoom, "conflict")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.writeLatency))
}

func TestCacheAndHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheLookup(CacheEvents, "hit")
	m.ObserveHTTP("POST", "/api/v1/rooms/book", 409, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheEvents, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/v1/rooms/book", "409")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveWrite(OpEventSignup, nil, time.Millisecond)
		m.CacheLookup(CacheAvailability, "miss")
		m.ObserveHTTP("GET", "/ping", 200, time.Millisecond)
	})
}
