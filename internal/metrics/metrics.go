package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OpBookRoom    = "book_room"
	OpEventSignup = "event_signup"

	CacheAvailability = "availability"
	CacheEvents       = "events"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	writes       *prometheus.CounterVec
	writeLatency *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		writes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_writes_total",
				Help: "Booking and signup attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		writeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booking_write_duration_seconds",
				Help:    "Duration of booking and signup transactions",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"operation"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_cache_lookups_total",
				Help: "Listing cache lookups by result",
			},
			[]string{"cache", "result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Outcome names the error class of a write result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrAuthRequired):
		return "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCapacityConflict):
		return "conflict"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveWrite(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(op, Outcome(err)).Inc()
	m.writeLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(cache, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
