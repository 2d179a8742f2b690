package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Booking
	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_attempts_total",
			Help: "Booking attempts by outcome.",
		},
		[]string{"result"},
	)
	bookingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_duration_seconds",
			Help:    "Time from booking request to commit or failure.",
			Buckets: prometheus.DefBuckets,
		},
	)
	bookingRollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_rollbacks_total",
			Help: "Bookings that reserved a seat and then rolled it back.",
		},
	)
	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flight_lock_wait_seconds",
			Help:    "Time spent waiting for the per-flight exclusive section.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// Schedule
	flightMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_mutations_total",
			Help: "Flight create/update/delete calls by outcome.",
		},
		[]string{"op", "result"},
	)

	// Inventory audit
	inventoryDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_drift_detected_total",
			Help: "Flights found with seats_available != seats_total - tickets.",
		},
	)

	// Cache
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flight_search_cache_total",
			Help: "Flight search cache lookups by outcome (hit, miss, error).",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingAttempts,
			bookingDuration,
			bookingRollbacks,
			lockWait,
			flightMutations,
			inventoryDrift,
			cacheLookups,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	c := strconv.Itoa(code)
	httpRequests.WithLabelValues(method, route, c).Inc()
	httpDuration.WithLabelValues(method, route, c).Observe(d.Seconds())
}

func ObserveBooking(result string, d time.Duration) {
	bookingAttempts.WithLabelValues(result).Inc()
	bookingDuration.Observe(d.Seconds())
}

func IncBookingRollback() {
	bookingRollbacks.Inc()
}

func ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}

func IncFlightMutation(op, result string) {
	flightMutations.WithLabelValues(op, result).Inc()
}

func IncInventoryDrift() {
	inventoryDrift.Inc()
}

func IncCacheLookup(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}
