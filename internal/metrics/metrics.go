package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zala",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	bookingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zala",
			Name:      "bookings_total",
			Help:      "Booking operations by kind and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zala",
			Name:      "booking_conflicts_total",
			Help:      "Proposals and approvals rejected because of a time conflict.",
		},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zala",
			Name:      "sync_tasks_total",
			Help:      "Sheets sync tasks by final status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsTotal, bookingConflicts, syncTasks)
	})
}

// IncHTTP increments the request counter for an endpoint and status code.
func IncHTTP(endpoint, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

// IncBooking counts a booking operation outcome, e.g. ("propose", "ok").
func IncBooking(operation, outcome string) {
	bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

// IncConflict counts a rejected overlap.
func IncConflict() {
	bookingConflicts.Inc()
}

// IncSyncTask counts a completed or failed sync task.
func IncSyncTask(status string) {
	syncTasks.WithLabelValues(status).Inc()
}
