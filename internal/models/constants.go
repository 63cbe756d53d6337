package models

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// ActiveStatuses are the statuses that block overlapping bookings.
var ActiveStatuses = []string{StatusPending, StatusApproved}

const (
	// DefaultWorkStart/DefaultWorkEnd are wall-clock bounds applied when the
	// config leaves the booking policy empty.
	DefaultWorkStart = "08:00"
	DefaultWorkEnd   = "20:00"

	// DefaultTimezone is used to localize booking intervals.
	DefaultTimezone = "Local"

	// ScheduleCacheTTL is the lifetime of cached room-day schedules.
	ScheduleCacheTTL = 5 * 60 // seconds

	// RateLimitRequests is the per-client request budget within the window.
	RateLimitRequests = 30
	// RateLimitWindow is the rate limit window in seconds.
	RateLimitWindow = 60

	// WorkerQueueSize is the buffered size of the sheets sync queue.
	WorkerQueueSize = 1000

	// DefaultExportRangeDays is the calendar span exported when no range is given.
	DefaultExportRangeDays = 31
)
