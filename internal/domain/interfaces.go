package domain

import (
	"context"
	"time"

	"zala/internal/models"
)

// Repository is the persistence capability the services are written
// against. The sqlite store implements it; tests substitute mocks.
type Repository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	FindActiveOverlapping(ctx context.Context, roomID int64, start, end time.Time, excludeID int64, statuses []string) ([]*models.Booking, error)
	CreateBookingLocked(ctx context.Context, booking *models.Booking, blocking []string) error
	ApproveBookingLocked(ctx context.Context, booking *models.Booking, approverID int64, approvedAt time.Time, blocking []string) error
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string, approvedBy *int64, approvedAt *time.Time) error
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetRoomBookings(ctx context.Context, roomID int64, start, end time.Time) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	GetDailyBookings(ctx context.Context, start, end time.Time, loc *time.Location) (map[string][]*models.Booking, error)

	CreateRoom(ctx context.Context, room *models.Room) error
	UpsertRoom(ctx context.Context, room *models.Room) error
	UpdateRoom(ctx context.Context, room *models.Room) error
	DeactivateRoom(ctx context.Context, id int64) error
	DeleteRoom(ctx context.Context, id int64) error
	GetRoomByID(ctx context.Context, id int64) (*models.Room, error)
	GetRoomByName(ctx context.Context, name string) (*models.Room, error)
	GetActiveRooms(ctx context.Context) ([]*models.Room, error)
	GetAllRooms(ctx context.Context) ([]*models.Room, error)

	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetStaffUsers(ctx context.Context) ([]*models.User, error)
}

// ScheduleCache caches per-room day schedules and backs the API rate
// limiter. Implementations: redis, in-memory, and a failover pair.
type ScheduleCache interface {
	GetRoomDay(ctx context.Context, roomID int64, day string) ([]*models.Booking, bool, error)
	SetRoomDay(ctx context.Context, roomID int64, day string, bookings []*models.Booking) error
	InvalidateRoomDay(ctx context.Context, roomID int64, day string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventPublisher fans a booking lifecycle event out to in-process consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// SyncWorker accepts durable synchronization tasks for the Sheets mirror.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking, status string) error
	EnqueueScheduleRefresh(ctx context.Context, start, end time.Time) error
}

// SheetsWriter applies booking changes to the external spreadsheet.
type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
	UpdateScheduleSheet(ctx context.Context, start, end time.Time, daily map[string][]*models.Booking, rooms []*models.Room) error
}
