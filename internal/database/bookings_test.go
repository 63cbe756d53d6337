package database

import (
	"context"
	"testing"
	"time"

	"zala/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreateBooking(t *testing.T, db *DB, room *models.Room, userID int64, start, end time.Time) *models.Booking {
	t.Helper()
	b := &models.Booking{
		RoomID:   room.ID,
		RoomName: room.Name,
		UserID:   userID,
		UserName: "user",
		Start:    start,
		End:      end,
	}
	require.NoError(t, db.CreateBookingLocked(context.Background(), b, nil))
	return b
}

func TestCreateBookingLockedConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Boardroom")

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	mustCreateBooking(t, db, room, 1, start, start.Add(time.Hour))

	// Overlapping interval is refused.
	overlapping := &models.Booking{
		RoomID: room.ID, RoomName: room.Name, UserID: 2, UserName: "other",
		Start: start.Add(30 * time.Minute), End: start.Add(45 * time.Minute),
	}
	err := db.CreateBookingLocked(ctx, overlapping, nil)
	assert.ErrorIs(t, err, ErrTimeConflict)

	// Back-to-back interval is not an overlap.
	adjacent := &models.Booking{
		RoomID: room.ID, RoomName: room.Name, UserID: 2, UserName: "other",
		Start: start.Add(time.Hour), End: start.Add(2 * time.Hour),
	}
	assert.NoError(t, db.CreateBookingLocked(ctx, adjacent, nil))
}

func TestCreateBookingLockedOtherRoomIndependent(t *testing.T) {
	db := newTestDB(t)
	roomA := newTestRoom(t, db, "Room A")
	roomB := newTestRoom(t, db, "Room B")

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	mustCreateBooking(t, db, roomA, 1, start, start.Add(time.Hour))
	// Same interval in another room is fine.
	mustCreateBooking(t, db, roomB, 2, start, start.Add(time.Hour))
}

func TestFindActiveOverlapping(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Attic")

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	b := mustCreateBooking(t, db, room, 1, start, start.Add(time.Hour))

	found, err := db.FindActiveOverlapping(ctx, room.ID, start.Add(30*time.Minute), start.Add(90*time.Minute), 0, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	// Excluding the booking itself finds nothing.
	found, err = db.FindActiveOverlapping(ctx, room.ID, b.Start, b.End, b.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	// Cancelled bookings stop blocking.
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusCancelled, nil, nil))
	found, err = db.FindActiveOverlapping(ctx, room.ID, b.Start, b.End, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestApproveBookingLocked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Vault")

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	b := mustCreateBooking(t, db, room, 1, start, start.Add(time.Hour))

	approvedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.ApproveBookingLocked(ctx, b, 7, approvedAt, nil))
	assert.Equal(t, models.StatusApproved, b.Status)
	assert.Equal(t, int64(2), b.Version)

	stored, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, int64(7), *stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)
	assert.True(t, stored.ApprovedAt.Equal(approvedAt))
}

func TestApproveBookingLockedStaleVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Cellar")

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	b := mustCreateBooking(t, db, room, 1, start, start.Add(time.Hour))

	// Someone cancels the booking behind the approver's back.
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusCancelled, nil, nil))

	err := db.ApproveBookingLocked(ctx, b, 7, time.Now(), nil)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestUpdateBookingStatusWithVersionStale(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Garage")

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	b := mustCreateBooking(t, db, room, 1, start, start.Add(time.Hour))

	err := db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version+5, models.StatusRejected, nil, nil)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestGetRoomBookingsWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Loft")

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mustCreateBooking(t, db, room, 1, day.Add(10*time.Hour), day.Add(11*time.Hour))
	mustCreateBooking(t, db, room, 2, day.Add(11*time.Hour), day.Add(12*time.Hour))
	mustCreateBooking(t, db, room, 3, day.AddDate(0, 0, 1).Add(10*time.Hour), day.AddDate(0, 0, 1).Add(11*time.Hour))

	got, err := db.GetRoomBookings(ctx, room.ID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	all, err := db.GetBookingsByDateRange(ctx, day, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetDailyBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Nook")

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mustCreateBooking(t, db, room, 1, day.Add(9*time.Hour), day.Add(10*time.Hour))
	mustCreateBooking(t, db, room, 2, day.AddDate(0, 0, 1).Add(9*time.Hour), day.AddDate(0, 0, 1).Add(10*time.Hour))

	daily, err := db.GetDailyBookings(ctx, day, day.AddDate(0, 0, 2), time.UTC)
	require.NoError(t, err)
	assert.Len(t, daily, 2)
	assert.Len(t, daily["2025-06-02"], 1)
	assert.Len(t, daily["2025-06-03"], 1)
}
