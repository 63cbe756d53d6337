package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"zala/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "zala.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRoom(t *testing.T, db *DB, name string) *models.Room {
	t.Helper()
	room := &models.Room{Name: name, Capacity: 8, IsActive: true}
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return room
}

func TestCreateRoomUniqueName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &models.Room{Name: "Situation Room", Capacity: 10, IsActive: true}
	assert.NoError(t, db.CreateRoom(ctx, first))
	assert.NotZero(t, first.ID)

	dup := &models.Room{Name: "Situation Room", Capacity: 4, IsActive: true}
	err := db.CreateRoom(ctx, dup)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestGetRoomByIDNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRoomByID(context.Background(), 4242)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeleteRoomCascadesBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	room := newTestRoom(t, db, "Aquarium")

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	booking := &models.Booking{
		RoomID:   room.ID,
		RoomName: room.Name,
		UserID:   1,
		UserName: "ivan",
		Start:    start,
		End:      start.Add(time.Hour),
	}
	require.NoError(t, db.CreateBookingLocked(ctx, booking, nil))

	assert.NoError(t, db.DeleteRoom(ctx, room.ID))

	_, err := db.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestUpsertRoomRefreshesAttributes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	room := &models.Room{Name: "Library", Capacity: 6, IsActive: true}
	require.NoError(t, db.UpsertRoom(ctx, room))

	room.Capacity = 12
	room.HasProjector = true
	require.NoError(t, db.UpsertRoom(ctx, room))

	stored, err := db.GetRoomByName(ctx, "Library")
	require.NoError(t, err)
	assert.Equal(t, int64(12), stored.Capacity)
	assert.True(t, stored.HasProjector)
}

func TestCreateOrUpdateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &models.User{Username: "olena", FullName: "Olena K", IsStaff: true}
	require.NoError(t, db.CreateOrUpdateUser(ctx, user))
	assert.NotZero(t, user.ID)

	user.FullName = "Olena Kovalenko"
	require.NoError(t, db.CreateOrUpdateUser(ctx, user))

	stored, err := db.GetUserByUsername(ctx, "olena")
	require.NoError(t, err)
	assert.Equal(t, "Olena Kovalenko", stored.FullName)
	assert.True(t, stored.IsStaff)

	staff, err := db.GetStaffUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, staff, 1)
}
