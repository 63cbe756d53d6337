package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"zala/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCache struct {
	err   error
	calls int
}

func (f *failingCache) GetRoomDay(ctx context.Context, roomID int64, day string) ([]*models.Booking, bool, error) {
	f.calls++
	return nil, false, f.err
}

func (f *failingCache) SetRoomDay(ctx context.Context, roomID int64, day string, bookings []*models.Booking) error {
	f.calls++
	return f.err
}

func (f *failingCache) InvalidateRoomDay(ctx context.Context, roomID int64, day string) error {
	f.calls++
	return f.err
}

func (f *failingCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.calls++
	return false, f.err
}

func newFailoverUnderTest(primaryErr error) (*FailoverScheduleCache, *failingCache, *MemoryScheduleCache) {
	primary := &failingCache{err: primaryErr}
	fallback := NewMemoryScheduleCache(time.Hour)
	logger := zerolog.Nop()
	return NewFailoverScheduleCache(primary, fallback, &logger), primary, fallback
}

func TestFailoverHealthyPrimary(t *testing.T) {
	ctx := context.Background()

	primary := NewMemoryScheduleCache(time.Hour)
	fallback := NewMemoryScheduleCache(time.Hour)
	logger := zerolog.Nop()
	cache := NewFailoverScheduleCache(primary, fallback, &logger)

	require.NoError(t, cache.SetRoomDay(ctx, 3, "2025-06-02", testBookings()))

	// The write lands on the primary, not the fallback.
	_, ok, _ := primary.GetRoomDay(ctx, 3, "2025-06-02")
	assert.True(t, ok)
	_, ok, _ = fallback.GetRoomDay(ctx, 3, "2025-06-02")
	assert.False(t, ok)

	got, ok, err := cache.GetRoomDay(ctx, 3, "2025-06-02")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, got, 2)
}

func TestFailoverDegradesToFallback(t *testing.T) {
	ctx := context.Background()
	cache, primary, fallback := newFailoverUnderTest(errors.New("connection refused"))

	// First call hits the broken primary, then serves from the fallback.
	require.NoError(t, cache.SetRoomDay(ctx, 3, "2025-06-02", testBookings()))
	assert.Equal(t, 1, primary.calls)

	_, ok, _ := fallback.GetRoomDay(ctx, 3, "2025-06-02")
	assert.True(t, ok)

	// Subsequent calls skip the primary while it is marked down.
	got, ok, err := cache.GetRoomDay(ctx, 3, "2025-06-02")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, primary.calls)
}

func TestFailoverRateLimitFallsBack(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newFailoverUnderTest(errors.New("connection refused"))

	allowed, err := cache.CheckRateLimit(ctx, "client-a", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = cache.CheckRateLimit(ctx, "client-a", 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestFailoverInvalidateClearsFallback(t *testing.T) {
	ctx := context.Background()
	cache, _, fallback := newFailoverUnderTest(errors.New("connection refused"))

	require.NoError(t, cache.SetRoomDay(ctx, 3, "2025-06-02", testBookings()))
	require.NoError(t, cache.InvalidateRoomDay(ctx, 3, "2025-06-02"))

	_, ok, _ := fallback.GetRoomDay(ctx, 3, "2025-06-02")
	assert.False(t, ok)
}
