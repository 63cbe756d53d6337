package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryScheduleCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryScheduleCache(time.Hour)

	t.Run("SetAndGetRoomDay", func(t *testing.T) {
		want := testBookings()
		require.NoError(t, cache.SetRoomDay(ctx, 3, "2025-06-02", want))

		got, ok, err := cache.GetRoomDay(ctx, 3, "2025-06-02")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("Miss", func(t *testing.T) {
		_, ok, err := cache.GetRoomDay(ctx, 99, "2025-06-02")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, cache.SetRoomDay(ctx, 4, "2025-06-02", testBookings()))
		require.NoError(t, cache.InvalidateRoomDay(ctx, 4, "2025-06-02"))

		_, ok, _ := cache.GetRoomDay(ctx, 4, "2025-06-02")
		assert.False(t, ok)
	})

	t.Run("Expiry", func(t *testing.T) {
		short := NewMemoryScheduleCache(time.Millisecond)
		require.NoError(t, short.SetRoomDay(ctx, 5, "2025-06-02", testBookings()))

		time.Sleep(5 * time.Millisecond)

		_, ok, _ := short.GetRoomDay(ctx, 5, "2025-06-02")
		assert.False(t, ok)
	})

	t.Run("RateLimit", func(t *testing.T) {
		allowed, err := cache.CheckRateLimit(ctx, "client-a", 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, _ = cache.CheckRateLimit(ctx, "client-a", 2, time.Hour)
		assert.True(t, allowed)

		allowed, _ = cache.CheckRateLimit(ctx, "client-a", 2, time.Hour)
		assert.False(t, allowed)

		// Independent keys do not share a budget.
		allowed, _ = cache.CheckRateLimit(ctx, "client-b", 2, time.Hour)
		assert.True(t, allowed)
	})

	t.Run("RateLimitWindowReset", func(t *testing.T) {
		allowed, _ := cache.CheckRateLimit(ctx, "client-c", 1, time.Millisecond)
		assert.True(t, allowed)

		allowed, _ = cache.CheckRateLimit(ctx, "client-c", 1, time.Millisecond)
		assert.False(t, allowed)

		time.Sleep(5 * time.Millisecond)

		allowed, _ = cache.CheckRateLimit(ctx, "client-c", 1, time.Millisecond)
		assert.True(t, allowed)
	})
}
