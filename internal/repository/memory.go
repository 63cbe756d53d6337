package repository

import (
	"context"
	"sync"
	"time"

	"zala/internal/models"
)

// MemoryScheduleCache is the in-process fallback used when redis is
// disabled or down. Entries expire lazily on read.
type MemoryScheduleCache struct {
	schedules  sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryScheduleCache(ttl time.Duration) *MemoryScheduleCache {
	return &MemoryScheduleCache{
		ttl: ttl,
	}
}

type scheduleEntry struct {
	bookings  []*models.Booking
	expiresAt time.Time
}

func (r *MemoryScheduleCache) GetRoomDay(ctx context.Context, roomID int64, day string) ([]*models.Booking, bool, error) {
	key := scheduleKey(roomID, day)
	val, ok := r.schedules.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*scheduleEntry)
	if time.Now().After(entry.expiresAt) {
		r.schedules.Delete(key)
		return nil, false, nil
	}
	return entry.bookings, true, nil
}

func (r *MemoryScheduleCache) SetRoomDay(ctx context.Context, roomID int64, day string, bookings []*models.Booking) error {
	r.schedules.Store(scheduleKey(roomID, day), &scheduleEntry{
		bookings:  bookings,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryScheduleCache) InvalidateRoomDay(ctx context.Context, roomID int64, day string) error {
	r.schedules.Delete(scheduleKey(roomID, day))
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryScheduleCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
