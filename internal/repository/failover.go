package repository

import (
	"context"
	"sync/atomic"
	"time"

	"zala/internal/domain"
	"zala/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverScheduleCache serves from the primary cache until it errors,
// then degrades to the fallback and probes the primary periodically.
type FailoverScheduleCache struct {
	primary   domain.ScheduleCache
	fallback  domain.ScheduleCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverScheduleCache(primary, fallback domain.ScheduleCache, logger *zerolog.Logger) *FailoverScheduleCache {
	return &FailoverScheduleCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverScheduleCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary schedule cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried: either it is
// healthy, or enough time has passed to probe it again.
func (r *FailoverScheduleCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if time.Since(last) > recoveryInterval {
		r.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverScheduleCache) GetRoomDay(ctx context.Context, roomID int64, day string) ([]*models.Booking, bool, error) {
	if r.usePrimary() {
		bookings, ok, err := r.primary.GetRoomDay(ctx, roomID, day)
		if err == nil {
			r.isDown.Store(false)
			return bookings, ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetRoomDay(ctx, roomID, day)
}

func (r *FailoverScheduleCache) SetRoomDay(ctx context.Context, roomID int64, day string, bookings []*models.Booking) error {
	if r.usePrimary() {
		err := r.primary.SetRoomDay(ctx, roomID, day, bookings)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetRoomDay(ctx, roomID, day, bookings)
}

// InvalidateRoomDay clears both sides so a stale entry cannot survive a
// failover in either direction.
func (r *FailoverScheduleCache) InvalidateRoomDay(ctx context.Context, roomID int64, day string) error {
	if r.usePrimary() {
		if err := r.primary.InvalidateRoomDay(ctx, roomID, day); err != nil {
			r.markDown(err)
		} else {
			r.isDown.Store(false)
		}
	}
	return r.fallback.InvalidateRoomDay(ctx, roomID, day)
}

func (r *FailoverScheduleCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
