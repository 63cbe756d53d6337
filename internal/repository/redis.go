package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zala/internal/config"
	"zala/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisScheduleCache keeps serialized room-day schedules in redis and
// backs the per-client rate limiter with INCR counters.
type RedisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisScheduleCache(client *redis.Client, ttl time.Duration) *RedisScheduleCache {
	return &RedisScheduleCache{
		client: client,
		ttl:    ttl,
	}
}

func scheduleKey(roomID int64, day string) string {
	return fmt.Sprintf("schedule:%d:%s", roomID, day)
}

func (r *RedisScheduleCache) GetRoomDay(ctx context.Context, roomID int64, day string) ([]*models.Booking, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}

	val, err := r.client.Get(ctx, scheduleKey(roomID, day)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get schedule from redis: %w", err)
	}

	var bookings []*models.Booking
	if err := json.Unmarshal([]byte(val), &bookings); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	return bookings, true, nil
}

func (r *RedisScheduleCache) SetRoomDay(ctx context.Context, roomID int64, day string, bookings []*models.Booking) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	data, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	if err := r.client.Set(ctx, scheduleKey(roomID, day), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set schedule in redis: %w", err)
	}
	return nil
}

func (r *RedisScheduleCache) InvalidateRoomDay(ctx context.Context, roomID int64, day string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, scheduleKey(roomID, day)).Err(); err != nil {
		return fmt.Errorf("failed to delete schedule from redis: %w", err)
	}
	return nil
}

func (r *RedisScheduleCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	redisKey := "rate_limit:" + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, redisKey, window)
	}
	return count <= int64(limit), nil
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
