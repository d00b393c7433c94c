package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/resortbooking/config"
	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Cached listings live under a generation number. A successful booking or
// signup bumps the generation, so readers never see a listing computed
// before the write that outdated it; old keys simply expire.
const (
	roomsGenKey  = "cache:rooms:gen"
	eventsGenKey = "cache:events:gen"
)

type RedisCache struct {
	client          *redis.Client
	availabilityTTL time.Duration
	eventsTTL       time.Duration
}

func NewRedisCache(cfg config.RedisConfig, availabilityTTL, eventsTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		availabilityTTL,
		eventsTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, availabilityTTL, eventsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, availabilityTTL: availabilityTTL, eventsTTL: eventsTTL}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) AvailabilityGeneration(ctx context.Context) (int64, error) {
	return c.generation(ctx, roomsGenKey)
}

func (c *RedisCache) GetAvailability(ctx context.Context, gen int64, q domain.SearchQuery) ([]domain.RoomTypeAvailability, bool, error) {
	var items []domain.RoomTypeAvailability
	ok, err := c.get(ctx, availabilityKey(gen, q), &items)
	return items, ok, err
}

func (c *RedisCache) SetAvailability(ctx context.Context, gen int64, q domain.SearchQuery, items []domain.RoomTypeAvailability) error {
	return c.set(ctx, availabilityKey(gen, q), items, c.availabilityTTL)
}

func (c *RedisCache) InvalidateAvailability(ctx context.Context) error {
	return c.client.Incr(ctx, roomsGenKey).Err()
}

func (c *RedisCache) EventsGeneration(ctx context.Context) (int64, error) {
	return c.generation(ctx, eventsGenKey)
}

func (c *RedisCache) GetEvents(ctx context.Context, gen int64) ([]domain.Event, bool, error) {
	var events []domain.Event
	ok, err := c.get(ctx, eventsKey(gen), &events)
	return events, ok, err
}

func (c *RedisCache) SetEvents(ctx context.Context, gen int64, events []domain.Event) error {
	return c.set(ctx, eventsKey(gen), events, c.eventsTTL)
}

func (c *RedisCache) InvalidateEvents(ctx context.Context) error {
	return c.client.Incr(ctx, eventsGenKey).Err()
}

func (c *RedisCache) generation(ctx context.Context, key string) (int64, error) {
	gen, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func availabilityKey(gen int64, q domain.SearchQuery) string {
	return fmt.Sprintf("cache:rooms:%d:%s:%s:%d", gen,
		q.Stay.CheckIn.Format(domain.DateLayout), q.Stay.CheckOut.Format(domain.DateLayout), q.Guests)
}

func eventsKey(gen int64) string {
	return fmt.Sprintf("cache:events:%d", gen)
}
