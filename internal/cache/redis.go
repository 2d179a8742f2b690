package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/domain"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetFlights returns nil, nil on a miss.
func (c *RedisCache) GetFlights(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, searchKey(filter)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

// SetFlights stores a search result and records its key in the index set so
// InvalidateFlights can drop every cached search without SCAN.
func (c *RedisCache) SetFlights(ctx context.Context, filter domain.FlightFilter, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}

	key := searchKey(filter)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, payload, c.flightsTTL)
	pipe.SAdd(ctx, searchIndexKey(), key)
	pipe.Expire(ctx, searchIndexKey(), 2*c.flightsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, searchIndexKey()).Result()
	if err != nil {
		return err
	}
	keys = append(keys, searchIndexKey())
	return c.client.Del(ctx, keys...).Err()
}

// Locker returns a cross-instance per-flight lock backed by this client.
func (c *RedisCache) Locker(ttl time.Duration) *RedisLocker {
	return NewRedisLocker(c.client, ttl)
}

func searchIndexKey() string {
	return "cache:flights:keys"
}

// cache:flights:search:origin={o}:destination={d}:date={YYYY-MM-DD|any}
func searchKey(filter domain.FlightFilter) string {
	date := "any"
	if !filter.Date.IsZero() {
		date = filter.Date.UTC().Format(time.DateOnly)
	}
	return fmt.Sprintf("cache:flights:search:origin=%s:destination=%s:date=%s",
		keyPart(filter.Origin), keyPart(filter.Destination), date)
}

func keyPart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "any"
	}
	return url.PathEscape(s)
}

func flightLockKey(flightID string) string {
	return fmt.Sprintf("lock:flight:%s", flightID)
}
