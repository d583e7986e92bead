// README: Hourly rate cache backed by a Redis hash.
package pricing

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const ratesKey = "pricing:rates"

var ErrCacheMiss = errors.New("rate cache miss")

type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(redis *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: redis, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context) (map[Category]float64, error) {
	fields, err := c.redis.HGetAll(ctx, ratesKey).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}
	rates := make(map[Category]float64, len(fields))
	for k, v := range fields {
		cat, err := ParseCategory(k)
		if err != nil {
			log.Printf("pricing: skipping cached rate %q: %v", k, err)
			continue
		}
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Printf("pricing: bad cached rate for %s: %v", cat, err)
			continue
		}
		rates[cat] = rate
	}
	if len(rates) == 0 {
		return nil, ErrCacheMiss
	}
	return rates, nil
}

// Set replaces the cached rates and resets the TTL atomically.
func (c *Cache) Set(ctx context.Context, rates map[Category]float64) error {
	values := make(map[string]any, len(rates))
	for cat, rate := range rates {
		values[string(cat)] = strconv.FormatFloat(rate, 'g', -1, 64)
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, ratesKey)
		if len(values) > 0 {
			pipe.HSet(ctx, ratesKey, values)
		}
		if c.ttl > 0 {
			pipe.Expire(ctx, ratesKey, c.ttl)
		}
		return nil
	})
	return err
}
