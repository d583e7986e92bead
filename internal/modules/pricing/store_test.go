// README: DB/Redis-backed rate store and cache tests (skipped without test infra).
package pricing

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func TestStore_UpsertAndGetRates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetRates(ctx); !errors.Is(err, ErrNoRates) {
		t.Fatalf("empty table: expected ErrNoRates, got %v", err)
	}

	if err := store.UpsertRate(ctx, CategoryCar, 2.0); err != nil {
		t.Fatalf("upsert car: %v", err)
	}
	if err := store.UpsertRate(ctx, CategoryBike, 0.5); err != nil {
		t.Fatalf("upsert bike: %v", err)
	}
	if err := store.UpsertRate(ctx, CategoryCar, 1.75); err != nil {
		t.Fatalf("re-upsert car: %v", err)
	}

	rates, err := store.GetRates(ctx)
	if err != nil {
		t.Fatalf("get rates: %v", err)
	}
	if rates[CategoryCar] != 1.75 || rates[CategoryBike] != 0.5 {
		t.Errorf("unexpected rates: %v", rates)
	}
}

func TestStore_GetRatesSkipsUnknownCategories(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.db.Exec(ctx, `INSERT INTO parking_rates (category, rate_per_hour) VALUES ('TRUCK', 9)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.GetRates(ctx); !errors.Is(err, ErrNoRates) {
		t.Fatalf("expected ErrNoRates with only unknown rows, got %v", err)
	}
}

func TestStore_TableRejectsNonFiniteRates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"NaN", "Infinity"} {
		if _, err := store.db.Exec(ctx, `INSERT INTO parking_rates (category, rate_per_hour) VALUES ('CAR', $1::float8)`, v); err == nil {
			t.Errorf("expected check violation for rate %s", v)
		}
	}
}

func TestStore_UpsertRejectsBadInput(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if err := store.UpsertRate(ctx, "TRUCK", 1); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
	for _, rate := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := store.UpsertRate(ctx, CategoryCar, rate); !errors.Is(err, ErrInvalidRateTable) {
			t.Errorf("rate %v: expected ErrInvalidRateTable, got %v", rate, err)
		}
	}
}

func TestCache_SetAndGet(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	if _, err := cache.Get(ctx); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss on empty cache, got %v", err)
	}
	want := map[Category]float64{CategoryCar: 1.5, CategoryBike: 1.0}
	if err := cache.Set(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for c, v := range want {
		if got[c] != v {
			t.Errorf("%s: got %v, want %v", c, got[c], v)
		}
	}
	ttl, err := cache.redis.TTL(ctx, ratesKey).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}
}

func TestService_RefreshEndToEnd(t *testing.T) {
	store := setupTestStore(t)
	cache := setupTestCache(t)
	ctx := context.Background()

	if err := store.UpsertRate(ctx, CategoryCar, 3); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	svc, err := NewService(store, cache, DefaultRateTable())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := svc.Rates().HourlyRates[CategoryCar]; got != 3 {
		t.Errorf("car rate = %v, want 3", got)
	}
	cached, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	if cached[CategoryCar] != 3 {
		t.Errorf("cached car rate = %v, want 3", cached[CategoryCar])
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("PARKFARE_TEST_DSN")
	if dsn == "" {
		t.Skip("PARKFARE_TEST_DSN not set; skipping DB-backed rate tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migration, err := os.ReadFile(filepath.Join(repoRoot(t), "migrations", "0001_parking_rates.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(ctx, string(migration)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE parking_rates"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewStore(db)
}

func setupTestCache(t *testing.T) *Cache {
	t.Helper()

	addr := os.Getenv("PARKFARE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PARKFARE_TEST_REDIS_ADDR not set; skipping Redis-backed rate tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	if err := client.Del(ctx, ratesKey).Err(); err != nil {
		t.Fatalf("reset cache: %v", err)
	}
	return NewCache(client, time.Minute)
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate test file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..")
}
