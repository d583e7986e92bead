// README: Entry point; loads config, migrates and seeds the rate table, then syncs Postgres rates into Redis on a cron schedule.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"parkfare/internal/config"
	"parkfare/internal/infra"
	"parkfare/internal/modules/pricing"
)

func main() {
	seed := flag.Bool("seed", false, "upsert configured default rates before syncing")
	once := flag.Bool("once", false, "run a single sync and exit")
	migrations := flag.String("migrations", "migrations", "directory of SQL migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	defaults := pricing.RateTableFromConfig(cfg.Fare)
	if err := defaults.Validate(); err != nil {
		log.Fatalf("fare config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	if err := infra.ApplyMigrations(ctx, dbPool, *migrations); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pricingStore := pricing.NewStore(dbPool)
	if *seed {
		for _, c := range pricing.Categories {
			if err := pricingStore.UpsertRate(ctx, c, defaults.HourlyRates[c]); err != nil {
				log.Fatalf("seed %s rate: %v", c, err)
			}
		}
		log.Printf("Seeded rates: car=%.2f bike=%.2f", cfg.Fare.CarRatePerHour, cfg.Fare.BikeRatePerHour)
	}

	pricingCache := pricing.NewCache(redisClient, cfg.RateCache.TTL)
	pricingSvc, err := pricing.NewService(pricingStore, pricingCache, defaults)
	if err != nil {
		log.Fatal(err)
	}

	sync := func() {
		syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := pricingSvc.Sync(syncCtx); err != nil {
			log.Printf("Rate sync failed: %v", err)
			return
		}
		rates := pricingSvc.Rates()
		log.Printf("Rate sync done: car=%.2f bike=%.2f",
			rates.HourlyRates[pricing.CategoryCar], rates.HourlyRates[pricing.CategoryBike])
	}

	sync()
	if *once {
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Sync.Schedule, sync); err != nil {
		log.Fatalf("Failed to schedule rate sync %q: %v", cfg.Sync.Schedule, err)
	}
	c.Start()
	log.Printf("Rate sync scheduled: %s", cfg.Sync.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	log.Println("Rate sync stopped")
}
