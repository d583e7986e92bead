// README: Pricing service keeps the current rate table and computes parking fares.
package pricing

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

type RateSource interface {
	GetRates(ctx context.Context) (map[Category]float64, error)
}

type RateCache interface {
	Get(ctx context.Context) (map[Category]float64, error)
	Set(ctx context.Context, rates map[Category]float64) error
}

type Service struct {
	store    RateSource
	cache    RateCache
	defaults RateTable

	mu   sync.RWMutex
	calc *Calculator
}

// NewService starts from defaults; store and cache are optional.
func NewService(store RateSource, cache RateCache, defaults RateTable) (*Service, error) {
	calc, err := NewCalculator(defaults)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:    store,
		cache:    cache,
		defaults: defaults.clone(),
		calc:     calc,
	}, nil
}

// Refresh reloads hourly rates, preferring the cache over the store.
// Rates from the store are written back to the cache.
// The discount factor always comes from the defaults.
func (s *Service) Refresh(ctx context.Context) error {
	rates, err := s.loadRates(ctx)
	if err != nil {
		return err
	}
	if rates == nil {
		return nil
	}
	calc, err := NewCalculator(s.defaults.withRates(rates))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.calc = calc
	s.mu.Unlock()
	return nil
}

func (s *Service) loadRates(ctx context.Context) (map[Category]float64, error) {
	if s.cache != nil {
		rates, err := s.cache.Get(ctx)
		if err == nil {
			return rates, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("pricing: rate cache read failed: %v", err)
		}
	}
	if s.store == nil {
		return nil, nil
	}
	rates, err := s.store.GetRates(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, rates); err != nil {
			log.Printf("pricing: rate cache write failed: %v", err)
		}
	}
	return rates, nil
}

// Sync pushes store rates into the cache, bypassing any cached copy.
// Invalid rates are never cached.
func (s *Service) Sync(ctx context.Context) error {
	if s.store == nil || s.cache == nil {
		return errors.New("pricing: sync needs both a store and a cache")
	}
	rates, err := s.store.GetRates(ctx)
	if err != nil {
		return err
	}
	calc, err := NewCalculator(s.defaults.withRates(rates))
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, rates); err != nil {
		return err
	}
	s.mu.Lock()
	s.calc = calc
	s.mu.Unlock()
	return nil
}

func (s *Service) CalculateFare(t *Ticket, applyDiscount bool) error {
	s.mu.RLock()
	calc := s.calc
	s.mu.RUnlock()
	return calc.CalculateFare(t, applyDiscount)
}

func (s *Service) CalculateTicketFare(t *Ticket) error {
	return s.CalculateFare(t, t.ParkingSpot.DiscountEligible)
}

func (s *Service) Rates() RateTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc.Rates()
}

// RunRefresher is for processes that compute fares in-process: it keeps the
// rate table current by calling Refresh every interval until ctx is done.
// The ratesync worker drives Sync from cron instead.
func (s *Service) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Printf("pricing: rate refresh failed: %v", err)
			}
		}
	}
}
