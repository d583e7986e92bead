// README: Hourly rate store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"
	"log"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoRates = errors.New("no parking rates configured")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetRates(ctx context.Context) (map[Category]float64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT category, rate_per_hour
		FROM parking_rates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make(map[Category]float64)
	for rows.Next() {
		var raw string
		var rate float64
		if err := rows.Scan(&raw, &rate); err != nil {
			return nil, err
		}
		c, err := ParseCategory(raw)
		if err != nil {
			log.Printf("pricing: skipping rate row: %v", err)
			continue
		}
		rates[c] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, ErrNoRates
	}
	return rates, nil
}

func (s *Store) UpsertRate(ctx context.Context, c Category, ratePerHour float64) error {
	if !c.Valid() {
		return ErrUnknownCategory
	}
	if ratePerHour < 0 || math.IsNaN(ratePerHour) || math.IsInf(ratePerHour, 0) {
		return ErrInvalidRateTable
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO parking_rates (category, rate_per_hour, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (category) DO UPDATE
		SET rate_per_hour = EXCLUDED.rate_per_hour,
		    updated_at = NOW()`,
		string(c),
		ratePerHour,
	)
	return err
}
