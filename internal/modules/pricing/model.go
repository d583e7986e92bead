// README: Parking ticket, spot category and rate table definitions.
package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"parkfare/internal/config"
)

type Category string

const (
	CategoryCar  Category = "CAR"
	CategoryBike Category = "BIKE"
)

// Categories is the closed set of spot categories a rate can be charged for.
var Categories = []Category{CategoryCar, CategoryBike}

func (c Category) Valid() bool {
	switch c {
	case CategoryCar, CategoryBike:
		return true
	default:
		return false
	}
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

type ParkingSpot struct {
	ID       int
	Category Category
	// Read by CalculateTicketFare; CalculateFare takes the flag explicitly.
	DiscountEligible bool
}

type Ticket struct {
	ID               int
	ParkingSpot      ParkingSpot
	VehicleRegNumber string
	InTime           time.Time
	OutTime          *time.Time
	Price            float64
}

const (
	DefaultCarRatePerHour  = 1.5
	DefaultBikeRatePerHour = 1.0
	DefaultDiscountFactor  = 0.95
)

type RateTable struct {
	HourlyRates    map[Category]float64
	DiscountFactor float64
}

func DefaultRateTable() RateTable {
	return RateTable{
		HourlyRates: map[Category]float64{
			CategoryCar:  DefaultCarRatePerHour,
			CategoryBike: DefaultBikeRatePerHour,
		},
		DiscountFactor: DefaultDiscountFactor,
	}
}

func RateTableFromConfig(cfg config.FareConfig) RateTable {
	return RateTable{
		HourlyRates: map[Category]float64{
			CategoryCar:  cfg.CarRatePerHour,
			CategoryBike: cfg.BikeRatePerHour,
		},
		DiscountFactor: cfg.DiscountFactor,
	}
}

// Validate requires a finite non-negative rate for every category and a discount factor in (0, 1].
func (r RateTable) Validate() error {
	for _, c := range Categories {
		rate, ok := r.HourlyRates[c]
		if !ok {
			return fmt.Errorf("%w: missing rate for %s", ErrInvalidRateTable, c)
		}
		if !isFinite(rate) {
			return fmt.Errorf("%w: non-finite rate %v for %s", ErrInvalidRateTable, rate, c)
		}
		if rate < 0 {
			return fmt.Errorf("%w: negative rate %v for %s", ErrInvalidRateTable, rate, c)
		}
	}
	if !isFinite(r.DiscountFactor) || r.DiscountFactor <= 0 || r.DiscountFactor > 1 {
		return fmt.Errorf("%w: discount factor %v outside (0, 1]", ErrInvalidRateTable, r.DiscountFactor)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (r RateTable) clone() RateTable {
	rates := make(map[Category]float64, len(r.HourlyRates))
	for c, v := range r.HourlyRates {
		rates[c] = v
	}
	return RateTable{HourlyRates: rates, DiscountFactor: r.DiscountFactor}
}

// withRates returns a copy of r with the given hourly rates laid over it.
func (r RateTable) withRates(rates map[Category]float64) RateTable {
	out := r.clone()
	for c, v := range rates {
		out.HourlyRates[c] = v
	}
	return out
}
