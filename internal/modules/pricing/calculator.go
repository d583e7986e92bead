// README: Fare calculator; turns a closed ticket into a price.
package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrUnknownCategory  = errors.New("unknown parking category")
	ErrInvalidRateTable = errors.New("invalid rate table")
)

const (
	millisPerHour = 60 * 60 * 1000
	// Stays up to and including half an hour are free.
	graceHours = 0.5
)

// Calculator is immutable once built and may be shared between goroutines.
type Calculator struct {
	rates RateTable
}

func NewCalculator(rates RateTable) (*Calculator, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{rates: rates.clone()}, nil
}

// CalculateFare writes the fare for t into t.Price. On error t is left unchanged.
func (c *Calculator) CalculateFare(t *Ticket, applyDiscount bool) error {
	if t.OutTime == nil || t.OutTime.Before(t.InTime) {
		return fmt.Errorf("%w: out time provided is incorrect: %s", ErrInvalidTimeRange, outTimeString(t))
	}

	hours := float64(t.OutTime.UnixMilli()-t.InTime.UnixMilli()) / millisPerHour
	// Free stays are never charged, so the category is not consulted.
	if hours <= graceHours {
		t.Price = 0
		return nil
	}

	category := t.ParkingSpot.Category
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	rate, ok := c.rates.HourlyRates[category]
	if !ok {
		return fmt.Errorf("%w: no rate for %s", ErrUnknownCategory, category)
	}
	price := hours * rate
	if applyDiscount {
		price *= c.rates.DiscountFactor
	}
	t.Price = price
	return nil
}

// CalculateTicketFare applies the discount when the ticket's spot is discount eligible.
func (c *Calculator) CalculateTicketFare(t *Ticket) error {
	return c.CalculateFare(t, t.ParkingSpot.DiscountEligible)
}

func (c *Calculator) Rates() RateTable {
	return c.rates.clone()
}

func outTimeString(t *Ticket) string {
	if t.OutTime == nil {
		return "<nil>"
	}
	return t.OutTime.String()
}
