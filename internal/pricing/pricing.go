// Package pricing turns a reserved interval into billed hours and a total.
package pricing

import (
	"errors"
	"fmt"
	"strconv"

	"besedka/internal/models"
)

// DefaultMinMinutes is the shortest reservation that can be billed.
const DefaultMinMinutes = 120

// ErrDurationTooShort is returned for intervals below the minimum length.
var ErrDurationTooShort = errors.New("duration too short")

// Hours is a billed duration counted in half-hour units.
type Hours struct {
	halves int
}

// HalfHours builds Hours from a count of half-hour units.
func HalfHours(n int) Hours { return Hours{halves: n} }

// WholeHours builds Hours from whole hours.
func WholeHours(n int) Hours { return Hours{halves: n * 2} }

func (h Hours) Halves() int { return h.halves }

// String renders 3 as "3" and 2.5 as "2.5".
func (h Hours) String() string {
	if h.halves%2 == 0 {
		return strconv.Itoa(h.halves / 2)
	}
	return strconv.Itoa(h.halves/2) + ".5"
}

// Calculator applies the rounding and minimum-length rules.
type Calculator struct {
	MinMinutes int
}

// NewCalculator returns a calculator with the given minimum; non-positive
// values fall back to DefaultMinMinutes.
func NewCalculator(minMinutes int) Calculator {
	if minMinutes <= 0 {
		minMinutes = DefaultMinMinutes
	}
	return Calculator{MinMinutes: minMinutes}
}

// BilledHours rounds the interval length: whole hours stay, a remainder of
// up to 30 minutes adds half an hour, anything more adds a full hour.
func (c Calculator) BilledHours(i models.TimeInterval) (Hours, error) {
	minMinutes := c.MinMinutes
	if minMinutes <= 0 {
		minMinutes = DefaultMinMinutes
	}
	delta := i.Minutes()
	if delta < minMinutes {
		return Hours{}, fmt.Errorf("%w: %d min, need %d", ErrDurationTooShort, delta, minMinutes)
	}
	return roundMinutes(delta), nil
}

// Quote is a computed price for one interval.
type Quote struct {
	HourlyPrice int64
	Hours       Hours
	Total       int64
}

// Price computes floor(hourly * billed hours).
func (c Calculator) Price(venue models.Venue, i models.TimeInterval) (Quote, error) {
	h, err := c.BilledHours(i)
	if err != nil {
		return Quote{}, err
	}
	return Quote{HourlyPrice: venue.HourlyPrice, Hours: h, Total: Total(venue.HourlyPrice, h)}, nil
}

// Total multiplies an hourly price by billed hours, rounding down.
func Total(hourly int64, h Hours) int64 {
	return hourly * int64(h.halves) / 2
}

func roundMinutes(delta int) Hours {
	hours, rem := delta/60, delta%60
	switch {
	case rem == 0:
		return WholeHours(hours)
	case rem <= 30:
		return HalfHours(hours*2 + 1)
	default:
		return WholeHours(hours + 1)
	}
}

// Breakdown renders "1000₽/час × 3 ч = 3000₽".
func (q Quote) Breakdown() string {
	return fmt.Sprintf("%d₽/час × %s ч = %d₽", q.HourlyPrice, q.Hours, q.Total)
}
