// Package availability checks candidate intervals against stored reservations.
package availability

import (
	"strings"

	"besedka/internal/models"

	"github.com/rs/zerolog"
)

// BusySlot is a stored interval occupying a venue on a date. Malformed rows
// keep their raw text and block the whole day.
type BusySlot struct {
	Interval  models.TimeInterval
	From, To  string
	Malformed bool
}

func (b BusySlot) String() string {
	if b.Malformed {
		return strings.TrimSpace(b.From) + " – " + strings.TrimSpace(b.To)
	}
	return b.Interval.String()
}

// Checker scans reservation lists.
type Checker struct {
	logger *zerolog.Logger
}

// NewChecker creates a checker; a nil logger disables warnings.
func NewChecker(logger *zerolog.Logger) *Checker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Checker{logger: logger}
}

// BusySlots returns the intervals stored for venue on date, in store order.
func (c *Checker) BusySlots(venue string, date models.Date, existing []models.Reservation) []BusySlot {
	day := date.String()
	var out []BusySlot
	for _, r := range existing {
		if !models.SameVenue(r.Venue, venue) || strings.TrimSpace(r.Date) != day {
			continue
		}
		iv, err := r.Interval()
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("venue", r.Venue).
				Str("date", r.Date).
				Str("from", r.From).
				Str("to", r.To).
				Msg("Unparsable reservation interval, treating as busy")
			out = append(out, BusySlot{From: r.From, To: r.To, Malformed: true})
			continue
		}
		out = append(out, BusySlot{Interval: iv, From: r.From, To: r.To})
	}
	return out
}

// Conflicts returns the busy slots that overlap candidate.
func (c *Checker) Conflicts(venue string, date models.Date, candidate models.TimeInterval, existing []models.Reservation) []BusySlot {
	var out []BusySlot
	for _, b := range c.BusySlots(venue, date, existing) {
		if b.Malformed || b.Interval.Overlaps(candidate) {
			out = append(out, b)
		}
	}
	return out
}

// IsBusy reports whether candidate overlaps any reservation for venue on date.
func (c *Checker) IsBusy(venue string, date models.Date, candidate models.TimeInterval, existing []models.Reservation) bool {
	return len(c.Conflicts(venue, date, candidate, existing)) > 0
}
