// Package slots generates selectable start/end times within working hours
// and validates typed times against the same window.
package slots

import (
	"errors"
	"fmt"
	"strings"

	"besedka/internal/models"
)

// ErrOutsideWorkingHours is returned for well-formed times outside the window.
var ErrOutsideWorkingHours = errors.New("time outside working hours")

// Schedule describes the daily operating window.
type Schedule struct {
	WorkStart   int // hour, inclusive
	WorkEnd     int // hour, closing boundary
	StepMinutes int
	MinMinutes  int
}

// DefaultSchedule is 08:00-21:00 in 30 minute steps with a two hour minimum.
func DefaultSchedule() Schedule {
	return Schedule{WorkStart: 8, WorkEnd: 21, StepMinutes: 30, MinMinutes: 120}
}

func (s Schedule) normalized() Schedule {
	d := DefaultSchedule()
	if s.WorkStart <= 0 && s.WorkEnd <= 0 {
		s.WorkStart, s.WorkEnd = d.WorkStart, d.WorkEnd
	}
	if s.StepMinutes <= 0 {
		s.StepMinutes = d.StepMinutes
	}
	if s.MinMinutes <= 0 {
		s.MinMinutes = d.MinMinutes
	}
	return s
}

func (s Schedule) opening() models.TimeOfDay { return models.Clock(s.WorkStart, 0) }
func (s Schedule) closing() models.TimeOfDay { return models.Clock(s.WorkEnd, 0) }

// StartTimes lists every step boundary in [WorkStart:00, WorkEnd:00).
func (s Schedule) StartTimes() []models.TimeOfDay {
	s = s.normalized()
	var out []models.TimeOfDay
	for t := s.opening(); t < s.closing(); t += models.TimeOfDay(s.StepMinutes) {
		out = append(out, t)
	}
	return out
}

// EndTimes lists the step boundaries at least MinMinutes after start, up to
// and including the closing boundary. An empty result means start is too
// late in the day.
func (s Schedule) EndTimes(start models.TimeOfDay) []models.TimeOfDay {
	s = s.normalized()
	earliest := start + models.TimeOfDay(s.MinMinutes)
	var out []models.TimeOfDay
	for t := s.opening(); t <= s.closing(); t += models.TimeOfDay(s.StepMinutes) {
		if t >= earliest {
			out = append(out, t)
		}
	}
	return out
}

// OnGrid reports whether t is one of the step boundaries of the day.
func (s Schedule) OnGrid(t models.TimeOfDay) bool {
	s = s.normalized()
	return t >= s.opening() && t <= s.closing() && int(t-s.opening())%s.StepMinutes == 0
}

// ValidStart allows WorkStart <= HH < WorkEnd.
func (s Schedule) ValidStart(t models.TimeOfDay) bool {
	s = s.normalized()
	return t.Hour() >= s.WorkStart && t.Hour() < s.WorkEnd
}

// ValidEnd allows WorkStart < HH < WorkEnd, or exactly WorkEnd:00.
func (s Schedule) ValidEnd(t models.TimeOfDay) bool {
	s = s.normalized()
	h := t.Hour()
	return (h > s.WorkStart && h < s.WorkEnd) || (h == s.WorkEnd && t.Minute() == 0)
}

// ParseStart parses typed text as a start time.
func (s Schedule) ParseStart(text string) (models.TimeOfDay, error) {
	t, err := models.ParseTimeOfDay(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	if !s.ValidStart(t) {
		return 0, fmt.Errorf("%w: start %s", ErrOutsideWorkingHours, t)
	}
	return t, nil
}

// ParseEnd parses typed text as an end time.
func (s Schedule) ParseEnd(text string) (models.TimeOfDay, error) {
	t, err := models.ParseTimeOfDay(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	if !s.ValidEnd(t) {
		return 0, fmt.Errorf("%w: end %s", ErrOutsideWorkingHours, t)
	}
	return t, nil
}

// Window formats the operating window, e.g. "08:00 до 21:00".
func (s Schedule) Window() string {
	s = s.normalized()
	return fmt.Sprintf("%s до %s", s.opening(), s.closing())
}
