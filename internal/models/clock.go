package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidTime is returned for strings that are not strict HH:MM.
var ErrInvalidTime = errors.New("invalid time of day")

var clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// TimeOfDay is a wall-clock time stored as minutes since midnight.
type TimeOfDay int

// Clock builds a TimeOfDay from hours and minutes.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts strictly HH:MM with HH in 00-23 and MM in 00-59.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := clockRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return Clock(h, mm), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// TimeInterval is a half-open range [From, To) within one day.
type TimeInterval struct {
	From TimeOfDay `json:"from"`
	To   TimeOfDay `json:"to"`
}

// ParseInterval parses a stored from/to pair.
func ParseInterval(from, to string) (TimeInterval, error) {
	f, err := ParseTimeOfDay(from)
	if err != nil {
		return TimeInterval{}, err
	}
	t, err := ParseTimeOfDay(to)
	if err != nil {
		return TimeInterval{}, err
	}
	return TimeInterval{From: f, To: t}, nil
}

// Minutes is the raw elapsed length of the interval.
func (i TimeInterval) Minutes() int {
	return int(i.To - i.From)
}

// Overlaps uses half-open semantics: touching endpoints do not overlap.
func (i TimeInterval) Overlaps(o TimeInterval) bool {
	return !(i.To <= o.From || i.From >= o.To)
}

func (i TimeInterval) String() string {
	return i.From.String() + " – " + i.To.String()
}
