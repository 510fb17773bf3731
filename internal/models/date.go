package models

import (
	"fmt"
	"time"
)

// DateLayout is the stored date format.
const DateLayout = "02.01.2006"

// Date is a calendar day without a time component.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// NewDate validates the triple, rejecting days like 31.02.
func NewDate(year, month, day int) (Date, error) {
	if month < 1 || month > 12 || day < 1 {
		return Date{}, fmt.Errorf("invalid date %02d.%02d.%d", day, month, year)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return Date{}, fmt.Errorf("invalid date %02d.%02d.%d", day, month, year)
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// DateOf returns the calendar day of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses dd.mm.yyyy.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

func (d Date) IsZero() bool {
	return d.Year == 0
}

func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}
