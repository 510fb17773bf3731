package models

import "strings"

// Status is the lifecycle state of a stored reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Venue is a rentable hut.
type Venue struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	HourlyPrice int64  `json:"hourly_price" yaml:"price"`
	Description string `json:"description" yaml:"description"`
	Photo       string `json:"photo,omitempty" yaml:"photo"`
}

// Reservation is a persisted booking row. From and To are kept as the raw
// stored strings so that dirty rows survive a round trip through the store.
type Reservation struct {
	ID     string `json:"id,omitempty"`
	Venue  string `json:"venue"`
	Date   string `json:"date"` // dd.mm.yyyy
	From   string `json:"from"` // HH:MM
	To     string `json:"to"`   // HH:MM
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Status Status `json:"status"`
}

// Interval parses the stored times.
func (r Reservation) Interval() (TimeInterval, error) {
	return ParseInterval(r.From, r.To)
}

// Key identifies the row a payment proof should confirm.
func (r Reservation) Key() ReservationKey {
	return ReservationKey{Venue: r.Venue, Date: r.Date, From: r.From, To: r.To}
}

// ReservationKey is the match predicate used to locate a pending row.
type ReservationKey struct {
	Venue string
	Date  string
	From  string
	To    string
}

// Matches reports whether r is the row described by k.
func (k ReservationKey) Matches(r Reservation) bool {
	return strings.TrimSpace(r.Venue) == strings.TrimSpace(k.Venue) &&
		strings.TrimSpace(r.Date) == strings.TrimSpace(k.Date) &&
		strings.TrimSpace(r.From) == strings.TrimSpace(k.From) &&
		strings.TrimSpace(r.To) == strings.TrimSpace(k.To)
}

// SameVenue compares venue names the way stored rows are matched:
// case-insensitive and ignoring surrounding whitespace.
func SameVenue(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
