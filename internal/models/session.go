package models

import "time"

// ReservationRequest is the data one conversation has collected so far.
type ReservationRequest struct {
	VenueID     string    `json:"venue_id,omitempty"`
	VenueName   string    `json:"venue_name,omitempty"`
	HourlyPrice int64     `json:"hourly_price,omitempty"`
	Date        Date      `json:"date"`
	Start       TimeOfDay `json:"start"`
	End         TimeOfDay `json:"end"`
	HasStart    bool      `json:"has_start,omitempty"`
	HasEnd      bool      `json:"has_end,omitempty"`
	Name        string    `json:"name,omitempty"`
	Phone       string    `json:"phone,omitempty"`

	// Cached once the end time passes validation.
	BilledHalves int   `json:"billed_halves,omitempty"`
	Total        int64 `json:"total,omitempty"`

	// Calendar page currently shown.
	CalendarYear  int `json:"calendar_year,omitempty"`
	CalendarMonth int `json:"calendar_month,omitempty"`

	ReservationID string `json:"reservation_id,omitempty"`
}

// Interval returns the selected interval once both ends are set.
func (r ReservationRequest) Interval() (TimeInterval, bool) {
	if !r.HasStart || !r.HasEnd {
		return TimeInterval{}, false
	}
	return TimeInterval{From: r.Start, To: r.End}, true
}

// Reservation builds the row to persist.
func (r ReservationRequest) Reservation(status Status) Reservation {
	return Reservation{
		Venue:  r.VenueName,
		Date:   r.Date.String(),
		From:   r.Start.String(),
		To:     r.End.String(),
		Name:   r.Name,
		Phone:  r.Phone,
		Status: status,
	}
}

// UserSession is the persisted conversation state of one user.
type UserSession struct {
	UserID    int64              `json:"user_id"`
	ChatID    int64              `json:"chat_id"`
	State     string             `json:"state"`
	Request   ReservationRequest `json:"request"`
	UpdatedAt time.Time          `json:"updated_at"`
}
