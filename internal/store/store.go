// Package store defines the narrow interface the booking engine uses to read
// venues and reservations and to record new ones.
package store

import (
	"context"
	"errors"
	"strings"

	"besedka/internal/models"
)

// ErrNotFound is returned by UpdateStatus when no row matches.
var ErrNotFound = errors.New("reservation not found")

// Store is a tabular reservation backend.
type Store interface {
	ListVenues(ctx context.Context) ([]models.Venue, error)
	ListReservations(ctx context.Context) ([]models.Reservation, error)
	AppendReservation(ctx context.Context, r models.Reservation) (string, error)
	UpdateStatus(ctx context.Context, match Match, status models.Status) error
}

// VenueSyncer is implemented by backends whose venue list comes from the
// venue file rather than from the store itself.
type VenueSyncer interface {
	SyncVenues(ctx context.Context, venues []models.Venue) error
}

// Match selects the row a status update applies to. An empty Status matches
// any status.
type Match struct {
	Key    models.ReservationKey
	Status models.Status
}

// PendingMatch selects the pending row with the given key.
func PendingMatch(key models.ReservationKey) Match {
	return Match{Key: key, Status: models.StatusPending}
}

// Matches reports whether r satisfies m.
func (m Match) Matches(r models.Reservation) bool {
	if m.Status != "" && m.Status != r.Status {
		return false
	}
	return m.Key.Matches(r)
}

// FindVenue looks a venue up by id, falling back to a case-insensitive name match.
func FindVenue(venues []models.Venue, id string) (models.Venue, bool) {
	id = strings.TrimSpace(id)
	for _, v := range venues {
		if v.ID == id {
			return v, true
		}
	}
	for _, v := range venues {
		if models.SameVenue(v.Name, id) {
			return v, true
		}
	}
	return models.Venue{}, false
}
