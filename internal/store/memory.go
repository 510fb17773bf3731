package store

import (
	"context"
	"strconv"
	"sync"

	"besedka/internal/models"
)

// Memory keeps venues and reservations in process memory.
type Memory struct {
	mu           sync.RWMutex
	venues       []models.Venue
	reservations []models.Reservation
	nextID       int
}

// NewMemory creates a store seeded with venues.
func NewMemory(venues []models.Venue) *Memory {
	m := &Memory{nextID: 1}
	m.venues = append(m.venues, venues...)
	return m
}

func (m *Memory) ListVenues(_ context.Context) ([]models.Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Venue(nil), m.venues...), nil
}

func (m *Memory) ListReservations(_ context.Context) ([]models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Reservation(nil), m.reservations...), nil
}

func (m *Memory) AppendReservation(_ context.Context, r models.Reservation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = strconv.Itoa(m.nextID)
	m.nextID++
	m.reservations = append(m.reservations, r)
	return r.ID, nil
}

func (m *Memory) UpdateStatus(_ context.Context, match Match, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reservations {
		if match.Matches(m.reservations[i]) {
			m.reservations[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

// SyncVenues replaces the venue list.
func (m *Memory) SyncVenues(_ context.Context, venues []models.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.venues = append([]models.Venue(nil), venues...)
	return nil
}

// Seed appends rows as-is, including malformed ones.
func (m *Memory) Seed(rows ...models.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if r.ID == "" {
			r.ID = strconv.Itoa(m.nextID)
			m.nextID++
		}
		m.reservations = append(m.reservations, r)
	}
}
