// Package events is an in-process pub/sub bus for reservation events.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types published by the booking engine.
const (
	ReservationCreated   = "reservation.created"
	ReservationConfirmed = "reservation.confirmed"
	ReservationConflict  = "reservation.conflict"
	ReservationMismatch  = "reservation.mismatch"
	StoreError           = "store.error"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// ReservationPayload describes the reservation an event is about.
type ReservationPayload struct {
	UserID int64  `json:"user_id"`
	Venue  string `json:"venue,omitempty"`
	Date   string `json:"date,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Total  int64  `json:"total,omitempty"`
	Phase  string `json:"phase,omitempty"` // advisory or authoritative
	Op     string `json:"op,omitempty"`    // failed store operation
	Error  string `json:"error,omitempty"`
}

// New encodes payload as JSON.
func New(eventType string, payload ReservationPayload) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: eventType, Payload: data, CreatedAt: time.Now()}
}

// Decode unmarshals the payload.
func (e Event) Decode() (ReservationPayload, error) {
	var p ReservationPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *zerolog.Logger) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bus{subscribers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run
// synchronously on the caller's goroutine.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("Event handler failed")
		}
	}
}
