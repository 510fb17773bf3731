// Package metrics exposes Prometheus counters for the booking flow.
package metrics

import (
	"sync"

	"besedka/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "besedka"

var (
	once sync.Once

	reservationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_events_total",
			Help:      "Count of reservation lifecycle events by type.",
		},
		[]string{"type"},
	)

	conflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Count of rejected intervals by check phase.",
		},
		[]string{"phase"},
	)

	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Count of failed store operations.",
		},
		[]string{"op"},
	)

	updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Count of handled Telegram updates by resulting state.",
		},
		[]string{"state"},
	)

	revenue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmed_revenue_rubles_total",
			Help:      "Sum of confirmed reservation totals.",
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of in-memory sessions.",
		},
	)

	handleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_handle_duration_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationEvents, conflicts, storeErrors, updates, revenue, activeSessions, handleDuration)
	})
}

// Subscribe feeds reservation events from bus into the counters.
func Subscribe(bus *events.Bus) {
	for _, t := range []string{
		events.ReservationCreated,
		events.ReservationConfirmed,
		events.ReservationConflict,
		events.ReservationMismatch,
		events.StoreError,
	} {
		bus.Subscribe(t, observe)
	}
}

func observe(ev events.Event) error {
	reservationEvents.WithLabelValues(ev.Type).Inc()

	p, err := ev.Decode()
	if err != nil {
		return err
	}
	switch ev.Type {
	case events.ReservationConflict:
		conflicts.WithLabelValues(p.Phase).Inc()
	case events.StoreError:
		storeErrors.WithLabelValues(p.Op).Inc()
	case events.ReservationConfirmed:
		revenue.Add(float64(p.Total))
	}
	return nil
}

func IncUpdate(state string) {
	updates.WithLabelValues(state).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func ObserveHandleDuration(seconds float64) {
	handleDuration.Observe(seconds)
}
