package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"besedka/internal/events"
	"besedka/internal/models"
	"besedka/internal/store"

	"github.com/rs/zerolog"
)

// SessionRepository keeps one conversation per user.
type SessionRepository interface {
	Get(ctx context.Context, userID int64) (*models.UserSession, error)
	Save(ctx context.Context, s *models.UserSession) error
	Clear(ctx context.Context, userID int64) error
}

// Publisher receives domain events.
type Publisher interface {
	Publish(event events.Event)
}

// EngineConfig controls session lifetime.
type EngineConfig struct {
	SessionTimeout time.Duration
	PaymentTimeout time.Duration
	Location       *time.Location
}

// Result is what the transport needs after one event.
type Result struct {
	State   State
	Replies []Reply
	Err     error
}

// Engine runs the machine against the store and the session repository.
// Callers must serialise events of one user.
type Engine struct {
	machine  *Machine
	store    store.Store
	sessions SessionRepository
	bus      Publisher
	cfg      EngineConfig
	now      func() time.Time
	logger   *zerolog.Logger
}

// NewEngine wires the engine. bus may be nil.
func NewEngine(machine *Machine, st store.Store, sessions SessionRepository, bus Publisher, cfg EngineConfig, logger *zerolog.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Minute
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = machine.paymentTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Engine{
		machine:  machine,
		store:    st,
		sessions: sessions,
		bus:      bus,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Today returns the current date in the configured location.
func (e *Engine) Today() models.Date {
	return models.DateOf(e.now().In(e.cfg.Location))
}

// State returns the current state of a user's conversation.
func (e *Engine) State(ctx context.Context, userID int64) (State, error) {
	sess, err := e.sessions.Get(ctx, userID)
	if err != nil || sess == nil {
		return StateIdle, err
	}
	return ParseState(sess.State), nil
}

func (e *Engine) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return e.logger
}

// Handle processes one event for one user.
func (e *Engine) Handle(ctx context.Context, userID, chatID int64, ev Event) Result {
	l := e.log(ctx)
	now := e.now().In(e.cfg.Location)

	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return e.abandon(ctx, userID, &StoreError{Op: "get_session", Err: err})
	}

	state := StateIdle
	var req models.ReservationRequest
	if sess != nil {
		state = ParseState(sess.State)
		req = sess.Request
		if !state.Terminal() && e.expired(state, sess.UpdatedAt, now) {
			l.Info().Int64("user_id", userID).Str("state", string(state)).Msg("Conversation expired")
			e.clear(ctx, userID)
			state, req = StateIdle, models.ReservationRequest{}
			if ev.Kind != EventStart && ev.Kind != EventCancel {
				return Result{
					State:   StateIdle,
					Replies: []Reply{{Kind: ReplyMessage, Text: msgExpired, Menu: true}},
					Err:     ErrSessionExpired,
				}
			}
		}
	}

	snap := Snapshot{Today: models.DateOf(now)}
	needVenues, needReservations := e.machine.Needs(state, ev)
	if needVenues {
		if snap.Venues, err = e.store.ListVenues(ctx); err != nil {
			return e.abandon(ctx, userID, &StoreError{Op: "list_venues", Err: err})
		}
	}
	if needReservations {
		if snap.Reservations, err = e.store.ListReservations(ctx); err != nil {
			return e.abandon(ctx, userID, &StoreError{Op: "list_reservations", Err: err})
		}
	}

	out := e.machine.Step(state, req, ev, snap)

	if out.Persist != nil {
		id, err := e.store.AppendReservation(ctx, *out.Persist)
		if err != nil {
			return e.abandon(ctx, userID, &StoreError{Op: "append_reservation", Err: err})
		}
		out.Request.ReservationID = id
		l.Info().
			Int64("user_id", userID).
			Str("reservation_id", id).
			Str("venue", out.Persist.Venue).
			Str("date", out.Persist.Date).
			Str("interval", out.Persist.From+"-"+out.Persist.To).
			Msg("Pending reservation recorded")
		e.publish(events.ReservationCreated, userID, out.Request, nil)
	}

	if out.Confirm != nil {
		out = e.confirm(ctx, userID, out)
	}

	var conflict *ConflictError
	if errors.As(out.Err, &conflict) {
		l.Info().
			Int64("user_id", userID).
			Str("phase", conflict.Phase).
			Str("venue", out.Request.VenueName).
			Str("date", out.Request.Date.String()).
			Msg("Slot conflict, attempt abandoned")
		e.publish(events.ReservationConflict, userID, out.Request, func(p *events.ReservationPayload) { p.Phase = conflict.Phase })
	} else if out.Err != nil {
		l.Debug().Err(out.Err).Int64("user_id", userID).Str("state", string(state)).Msg("Input rejected")
	}

	if out.State.Terminal() {
		e.clear(ctx, userID)
	} else {
		next := &models.UserSession{UserID: userID, ChatID: chatID, State: string(out.State), Request: out.Request, UpdatedAt: now}
		if err := e.sessions.Save(ctx, next); err != nil {
			l.Error().Err(err).Int64("user_id", userID).Msg("Failed to save session")
		}
	}

	if out.State != state {
		l.Debug().
			Int64("user_id", userID).
			Str("from", string(state)).
			Str("to", string(out.State)).
			Str("event", ev.Kind.String()).
			Msg("State transition")
	}
	return Result{State: out.State, Replies: out.Replies, Err: out.Err}
}

func (e *Engine) confirm(ctx context.Context, userID int64, out Outcome) Outcome {
	l := e.log(ctx)
	err := e.store.UpdateStatus(ctx, store.PendingMatch(*out.Confirm), models.StatusConfirmed)
	if err == nil {
		l.Info().Int64("user_id", userID).Str("venue", out.Confirm.Venue).Str("date", out.Confirm.Date).Msg("Reservation confirmed")
		e.publish(events.ReservationConfirmed, userID, out.Request, nil)
		return out
	}

	var cause error
	if errors.Is(err, store.ErrNotFound) {
		out.Err = fmt.Errorf("%w: %s %s %s-%s", ErrReconciliationMismatch, out.Confirm.Venue, out.Confirm.Date, out.Confirm.From, out.Confirm.To)
	} else {
		cause = &StoreError{Op: "update_status", Err: err}
		out.Err = fmt.Errorf("%w: %w", ErrReconciliationMismatch, cause)
		e.publish(events.StoreError, userID, out.Request, func(p *events.ReservationPayload) {
			p.Op, p.Error = "update_status", err.Error()
		})
	}
	l.Warn().Err(out.Err).Int64("user_id", userID).Msg("Payment proof could not be reconciled")
	e.publish(events.ReservationMismatch, userID, out.Request, nil)
	out.Replies = append(out.Replies, Reply{Kind: ReplyOperator, Text: FormatMismatch(out.Request, cause), Mismatch: true})
	return out
}

// abandon drops the conversation after a store failure.
func (e *Engine) abandon(ctx context.Context, userID int64, serr *StoreError) Result {
	e.log(ctx).Error().Err(serr.Err).Str("op", serr.Op).Int64("user_id", userID).Msg("Store unavailable, conversation abandoned")
	e.publish(events.StoreError, userID, models.ReservationRequest{}, func(p *events.ReservationPayload) {
		p.Op, p.Error = serr.Op, serr.Err.Error()
	})
	e.clear(ctx, userID)
	return Result{
		State:   StateIdle,
		Replies: []Reply{{Kind: ReplyMessage, Text: msgStoreFailure, Menu: true}},
		Err:     serr,
	}
}

// Reset drops the user's conversation without a reply.
func (e *Engine) Reset(ctx context.Context, userID int64) {
	e.clear(ctx, userID)
}

func (e *Engine) clear(ctx context.Context, userID int64) {
	if err := e.sessions.Clear(ctx, userID); err != nil {
		e.log(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to clear session")
	}
}

func (e *Engine) expired(state State, updated, now time.Time) bool {
	timeout := e.cfg.SessionTimeout
	if state == StateAwaitingPaymentProof {
		timeout = e.cfg.PaymentTimeout
	}
	return timeout > 0 && now.Sub(updated) > timeout
}

func (e *Engine) publish(eventType string, userID int64, req models.ReservationRequest, edit func(*events.ReservationPayload)) {
	if e.bus == nil {
		return
	}
	p := events.ReservationPayload{
		UserID: userID,
		Venue:  req.VenueName,
		Total:  req.Total,
	}
	if !req.Date.IsZero() {
		p.Date = req.Date.String()
	}
	if req.HasStart {
		p.From = req.Start.String()
	}
	if req.HasEnd {
		p.To = req.End.String()
	}
	if edit != nil {
		edit(&p)
	}
	e.bus.Publish(events.New(eventType, p))
}
