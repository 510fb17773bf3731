package booking

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"besedka/internal/availability"
	"besedka/internal/calendar"
	"besedka/internal/models"
	"besedka/internal/pricing"
	"besedka/internal/slots"
	"besedka/internal/store"
)

const (
	phaseAdvisory      = "advisory"
	phaseAuthoritative = "authoritative"
)

// Snapshot is the outside world as the machine sees it for one step.
type Snapshot struct {
	Today        models.Date
	Venues       []models.Venue
	Reservations []models.Reservation
}

// Outcome is the result of one step. Persist and Confirm are store effects
// the caller must execute before adopting State and Request.
type Outcome struct {
	State   State
	Request models.ReservationRequest
	Replies []Reply
	Persist *models.Reservation
	Confirm *models.ReservationKey
	Err     error
}

// MachineConfig holds the business rules.
type MachineConfig struct {
	Schedule       slots.Schedule
	PaymentDetails string
	PaymentTimeout time.Duration
}

// Machine is the reservation dialog as a pure transition function.
type Machine struct {
	schedule       slots.Schedule
	calc           pricing.Calculator
	checker        *availability.Checker
	paymentDetails string
	paymentTimeout time.Duration
	pick           func(n int) int
}

// NewMachine creates a machine. A nil checker logs nothing.
func NewMachine(cfg MachineConfig, checker *availability.Checker) *Machine {
	if checker == nil {
		checker = availability.NewChecker(nil)
	}
	if cfg.Schedule == (slots.Schedule{}) {
		cfg.Schedule = slots.DefaultSchedule()
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 30 * time.Minute
	}
	return &Machine{
		schedule:       cfg.Schedule,
		calc:           pricing.NewCalculator(cfg.Schedule.MinMinutes),
		checker:        checker,
		paymentDetails: cfg.PaymentDetails,
		paymentTimeout: cfg.PaymentTimeout,
		pick:           rand.Intn,
	}
}


// Needs reports which store reads a step requires.
func (m *Machine) Needs(state State, ev Event) (venues, reservations bool) {
	ev = resolve(state, ev)
	switch {
	case ev.Kind == EventStart:
		return true, false
	case state == StateChoosingVenue && ev.Kind == EventVenueSelected:
		return true, false
	case state == StateChoosingDate && ev.Kind == EventDateSelected:
		return false, true
	case state == StateChoosingEndTime && (ev.Kind == EventEndTimeSelected || ev.Kind == EventFreeTextTime):
		return false, true
	case state == StateEnteringPhone && ev.Kind == EventPhoneEntered:
		return false, true
	}
	return false, false
}

// Step applies ev to (state, req). It never mutates its inputs.
func (m *Machine) Step(state State, req models.ReservationRequest, ev Event, snap Snapshot) Outcome {
	ev = resolve(state, ev)

	switch ev.Kind {
	case EventStart:
		return m.start(snap)
	case EventCancel:
		return Outcome{State: StateIdle, Replies: []Reply{{Kind: ReplyMessage, Text: msgCancelled, Menu: true}}}
	}

	switch {
	case state == StateChoosingVenue && ev.Kind == EventVenueSelected:
		return m.selectVenue(req, ev, snap)
	case state == StateChoosingDate && ev.Kind == EventCalendarNavigate:
		return m.navigate(req, ev, snap)
	case state == StateChoosingDate && ev.Kind == EventDateSelected:
		return m.selectDate(req, ev, snap)
	case state == StateChoosingStartTime && (ev.Kind == EventStartTimeSelected || ev.Kind == EventFreeTextTime):
		return m.selectStart(req, ev)
	case state == StateChoosingEndTime && (ev.Kind == EventEndTimeSelected || ev.Kind == EventFreeTextTime):
		return m.selectEnd(req, ev, snap)
	case state == StateEnteringName && ev.Kind == EventNameEntered:
		return m.enterName(req, ev)
	case state == StateEnteringPhone && ev.Kind == EventPhoneEntered:
		return m.enterPhone(req, ev, snap)
	case state == StateAwaitingPaymentProof && ev.Kind == EventPaymentProof:
		return m.receiveProof(req, ev)
	case state == StateAwaitingPaymentProof && ev.Kind == EventText:
		return Outcome{State: state, Request: req, Replies: []Reply{message(msgAwaitProof)}}
	case state == StateIdle && ev.Kind == EventText:
		return Outcome{State: StateIdle, Replies: []Reply{{Kind: ReplyMessage, Text: msgIdle, Menu: true}}}
	}
	return m.stale(state, req, ev)
}

func (m *Machine) stale(state State, req models.ReservationRequest, ev Event) Outcome {
	err := fmt.Errorf("%w: %s in %s", ErrStaleAction, ev.Kind, state)
	if ev.Kind == EventText || ev.Kind == EventPaymentProof {
		text := msgUseButtons
		if p, ok := StatePrompts[state]; ok {
			text += "\n" + p
		}
		if state == StateIdle {
			return Outcome{State: StateIdle, Replies: []Reply{{Kind: ReplyMessage, Text: msgIdle, Menu: true}}, Err: err}
		}
		return Outcome{State: state, Request: req, Replies: []Reply{message(text)}, Err: err}
	}
	return Outcome{State: state, Request: req, Replies: []Reply{alert(msgStale)}, Err: err}
}

func (m *Machine) start(snap Snapshot) Outcome {
	if len(snap.Venues) == 0 {
		return Outcome{State: StateIdle, Replies: []Reply{{Kind: ReplyMessage, Text: msgNoVenues, Menu: true}}}
	}
	return Outcome{
		State:   StateChoosingVenue,
		Replies: []Reply{{Kind: ReplyVenues, Text: StatePrompts[StateChoosingVenue], Venues: snap.Venues}},
	}
}

func (m *Machine) selectVenue(req models.ReservationRequest, ev Event, snap Snapshot) Outcome {
	venue, ok := store.FindVenue(snap.Venues, ev.VenueID)
	if !ok {
		return Outcome{
			State:   StateChoosingVenue,
			Request: req,
			Replies: []Reply{{Kind: ReplyVenues, Text: msgVenueNotFound, Venues: snap.Venues}},
			Err:     fmt.Errorf("%w: unknown venue %q", ErrStaleAction, ev.VenueID),
		}
	}

	page := calendar.Generate(snap.Today, 0, 0)
	next := models.ReservationRequest{
		VenueID:       venue.ID,
		VenueName:     venue.Name,
		HourlyPrice:   venue.HourlyPrice,
		CalendarYear:  page.Year,
		CalendarMonth: int(page.Month),
	}
	return Outcome{
		State:   StateChoosingDate,
		Request: next,
		Replies: []Reply{{Kind: ReplyCalendar, Text: formatVenueChosen(venue.Name), Page: page, Edit: true}},
	}
}

func (m *Machine) navigate(req models.ReservationRequest, ev Event, snap Snapshot) Outcome {
	if ev.Month < 1 || ev.Month > 12 || ev.Year < 1 {
		return m.stale(StateChoosingDate, req, ev)
	}
	page := calendar.Generate(snap.Today, ev.Year, ev.Month)
	req.CalendarYear, req.CalendarMonth = page.Year, int(page.Month)
	return Outcome{
		State:   StateChoosingDate,
		Request: req,
		Replies: []Reply{{Kind: ReplyCalendar, Text: formatVenueChosen(req.VenueName), Page: page, Edit: true}},
	}
}

func (m *Machine) selectDate(req models.ReservationRequest, ev Event, snap Snapshot) Outcome {
	date, err := models.NewDate(ev.Year, ev.Month, ev.Day)
	if err != nil {
		return m.stale(StateChoosingDate, req, ev)
	}
	if date.Before(snap.Today) {
		return Outcome{
			State:   StateChoosingDate,
			Request: req,
			Replies: []Reply{alert(msgPastDate)},
			Err:     fmt.Errorf("%w: %s", ErrPastDate, date),
		}
	}

	req.Date = date
	req.HasStart, req.HasEnd = false, false
	busy := m.checker.BusySlots(req.VenueName, date, snap.Reservations)
	return Outcome{
		State:   StateChoosingStartTime,
		Request: req,
		Replies: []Reply{
			{Kind: ReplyMessage, Text: formatDateChosen(date, busy), Busy: busy},
			m.startChoices(StatePrompts[StateChoosingStartTime]),
		},
	}
}

func (m *Machine) startChoices(text string) Reply {
	return Reply{Kind: ReplyTimes, Text: text, Field: FieldStart, Times: m.schedule.StartTimes()}
}

func (m *Machine) selectStart(req models.ReservationRequest, ev Event) Outcome {
	start, err := m.schedule.ParseStart(ev.Text)
	if err != nil {
		return Outcome{
			State:   StateChoosingStartTime,
			Request: req,
			Replies: []Reply{message(formatInvalidTime(m.schedule.Window(), FieldStart))},
			Err:     fmt.Errorf("%w: %w", ErrInvalidTimeFormat, err),
		}
	}
	// Buttons only ever carry grid times.
	if ev.Kind == EventStartTimeSelected && !m.schedule.OnGrid(start) {
		return m.stale(StateChoosingStartTime, req, ev)
	}

	ends := m.schedule.EndTimes(start)
	if len(ends) == 0 {
		return Outcome{
			State:   StateChoosingStartTime,
			Request: req,
			Replies: []Reply{m.startChoices(formatNoEndTimes(start, m.calc.MinMinutes))},
			Err:     fmt.Errorf("%w: no end time after %s", ErrDurationTooShort, start),
		}
	}

	req.Start, req.HasStart = start, true
	req.HasEnd = false
	return Outcome{
		State:   StateChoosingEndTime,
		Request: req,
		Replies: []Reply{{Kind: ReplyTimes, Text: StatePrompts[StateChoosingEndTime], Field: FieldEnd, Times: ends}},
	}
}

func (m *Machine) selectEnd(req models.ReservationRequest, ev Event, snap Snapshot) Outcome {
	end, err := m.schedule.ParseEnd(ev.Text)
	if err != nil {
		return Outcome{
			State:   StateChoosingEndTime,
			Request: req,
			Replies: []Reply{message(formatInvalidTime(m.schedule.Window(), FieldEnd))},
			Err:     fmt.Errorf("%w: %w", ErrInvalidTimeFormat, err),
		}
	}
	if ev.Kind == EventEndTimeSelected && !m.schedule.OnGrid(end) {
		return m.stale(StateChoosingEndTime, req, ev)
	}
	if end <= req.Start {
		return Outcome{
			State:   StateChoosingEndTime,
			Request: req,
			Replies: []Reply{{Kind: ReplyTimes, Text: msgEndBeforeStart, Field: FieldEnd, Times: m.schedule.EndTimes(req.Start)}},
			Err:     fmt.Errorf("%w: %s <= %s", ErrEndNotAfterStart, end, req.Start),
		}
	}

	iv := models.TimeInterval{From: req.Start, To: end}
	quote, err := m.calc.Price(models.Venue{HourlyPrice: req.HourlyPrice}, iv)
	if err != nil {
		req.HasStart, req.HasEnd = false, false
		return Outcome{
			State:   StateChoosingStartTime,
			Request: req,
			Replies: []Reply{message(formatTooShort(m.calc.MinMinutes)), m.startChoices(StatePrompts[StateChoosingStartTime])},
			Err:     err,
		}
	}

	if out, busy := m.conflict(req, iv, snap, phaseAdvisory); busy {
		return out
	}

	req.End, req.HasEnd = end, true
	req.BilledHalves = quote.Hours.Halves()
	req.Total = quote.Total
	return Outcome{
		State:   StateEnteringName,
		Request: req,
		Replies: []Reply{message(formatIntervalChosen(iv, quote))},
	}
}

// conflict runs the availability check; a conflict abandons the attempt.
func (m *Machine) conflict(req models.ReservationRequest, iv models.TimeInterval, snap Snapshot, phase string) (Outcome, bool) {
	hits := m.checker.Conflicts(req.VenueName, req.Date, iv, snap.Reservations)
	if len(hits) == 0 {
		return Outcome{}, false
	}
	all := m.checker.BusySlots(req.VenueName, req.Date, snap.Reservations)
	return Outcome{
		State:   StateIdle,
		Request: req,
		Replies: []Reply{{Kind: ReplyConflict, Text: formatConflict(all), Busy: all, Menu: true}},
		Err:     &ConflictError{Phase: phase, Busy: hits},
	}, true
}

func (m *Machine) enterName(req models.ReservationRequest, ev Event) Outcome {
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		return Outcome{State: StateEnteringName, Request: req, Replies: []Reply{message(msgEmptyName)}, Err: fmt.Errorf("%w: name", ErrEmptyInput)}
	}
	req.Name = name
	return Outcome{
		State:   StateEnteringPhone,
		Request: req,
		Replies: []Reply{message(StatePrompts[StateEnteringPhone])},
	}
}

func (m *Machine) enterPhone(req models.ReservationRequest, ev Event, snap Snapshot) Outcome {
	phone := strings.TrimSpace(ev.Text)
	if phone == "" {
		return Outcome{State: StateEnteringPhone, Request: req, Replies: []Reply{message(msgEmptyPhone)}, Err: fmt.Errorf("%w: phone", ErrEmptyInput)}
	}
	iv, ok := req.Interval()
	if !ok {
		return m.stale(StateEnteringPhone, req, ev)
	}
	req.Phone = phone

	if out, busy := m.conflict(req, iv, snap, phaseAuthoritative); busy {
		return out
	}

	quote, err := m.calc.Price(models.Venue{HourlyPrice: req.HourlyPrice}, iv)
	if err != nil {
		return m.stale(StateEnteringPhone, req, ev)
	}
	req.BilledHalves, req.Total = quote.Hours.Halves(), quote.Total

	row := req.Reservation(models.StatusPending)
	return Outcome{
		State:   StateAwaitingPaymentProof,
		Request: req,
		Replies: []Reply{message(FormatPayment(req, quote, m.paymentDetails, m.paymentTimeout))},
		Persist: &row,
	}
}

func (m *Machine) receiveProof(req models.ReservationRequest, ev Event) Outcome {
	if ev.Proof.FileID == "" {
		return Outcome{State: StateAwaitingPaymentProof, Request: req, Replies: []Reply{message(msgAwaitProof)}}
	}
	proof := ev.Proof
	key := req.Reservation(models.StatusPending).Key()
	return Outcome{
		State:   StateConfirmed,
		Request: req,
		Replies: []Reply{
			{Kind: ReplyOperator, Text: FormatReceiptCaption(req), Proof: &proof},
			{Kind: ReplyMessage, Text: formatThanks(m.pick, req.Name), Menu: true},
		},
		Confirm: &key,
	}
}
