package booking

import (
	"besedka/internal/availability"
	"besedka/internal/calendar"
	"besedka/internal/models"
)

// ReplyKind selects how the transport renders a reply.
type ReplyKind int

const (
	ReplyMessage ReplyKind = iota
	ReplyAlert
	ReplyVenues
	ReplyCalendar
	ReplyTimes
	ReplyConflict
	ReplyOperator
)

// TimeField says which end of the interval a time keyboard picks.
type TimeField string

const (
	FieldStart TimeField = "start"
	FieldEnd   TimeField = "end"
)

// Reply is an outbound effect produced by the machine or the engine.
type Reply struct {
	Kind ReplyKind
	Text string

	Venues []models.Venue
	Page   calendar.Page
	Edit   bool // replace the message the callback came from
	Field  TimeField
	Times  []models.TimeOfDay
	Busy   []availability.BusySlot
	Proof  *Proof
	// Mismatch flags an operator notice about a proof without a pending row.
	Mismatch bool
	// Menu asks the transport to show the main menu keyboard.
	Menu bool
}

func message(text string) Reply { return Reply{Kind: ReplyMessage, Text: text} }

func alert(text string) Reply { return Reply{Kind: ReplyAlert, Text: text} }
