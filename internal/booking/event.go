package booking

// EventKind identifies a user input routed to the machine.
type EventKind int

const (
	EventStart EventKind = iota
	EventCancel
	EventVenueSelected
	EventCalendarNavigate
	EventDateSelected
	EventStartTimeSelected
	EventEndTimeSelected
	EventFreeTextTime
	EventNameEntered
	EventPhoneEntered
	EventPaymentProof
	// EventText is plain text whose meaning depends on the current state.
	EventText
)

var eventNames = map[EventKind]string{
	EventStart:             "start",
	EventCancel:            "cancel",
	EventVenueSelected:     "venue_selected",
	EventCalendarNavigate:  "calendar_navigate",
	EventDateSelected:      "date_selected",
	EventStartTimeSelected: "start_time_selected",
	EventEndTimeSelected:   "end_time_selected",
	EventFreeTextTime:      "free_text_time",
	EventNameEntered:       "name_entered",
	EventPhoneEntered:      "phone_entered",
	EventPaymentProof:      "payment_proof",
	EventText:              "text",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return "unknown"
}

// ProofKind tells the transport how to forward a payment proof.
type ProofKind string

const (
	ProofPhoto    ProofKind = "photo"
	ProofDocument ProofKind = "document"
)

// Proof is an opaque reference to an uploaded receipt.
type Proof struct {
	Kind   ProofKind
	FileID string
}

// Event is one user input.
type Event struct {
	Kind EventKind

	VenueID string
	Year    int
	Month   int
	Day     int
	Text    string // time label or typed text
	Proof   Proof
}

func Start() Event { return Event{Kind: EventStart} }
func Cancel() Event { return Event{Kind: EventCancel} }
func VenueSelected(id string) Event { return Event{Kind: EventVenueSelected, VenueID: id} }
func StartTimeSelected(t string) Event { return Event{Kind: EventStartTimeSelected, Text: t} }
func EndTimeSelected(t string) Event { return Event{Kind: EventEndTimeSelected, Text: t} }
func FreeTextTime(raw string) Event { return Event{Kind: EventFreeTextTime, Text: raw} }
func NameEntered(text string) Event { return Event{Kind: EventNameEntered, Text: text} }
func PhoneEntered(text string) Event { return Event{Kind: EventPhoneEntered, Text: text} }
func Text(text string) Event { return Event{Kind: EventText, Text: text} }

func CalendarNavigate(year, month int) Event {
	return Event{Kind: EventCalendarNavigate, Year: year, Month: month}
}

func DateSelected(year, month, day int) Event {
	return Event{Kind: EventDateSelected, Year: year, Month: month, Day: day}
}

func PaymentProofReceived(p Proof) Event {
	return Event{Kind: EventPaymentProof, Proof: p}
}

// resolve turns EventText into the event the current state expects.
func resolve(state State, ev Event) Event {
	if ev.Kind != EventText {
		return ev
	}
	switch state {
	case StateChoosingStartTime, StateChoosingEndTime:
		ev.Kind = EventFreeTextTime
	case StateEnteringName:
		ev.Kind = EventNameEntered
	case StateEnteringPhone:
		ev.Kind = EventPhoneEntered
	}
	return ev
}
