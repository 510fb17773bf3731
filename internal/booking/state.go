// Package booking implements the hut reservation conversation: a pure state
// machine over user events and an engine that feeds it store snapshots and
// persists its effects.
package booking

// State represents the current step of the reservation dialog.
type State string

const (
	StateIdle                 State = "idle"
	StateChoosingVenue        State = "choosing_venue"
	StateChoosingDate         State = "choosing_date"
	StateChoosingStartTime    State = "choosing_start_time"
	StateChoosingEndTime      State = "choosing_end_time"
	StateEnteringName         State = "entering_name"
	StateEnteringPhone        State = "entering_phone"
	StateAwaitingPaymentProof State = "awaiting_payment_proof"
	StateConfirmed            State = "confirmed"
)

// ParseState maps a stored value to a State; unknown values are idle.
func ParseState(s string) State {
	st := State(s)
	if _, ok := transitions[st]; ok {
		return st
	}
	return StateIdle
}

// Terminal reports whether the conversation is over in this state.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateConfirmed
}

// Every state may also return to StateIdle (cancel, conflict, store failure)
// or to StateChoosingVenue (restart).
var transitions = map[State][]State{
	StateIdle:                 {StateChoosingVenue},
	StateChoosingVenue:        {StateChoosingDate},
	StateChoosingDate:         {StateChoosingStartTime},
	StateChoosingStartTime:    {StateChoosingEndTime},
	StateChoosingEndTime:      {StateEnteringName, StateChoosingStartTime},
	StateEnteringName:         {StateEnteringPhone},
	StateEnteringPhone:        {StateAwaitingPaymentProof},
	StateAwaitingPaymentProof: {StateConfirmed},
	StateConfirmed:            {},
}

// CanTransition checks if moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	if from == to || to == StateIdle || to == StateChoosingVenue {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatePrompts holds the question asked on entering each state.
var StatePrompts = map[State]string{
	StateChoosingVenue:        "Выберите беседку:",
	StateChoosingDate:         "Теперь выберите дату:",
	StateChoosingStartTime:    "Выберите время начала или введите его (например: 08:00):",
	StateChoosingEndTime:      "Выберите время окончания или введите его (например: 21:00):",
	StateEnteringName:         "Введите ваше имя:",
	StateEnteringPhone:        "📞 Теперь введите номер телефона:",
	StateAwaitingPaymentProof: "Отправьте чек об оплате (фото или документ) в ответ на это сообщение.",
}
