package domain

import "strconv"

// Action instructs the transmitter what to do next.
// It carries no payload; its meaning is resolved against the transmitter's cursor.
type Action int

const (
	// ActionAdvance sends the command at the cursor and moves the cursor forward.
	ActionAdvance Action = iota

	// ActionRestart resets the cursor to zero and re-sends the first command.
	ActionRestart
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionAdvance:
		return "advance"
	case ActionRestart:
		return "restart"
	default:
		return "unknown(" + strconv.Itoa(int(a)) + ")"
	}
}

// Valid reports whether a is a recognized action.
func (a Action) Valid() bool {
	return a == ActionAdvance || a == ActionRestart
}
