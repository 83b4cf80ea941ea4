package domain

import "time"

// Command is a single payload written to the modem followed by an optional pause.
type Command struct {
	// Payload is written to the serial link verbatim, CRLF included.
	Payload []byte

	// PostSendDelay is how long the transmitter waits after writing Payload.
	// Zero means no wait.
	PostSendDelay time.Duration
}

// NewCommand builds a Command from command text and a wait in milliseconds.
func NewCommand(text string, waitMs int) Command {
	return Command{
		Payload:       []byte(text),
		PostSendDelay: time.Duration(waitMs) * time.Millisecond,
	}
}

// Text returns the payload as a string.
func (c Command) Text() string {
	return string(c.Payload)
}

// Script is an immutable ordered sequence of commands.
// The zero value is an empty script.
type Script struct {
	commands []Command
}

// NewScript copies cmds into a new Script. Later changes to cmds, or to the
// payload slices inside them, are not visible through the Script.
func NewScript(cmds ...Command) Script {
	if len(cmds) == 0 {
		return Script{}
	}
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		out[i] = Command{
			Payload:       append([]byte(nil), c.Payload...),
			PostSendDelay: c.PostSendDelay,
		}
	}
	return Script{commands: out}
}

// Len returns the number of commands.
func (s Script) Len() int {
	return len(s.commands)
}

// Empty reports whether the script has no commands.
func (s Script) Empty() bool {
	return len(s.commands) == 0
}

// At returns the command at index i. It panics if i is out of range.
// The returned payload must not be modified.
func (s Script) At(i int) Command {
	return s.commands[i]
}

// Texts returns the payload of every command as a string, in order.
func (s Script) Texts() []string {
	out := make([]string, len(s.commands))
	for i, c := range s.commands {
		out[i] = string(c.Payload)
	}
	return out
}
