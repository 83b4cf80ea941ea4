package atdrive

import (
	"time"

	"github.com/bft-labs/atdrive/internal/app"
	"github.com/bft-labs/atdrive/internal/domain"
)

// State is the lifecycle state of a Driver.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	return app.State(s).String()
}

// Action is an instruction from the controller to the transmitter.
type Action = domain.Action

const (
	ActionAdvance = domain.ActionAdvance
	ActionRestart = domain.ActionRestart
)

// Outcome is the classification of a reply from the modem.
type Outcome = domain.Outcome

const (
	OutcomeInconclusive = domain.OutcomeInconclusive
	OutcomeSuccess      = domain.OutcomeSuccess
	OutcomeFailure      = domain.OutcomeFailure
)

// StateChangeEvent is emitted on every lifecycle transition.
// Transition describes one lifecycle state change.
type Transition struct {
	From   State
	To     State
	Reason string
	At     time.Time
}

type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DispatchEvent is emitted when the controller queues an action.
type DispatchEvent struct {
	Action Action
	Reason string
}

// TransmitEvent is emitted after each command write.
// Error is set when the write failed; the script still moves on.
type TransmitEvent struct {
	Index   int
	Command string
	Error   error
}

// FrameEvent is emitted for every chunk of data read from the modem.
type FrameEvent struct {
	Outcome Outcome
	Size    int
}

// InactivityEvent is emitted when the modem stayed silent for Window.
type InactivityEvent struct {
	Window time.Duration
}

// EventHandler receives driver events.
// Embed BaseEventHandler to implement only the methods you need.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnDispatch(event DispatchEvent)
	OnTransmit(event TransmitEvent)
	OnFrame(event FrameEvent)
	OnInactivity(event InactivityEvent)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnDispatch(DispatchEvent)       {}
func (BaseEventHandler) OnTransmit(TransmitEvent)       {}
func (BaseEventHandler) OnFrame(FrameEvent)             {}
func (BaseEventHandler) OnInactivity(InactivityEvent)   {}

// eventEmitterWrapper adapts EventHandlers to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handlers []EventHandler
}

func newEventEmitter(handler EventHandler, plugins []Plugin) *eventEmitterWrapper {
	e := &eventEmitterWrapper{}
	if handler != nil {
		e.handlers = append(e.handlers, handler)
	}
	for _, p := range plugins {
		if h, ok := p.(EventHandler); ok {
			e.handlers = append(e.handlers, h)
		}
	}
	return e
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	ev := StateChangeEvent{Previous: State(previous), Current: State(current), Reason: reason}
	for _, h := range e.handlers {
		h.OnStateChange(ev)
	}
}

func (e *eventEmitterWrapper) OnDispatch(action domain.Action, reason string) {
	ev := DispatchEvent{Action: action, Reason: reason}
	for _, h := range e.handlers {
		h.OnDispatch(ev)
	}
}

func (e *eventEmitterWrapper) OnTransmit(index int, payload []byte, err error) {
	ev := TransmitEvent{Index: index, Command: string(payload), Error: err}
	for _, h := range e.handlers {
		h.OnTransmit(ev)
	}
}

func (e *eventEmitterWrapper) OnFrame(outcome domain.Outcome, size int) {
	ev := FrameEvent{Outcome: outcome, Size: size}
	for _, h := range e.handlers {
		h.OnFrame(ev)
	}
}

func (e *eventEmitterWrapper) OnInactivity(window time.Duration) {
	ev := InactivityEvent{Window: window}
	for _, h := range e.handlers {
		h.OnInactivity(ev)
	}
}
