package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
)

// ErrStateChanged is returned by TransitionFrom when the state moved on.
var ErrStateChanged = errors.New("lifecycle state changed")

// ShutdownTimeout is the maximum time to wait for the tasks to exit.
const ShutdownTimeout = 10 * time.Second

// State represents the lifecycle state of the driver.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

var stateNames = map[State]string{
	StateStopped:  "Stopped",
	StateStarting: "Starting",
	StateRunning:  "Running",
	StateStopping: "Stopping",
	StateCrashed:  "Crashed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// transitions lists the states reachable from each state. Running may end
// in Stopped on its own when the script is empty.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateStopped, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// Transition records one state change.
type Transition struct {
	From   State
	To     State
	Reason string
	At     time.Time
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle is the driver's state machine. It also tracks the goroutine
// running the tasks so Stop can wait for it.
type Lifecycle struct {
	mu      sync.RWMutex
	last    Transition
	clock   clockwork.Clock
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateStopped.
func NewLifecycle(clock clockwork.Clock, logger ports.Logger, emitter EventEmitter) *Lifecycle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Lifecycle{
		last:    Transition{From: StateStopped, To: StateStopped, Reason: "created", At: clock.Now()},
		clock:   clock,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last.To
}

// Last returns the most recent transition.
func (l *Lifecycle) Last() Transition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// TransitionTo attempts to transition to a new state.
// Returns ErrNotRunning or ErrAlreadyRunning if the transition is not valid.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	return l.transition(nil, next, reason)
}

// TransitionFrom transitions to next only while the state is still from.
// It returns ErrStateChanged when another transition got there first.
func (l *Lifecycle) TransitionFrom(from, next State, reason string) error {
	return l.transition(&from, next, reason)
}

func (l *Lifecycle) transition(from *State, next State, reason string) error {
	l.mu.Lock()
	prev := l.last.To
	if from != nil && prev != *from {
		l.mu.Unlock()
		return ErrStateChanged
	}
	if !allowed(prev, next) {
		l.mu.Unlock()
		if prev == StateStopped || prev == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.last = Transition{From: prev, To: next, Reason: reason, At: l.clock.Now()}
	l.mu.Unlock()

	// emit outside of lock
	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}

	fields := []ports.Field{
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	}
	if next == StateCrashed {
		l.logger.Error("state transition", fields...)
	} else {
		l.logger.Info("state transition", fields...)
	}
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	s := l.State()
	return s == StateStopped || s == StateCrashed
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == StateRunning || s == StateStarting
}

// Go runs fn on a tracked worker goroutine.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers to finish.
// The timeout is wall-clock time even when the lifecycle runs on a fake
// clock, so a stuck task cannot hang shutdown in tests.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit", ports.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
