package app

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInactivityWindow is the silence tolerated before a forced restart.
const DefaultInactivityWindow = 15 * time.Second

// InactivityTimer is a restartable single-shot countdown owned by the controller.
//
// Each Arm starts a new generation. The expiry callback runs on the clock's
// goroutine. It raises the fired generation to its own (never lowers it) and
// then posts a wake-up on C. The owner calls Expired after each wake-up, so a
// superseded expiry is ignored. The current expiry cannot be lost: if C is
// already full, the pending wake-up is still unread and Expired will see the
// raised generation when it is consumed.
type InactivityTimer struct {
	clock  clockwork.Clock
	window time.Duration
	timer  clockwork.Timer
	gen    uint64
	fired  atomic.Uint64
	wake   chan struct{}
}

// NewInactivityTimer creates an unarmed timer.
func NewInactivityTimer(clock clockwork.Clock, window time.Duration) *InactivityTimer {
	if window <= 0 {
		window = DefaultInactivityWindow
	}
	return &InactivityTimer{
		clock:  clock,
		window: window,
		wake:   make(chan struct{}, 1),
	}
}

// Arm starts the countdown, replacing any countdown already running.
func (t *InactivityTimer) Arm() {
	t.Stop()
	t.gen++
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.window, func() {
		t.markFired(gen)
		select {
		case t.wake <- struct{}{}:
		default:
		}
	})
}

func (t *InactivityTimer) markFired(gen uint64) {
	for {
		cur := t.fired.Load()
		if gen <= cur || t.fired.CompareAndSwap(cur, gen) {
			return
		}
	}
}

// Rearm restarts the countdown from the full window.
func (t *InactivityTimer) Rearm() {
	t.Arm()
}

// Stop cancels the countdown.
func (t *InactivityTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// C receives a value after an expiry. Check Expired before acting on it.
func (t *InactivityTimer) C() <-chan struct{} {
	return t.wake
}

// Expired reports whether the most recent Arm has run out.
func (t *InactivityTimer) Expired() bool {
	return t.fired.Load() == t.gen
}

// Window returns the countdown length.
func (t *InactivityTimer) Window() time.Duration {
	return t.window
}
