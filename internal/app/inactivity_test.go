package app

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitWake(t *testing.T, timer *InactivityTimer) {
	t.Helper()
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestInactivityTimer_Fires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := NewInactivityTimer(clock, 15*time.Second)
	timer.Arm()

	clock.Advance(14 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("fired before window elapsed")
	default:
	}
	assert.False(t, timer.Expired())

	clock.Advance(time.Second)
	waitWake(t, timer)
	assert.True(t, timer.Expired())
}

func TestInactivityTimer_RearmPostpones(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := NewInactivityTimer(clock, 10*time.Second)
	timer.Arm()

	clock.Advance(8 * time.Second)
	timer.Rearm()
	clock.Advance(8 * time.Second)

	select {
	case <-timer.C():
		t.Fatal("rearmed timer fired early")
	default:
	}

	clock.Advance(2 * time.Second)
	waitWake(t, timer)
	assert.True(t, timer.Expired())
}

func TestInactivityTimer_StaleExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := NewInactivityTimer(clock, time.Second)
	timer.Arm()

	clock.Advance(time.Second)
	waitWake(t, timer)

	timer.Rearm()
	assert.False(t, timer.Expired(), "expiry from an earlier arm must be stale")
}

func TestInactivityTimer_CurrentExpirySurvivesStaleWakeups(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := NewInactivityTimer(clock, time.Second)

	// expire and rearm repeatedly without reading C, as a controller busy
	// with a burst of frames would
	for i := 0; i < 10; i++ {
		timer.Arm()
		clock.Advance(time.Second)
	}

	waitWake(t, timer)
	require.Eventually(t, timer.Expired, time.Second, 5*time.Millisecond,
		"the latest expiry must be visible once the pending wake-up is read")

	timer.Rearm()
	assert.False(t, timer.Expired())
}

func TestInactivityTimer_Stop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := NewInactivityTimer(clock, time.Second)
	timer.Arm()
	timer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	clock.Advance(time.Hour)

	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	case <-ctx.Done():
	}
	assert.False(t, timer.Expired())
	require.Equal(t, time.Second, timer.Window())
}

func TestInactivityTimer_DefaultWindow(t *testing.T) {
	timer := NewInactivityTimer(clockwork.NewFakeClock(), 0)
	assert.Equal(t, DefaultInactivityWindow, timer.Window())
}
