package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/atdrive/internal/domain"
)

func fastAgentConfig() AgentConfig {
	return AgentConfig{
		InactivityWindow:    time.Second,
		DebounceDelay:       time.Millisecond,
		DrainOnRestart:      true,
		ReadBufferSize:      64,
		ReadErrorBackoff:    time.Millisecond,
		ReadErrorBackoffMax: 5 * time.Millisecond,
		QueueCapacity:       DefaultQueueCapacity,
	}
}

func runAgent(t *testing.T, agent *Agent) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("agent did not stop")
		}
	})
	return cancel, done
}

func TestAgent_PingInfoScenario(t *testing.T) {
	link := newFakeLink()
	link.respond = func(payload string) string {
		switch payload {
		case "PING\r\n":
			return "OK\r\n"
		case "INFO\r\n":
			return "ERROR\r\n"
		}
		return ""
	}

	script := domain.NewScript(
		domain.NewCommand("PING\r\n", 1),
		domain.NewCommand("INFO\r\n", 1),
	)
	emitter := &recordingEmitter{}
	agent := NewAgent(fastAgentConfig(), script, link, nil, &mockLogger{}, emitter)
	runAgent(t, agent)

	require.Eventually(t, func() bool {
		return len(link.Writes()) >= 4 && len(emitter.Outcomes()) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	// the restart re-sends PING and leaves the cursor at 0, so the
	// following advance sends PING again
	assert.Equal(t, []string{"PING\r\n", "INFO\r\n", "PING\r\n", "PING\r\n"}, link.Writes()[:4])
	assert.Equal(t,
		[]domain.Outcome{domain.OutcomeSuccess, domain.OutcomeFailure, domain.OutcomeSuccess},
		emitter.Outcomes()[:3])
}

func TestAgent_StartupDelayPrecedesInactivityWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	link := newFakeLink()
	config := fastAgentConfig()
	config.InactivityWindow = 15 * time.Second
	config.StartupDelay = 20 * time.Second

	emitter := &recordingEmitter{}
	agent := NewAgent(config, pingInfoScript(), link, clock, &mockLogger{}, emitter)
	runAgent(t, agent)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	// longer than the inactivity window, still inside the startup delay
	clock.Advance(19 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, link.Writes(), "nothing is sent during the startup delay")
	assert.Zero(t, emitter.Inactivity())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(link.Writes()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"PING\r\n"}, link.Writes())
	assert.Zero(t, emitter.Inactivity(), "no inactivity restart before the first command")
	assert.Equal(t, []string{"startup"}, emitter.Reasons())

	// the window counts from the first command
	clock.Advance(15 * time.Second)
	require.Eventually(t, func() bool { return emitter.Inactivity() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAgent_StartupDelayHonorsCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	link := newFakeLink()
	config := fastAgentConfig()
	config.StartupDelay = time.Minute

	agent := NewAgent(config, pingInfoScript(), link, clock, &mockLogger{}, nil)
	cancel, done := runAgent(t, agent)

	ctx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		done <- err
	case <-time.After(time.Second):
		t.Fatal("agent did not stop during the startup delay")
	}
	assert.Empty(t, link.Writes())
}

func TestAgent_SilentLinkRestartsOnInactivity(t *testing.T) {
	link := newFakeLink()
	config := fastAgentConfig()
	config.InactivityWindow = 30 * time.Millisecond

	emitter := &recordingEmitter{}
	agent := NewAgent(config, pingInfoScript(), link, nil, &mockLogger{}, emitter)
	runAgent(t, agent)

	require.Eventually(t, func() bool { return emitter.Inactivity() >= 2 }, 2*time.Second, 5*time.Millisecond)

	for _, w := range link.Writes() {
		assert.Equal(t, "PING\r\n", w)
	}
}

func TestAgent_ReadErrorsAreRecovered(t *testing.T) {
	link := newFakeLink()
	link.fail(errors.New("device not ready"))
	link.fail(errors.New("device not ready"))
	link.reply("OK\r\n")

	emitter := &recordingEmitter{}
	agent := NewAgent(fastAgentConfig(), pingInfoScript(), link, nil, &mockLogger{}, emitter)
	runAgent(t, agent)

	require.Eventually(t, func() bool { return len(emitter.Outcomes()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.OutcomeSuccess, emitter.Outcomes()[0])
}

func TestAgent_RequestRestart(t *testing.T) {
	link := newFakeLink()
	emitter := &recordingEmitter{}
	agent := NewAgent(fastAgentConfig(), pingInfoScript(), link, nil, &mockLogger{}, emitter)
	runAgent(t, agent)

	require.Eventually(t, func() bool { return len(link.Writes()) == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, agent.RequestRestart("manual"))
	require.Eventually(t, func() bool { return len(link.Writes()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, emitter.Reasons(), "manual")
}

func TestAgent_StopsOnCancel(t *testing.T) {
	link := newFakeLink()
	agent := NewAgent(fastAgentConfig(), pingInfoScript(), link, nil, &mockLogger{}, nil)
	cancel, done := runAgent(t, agent)

	require.Eventually(t, func() bool { return len(link.Writes()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestAgent_EmptyScriptReturnsImmediately(t *testing.T) {
	link := newFakeLink()
	agent := NewAgent(fastAgentConfig(), domain.NewScript(), link, nil, &mockLogger{}, nil)

	require.NoError(t, agent.Run(context.Background()))
	assert.Empty(t, link.Writes())
}
