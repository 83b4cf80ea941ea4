package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
)

// AgentConfig contains configuration for the three tasks.
type AgentConfig struct {
	InactivityWindow time.Duration
	DebounceDelay    time.Duration
	StartupDelay     time.Duration
	DrainOnRestart   bool

	ReadBufferSize      int
	ReadErrorBackoff    time.Duration
	ReadErrorBackoffMax time.Duration

	QueueCapacity int
	SendTimeout   time.Duration
}

// Agent wires the receiver, transmitter and controller around one set of queues.
type Agent struct {
	script       domain.Script
	logger       ports.Logger
	clock        clockwork.Clock
	startupDelay time.Duration
	queues       *Queues
	receiver     *Receiver
	transmitter  *Transmitter
	controller   *Controller
}

// NamedLogger is implemented by loggers that can tag events with a component name.
type NamedLogger interface {
	ports.Logger
	Component(name string) ports.Logger
}

// NewAgent creates a new agent with the given dependencies.
func NewAgent(
	config AgentConfig,
	script domain.Script,
	link ports.SerialLink,
	clock clockwork.Clock,
	logger ports.Logger,
	emitter ScriptEventEmitter,
) *Agent {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	queues := NewQueues(config.QueueCapacity, config.SendTimeout, clock)

	return &Agent{
		script:       script,
		logger:       logger,
		clock:        clock,
		startupDelay: config.StartupDelay,
		queues:       queues,
		receiver: NewReceiver(ReceiverConfig{
			BufferSize: config.ReadBufferSize,
			BackoffMin: config.ReadErrorBackoff,
			BackoffMax: config.ReadErrorBackoffMax,
		}, link, queues, clock, component(logger, "rx")),
		transmitter: NewTransmitter(script, link, queues.Control, clock,
			component(logger, "tx"), emitter),
		controller: NewController(ControllerConfig{
			InactivityWindow: config.InactivityWindow,
			DebounceDelay:    config.DebounceDelay,
			DrainOnRestart:   config.DrainOnRestart,
		}, queues, clock, component(logger, "controller"), emitter),
	}
}

// Run waits out the startup delay, then executes the three tasks until ctx
// is canceled or one of them fails. No task runs during the delay, so the
// inactivity window only starts counting once the first command can be sent.
// An empty script means there is nothing to run, and Run returns nil at once.
func (a *Agent) Run(ctx context.Context) error {
	if a.script.Empty() {
		a.logger.Warn("script has no commands, nothing to run")
		return nil
	}

	if a.startupDelay > 0 {
		a.logger.Info("waiting for modem to settle", ports.Duration("delay", a.startupDelay))
		if err := sleep(ctx, a.clock, a.startupDelay); err != nil {
			return err
		}
	}

	a.logger.Info("starting script", ports.Int("commands", a.script.Len()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.receiver.Run(gctx) })
	g.Go(func() error { return a.transmitter.Run(gctx) })
	g.Go(func() error { return a.controller.Run(gctx) })
	return g.Wait()
}

// RequestRestart asks the controller to restart the script from the first command.
func (a *Agent) RequestRestart(reason string) bool {
	return a.controller.RequestRestart(reason)
}

func component(logger ports.Logger, name string) ports.Logger {
	if nl, ok := logger.(NamedLogger); ok {
		return nl.Component(name)
	}
	return logger
}
