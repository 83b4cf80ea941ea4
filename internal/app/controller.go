package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
)

// DefaultDebounceDelay lets the modem settle before the next action is dispatched.
const DefaultDebounceDelay = 500 * time.Millisecond

// ControllerConfig contains configuration for the coordination loop.
type ControllerConfig struct {
	InactivityWindow time.Duration
	DebounceDelay    time.Duration

	// DrainOnRestart discards frames still queued when a timer or externally
	// requested restart is dispatched, so a reply to the abandoned run cannot
	// advance the new one.
	DrainOnRestart bool
}

// Controller classifies frames and dispatches actions to the transmitter.
// All of its state, the inactivity timer included, is touched only from Run.
type Controller struct {
	config   ControllerConfig
	queues   *Queues
	clock    clockwork.Clock
	timer    *InactivityTimer
	logger   ports.Logger
	emitter  ScriptEventEmitter
	requests chan string
}

// NewController creates a controller. The inactivity timer is armed by Run.
func NewController(
	config ControllerConfig,
	queues *Queues,
	clock clockwork.Clock,
	logger ports.Logger,
	emitter ScriptEventEmitter,
) *Controller {
	if config.DebounceDelay < 0 {
		config.DebounceDelay = 0
	}
	return &Controller{
		config:   config,
		queues:   queues,
		clock:    clock,
		timer:    NewInactivityTimer(clock, config.InactivityWindow),
		logger:   logger,
		emitter:  emitterOrNop(emitter),
		requests: make(chan string, 1),
	}
}

// Run arms the inactivity timer, seeds the pipeline with an advance and then
// reacts to frames, timer expiries and restart requests until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.timer.Arm()
	defer c.timer.Stop()

	if err := c.dispatch(ctx, domain.ActionAdvance, "startup"); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case frame := <-c.queues.Frames:
			if err := c.handleFrame(ctx, frame); err != nil {
				return err
			}

		case <-c.timer.C():
			if !c.timer.Expired() {
				continue
			}
			c.logger.Warn("no data received, restarting script",
				ports.Duration("window", c.timer.Window()))
			c.emitter.OnInactivity(c.timer.Window())
			if err := c.forceRestart(ctx, "inactivity"); err != nil {
				return err
			}

		case reason := <-c.requests:
			c.logger.Info("restart requested", ports.String("reason", reason))
			if err := c.forceRestart(ctx, reason); err != nil {
				return err
			}
		}
	}
}

// RequestRestart asks the controller to dispatch a restart.
// It never blocks; a request made while another is pending is merged into it.
func (c *Controller) RequestRestart(reason string) bool {
	select {
	case c.requests <- reason:
		return true
	default:
		return false
	}
}

func (c *Controller) handleFrame(ctx context.Context, frame *domain.Frame) error {
	defer frame.Release()

	// any traffic counts as liveness
	c.timer.Rearm()

	outcome := frame.Outcome()
	c.emitter.OnFrame(outcome, frame.Len())

	switch outcome {
	case domain.OutcomeSuccess:
		c.logger.Info("received data", ports.Payload(frame.Bytes()), ports.String("outcome", outcome.String()))
		return c.dispatchAfterDebounce(ctx, domain.ActionAdvance, "ok")
	case domain.OutcomeFailure:
		c.logger.Info("received data", ports.Payload(frame.Bytes()), ports.String("outcome", outcome.String()))
		return c.dispatchAfterDebounce(ctx, domain.ActionRestart, "error")
	default:
		c.logger.Debug("inconclusive data, waiting", ports.Payload(frame.Bytes()))
		return nil
	}
}

func (c *Controller) dispatchAfterDebounce(ctx context.Context, action domain.Action, reason string) error {
	if err := sleep(ctx, c.clock, c.config.DebounceDelay); err != nil {
		return err
	}
	return c.dispatch(ctx, action, reason)
}

func (c *Controller) forceRestart(ctx context.Context, reason string) error {
	if err := c.dispatch(ctx, domain.ActionRestart, reason); err != nil {
		return err
	}
	if c.config.DrainOnRestart {
		if n := c.queues.DrainFrames(); n > 0 {
			c.logger.Info("discarded stale frames", ports.Int("frames", n))
		}
	}
	c.timer.Rearm()
	return nil
}

func (c *Controller) dispatch(ctx context.Context, action domain.Action, reason string) error {
	c.logger.Info("dispatching action", ports.Action(action), ports.String("reason", reason))
	if err := c.queues.SendAction(ctx, action); err != nil {
		if ctx.Err() == nil {
			c.logger.Error("failed to dispatch action", ports.Action(action), ports.Err(err))
		}
		return err
	}
	c.emitter.OnDispatch(action, reason)
	return nil
}
