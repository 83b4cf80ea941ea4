package app

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
)

// Transmitter writes script commands to the serial link as dispatch actions arrive.
// The cursor is only touched by the goroutine running Run (or calling Consume).
type Transmitter struct {
	script  domain.Script
	link    ports.SerialLink
	control <-chan domain.Action
	clock   clockwork.Clock
	logger  ports.Logger
	emitter ScriptEventEmitter

	cursor    int
	exhausted bool
}

// NewTransmitter creates a transmitter positioned at the first command.
func NewTransmitter(
	script domain.Script,
	link ports.SerialLink,
	control <-chan domain.Action,
	clock clockwork.Clock,
	logger ports.Logger,
	emitter ScriptEventEmitter,
) *Transmitter {
	return &Transmitter{
		script:  script,
		link:    link,
		control: control,
		clock:   clock,
		logger:  logger,
		emitter: emitterOrNop(emitter),
	}
}

// Run consumes actions until ctx is done.
func (t *Transmitter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case action := <-t.control:
			if err := t.Consume(ctx, action); err != nil {
				return err
			}
		}
	}
}

// Consume applies a single dispatch action.
// It only returns an error when ctx ends during a post-send delay.
func (t *Transmitter) Consume(ctx context.Context, action domain.Action) error {
	switch action {
	case domain.ActionAdvance:
		return t.advance(ctx)
	case domain.ActionRestart:
		t.restart()
		return nil
	default:
		t.logger.Warn("received unrecognized action", ports.Action(action))
		return nil
	}
}

func (t *Transmitter) advance(ctx context.Context) error {
	if t.cursor >= t.script.Len() {
		if !t.exhausted {
			t.logger.Info("reached end of command list", ports.Int("commands", t.script.Len()))
			t.exhausted = true
		} else {
			t.logger.Debug("advance ignored, script exhausted")
		}
		return nil
	}

	cmd := t.script.At(t.cursor)
	t.send(t.cursor, cmd)

	var err error
	if cmd.PostSendDelay > 0 {
		err = sleep(ctx, t.clock, cmd.PostSendDelay)
	}

	// at-most-once: the cursor moves even if the write failed
	t.cursor++
	return err
}

func (t *Transmitter) restart() {
	t.logger.Info("restarting command list", ports.Int("from", t.cursor))
	t.cursor = 0
	t.exhausted = false

	if t.script.Empty() {
		return
	}
	t.send(0, t.script.At(0))
}

func (t *Transmitter) send(index int, cmd domain.Command) {
	n, err := t.link.Write(cmd.Payload)
	if err != nil {
		t.logger.Error("write failed",
			ports.Int("index", index),
			ports.Payload(cmd.Payload),
			ports.Err(err),
		)
	} else {
		t.logger.Info("wrote command",
			ports.Int("index", index),
			ports.Int("bytes", n),
			ports.Payload(cmd.Payload),
		)
	}
	t.emitter.OnTransmit(index, cmd.Payload, err)
}

// Cursor returns the index of the next command to send.
func (t *Transmitter) Cursor() int {
	return t.cursor
}

// Exhausted reports whether the cursor has reached the end of the script.
func (t *Transmitter) Exhausted() bool {
	return t.cursor >= t.script.Len()
}
