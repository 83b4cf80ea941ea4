package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
)

// DefaultReadBufferSize is the largest frame a single read can produce.
const DefaultReadBufferSize = 1024

// ReceiverConfig contains configuration for the receive loop.
type ReceiverConfig struct {
	BufferSize int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// Receiver reads from the serial link and forwards each non-empty read as a Frame.
type Receiver struct {
	link    ports.SerialLink
	queues  *Queues
	logger  ports.Logger
	backoff *backoff
	buf     []byte
}

// NewReceiver creates a receiver that feeds queues.Frames.
func NewReceiver(cfg ReceiverConfig, link ports.SerialLink, queues *Queues, clock clockwork.Clock, logger ports.Logger) *Receiver {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultReadBufferSize
	}
	return &Receiver{
		link:    link,
		queues:  queues,
		logger:  logger,
		backoff: newBackoff(clock, cfg.BackoffMin, cfg.BackoffMax),
		buf:     make([]byte, cfg.BufferSize),
	}
}

// Run reads until ctx is done or the frame queue stays saturated past its send timeout.
// Sending blocks while the controller is behind, which slows reading instead of
// dropping data.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.link.Read(r.buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("error reading data", ports.Err(err))
			if err := r.backoff.Sleep(ctx); err != nil {
				return err
			}
			continue
		}
		r.backoff.Reset()

		if n < 1 {
			continue
		}

		frame := domain.NewFrame(r.buf[:n])
		r.logger.Debug("received data", ports.Int("bytes", n))

		if err := r.queues.SendFrame(ctx, frame); err != nil {
			frame.Release()
			if ctx.Err() == nil {
				r.logger.Error("failed to send data to queue", ports.Err(err))
			}
			return err
		}
	}
}
