package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/atdrive/internal/domain"
)

// DefaultQueueCapacity is the depth of the action and frame queues.
const DefaultQueueCapacity = 10

// Queues holds the two bounded FIFO channels shared by the tasks.
// It is built once and handed to each task, so no task reaches for globals.
type Queues struct {
	// Control carries dispatch actions from the controller to the transmitter.
	Control chan domain.Action

	// Frames carries received frames from the receiver to the controller.
	Frames chan *domain.Frame

	clock       clockwork.Clock
	sendTimeout time.Duration
}

// NewQueues creates both queues with the given capacity.
// A positive sendTimeout bounds how long a send may block on a full queue.
func NewQueues(capacity int, sendTimeout time.Duration, clock clockwork.Clock) *Queues {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Queues{
		Control:     make(chan domain.Action, capacity),
		Frames:      make(chan *domain.Frame, capacity),
		clock:       clock,
		sendTimeout: sendTimeout,
	}
}

// SendAction enqueues a dispatch action, blocking while the control queue is full.
func (q *Queues) SendAction(ctx context.Context, a domain.Action) error {
	select {
	case q.Control <- a:
		return nil
	default:
	}

	timeout := q.timeout()
	select {
	case q.Control <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("send %s: %w", a, domain.ErrQueueSaturated)
	}
}

// SendFrame enqueues a frame, blocking while the frame queue is full.
// On error the frame still belongs to the caller.
func (q *Queues) SendFrame(ctx context.Context, f *domain.Frame) error {
	select {
	case q.Frames <- f:
		return nil
	default:
	}

	timeout := q.timeout()
	select {
	case q.Frames <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("send frame: %w", domain.ErrQueueSaturated)
	}
}

// DrainFrames discards every frame currently queued and returns how many were dropped.
func (q *Queues) DrainFrames() int {
	n := 0
	for {
		select {
		case f := <-q.Frames:
			f.Release()
			n++
		default:
			return n
		}
	}
}

// timeout returns a channel that fires after the send timeout,
// or nil (never fires) when sends are unbounded.
func (q *Queues) timeout() <-chan time.Time {
	if q.sendTimeout <= 0 {
		return nil
	}
	return q.clock.After(q.sendTimeout)
}
