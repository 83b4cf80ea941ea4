package app

import (
	"time"

	"github.com/bft-labs/atdrive/internal/domain"
)

// ScriptEventEmitter receives notifications from the running tasks.
// Methods are called synchronously from the task that produced the event.
type ScriptEventEmitter interface {
	OnDispatch(action domain.Action, reason string)
	OnTransmit(index int, payload []byte, err error)
	OnFrame(outcome domain.Outcome, size int)
	OnInactivity(window time.Duration)
}

// nopEmitter is used when no emitter is configured.
type nopEmitter struct{}

func (nopEmitter) OnDispatch(domain.Action, string) {}
func (nopEmitter) OnTransmit(int, []byte, error)    {}
func (nopEmitter) OnFrame(domain.Outcome, int)      {}
func (nopEmitter) OnInactivity(time.Duration)       {}

func emitterOrNop(e ScriptEventEmitter) ScriptEventEmitter {
	if e == nil {
		return nopEmitter{}
	}
	return e
}
