package atdrive

import (
	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// SerialLink is the byte transport to the modem.
// Read must return 0, nil when no data arrives within a bounded wait.
type SerialLink = ports.SerialLink

// Script is an immutable ordered list of commands.
type Script = domain.Script

// Command is one line of a Script.
type Command = domain.Command

// NewScript builds a Script from commands.
func NewScript(cmds ...Command) Script {
	return domain.NewScript(cmds...)
}

// NewCommand builds a command that waits waitMs milliseconds after it is sent.
func NewCommand(text string, waitMs int) Command {
	return domain.NewCommand(text, waitMs)
}

// Option configures optional behavior of Driver.
type Option func(*options)

type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	link         ports.SerialLink
	clock        clockwork.Clock
	script       *domain.Script
}

func defaultOptions() options {
	return options{
		logger: &noopLogger{},
		clock:  clockwork.NewRealClock(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for driver events.
// Events are called synchronously from the task that produced them.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the driver starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithLink supplies the serial link instead of opening Config.Port.
// The caller keeps ownership; Stop does not close it.
func WithLink(link SerialLink) Option {
	return func(o *options) {
		o.link = link
	}
}

// WithClock replaces the clock used for delays and the inactivity timer.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithScript runs s instead of resolving Config.Script.
func WithScript(s Script) Option {
	return func(o *options) {
		o.script = &s
	}
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}
