package atdrive

import (
	"fmt"
	"time"

	"github.com/bft-labs/atdrive/internal/adapters/serialport"
	"github.com/bft-labs/atdrive/internal/app"
	"github.com/bft-labs/atdrive/internal/domain"
)

// Config holds the configuration of a Driver.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// Port is the serial device path, e.g. /dev/ttyUSB0.
	// Required unless a link is supplied with WithLink.
	Port string

	// BaudRate of the serial link. Default: 115200
	BaudRate int

	// ReadTimeout bounds each read so the receiver notices shutdown.
	// Default: 1 second
	ReadTimeout time.Duration

	// Script names the command script to run: a built-in (http, mqtt,
	// mqtt-cmqtt) or a script from ScriptFile. Default: http
	Script string

	// ScriptFile is an optional TOML catalog of custom scripts.
	ScriptFile string

	// InactivityWindow is how long the link may stay silent before the
	// script is restarted. Default: 15 seconds
	InactivityWindow time.Duration

	// DebounceDelay is the wait between an OK or ERROR reply and the next
	// action. Default: 500 milliseconds
	DebounceDelay time.Duration

	// StartupDelay is the wait before any task starts, giving the modem time
	// to boot. The inactivity window begins after it. Default: 0
	StartupDelay time.Duration

	// DrainOnRestart discards replies still queued when an inactivity or
	// requested restart is dispatched. DefaultConfig enables it.
	DrainOnRestart bool

	ReadBufferSize      int
	ReadErrorBackoff    time.Duration
	ReadErrorBackoffMax time.Duration

	// QueueCapacity is the depth of the action and frame queues. Default: 10
	QueueCapacity int

	// SendTimeout bounds how long a task waits on a full queue before the
	// driver crashes with ErrQueueSaturated. Zero waits forever.
	SendTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, Port must be set before calling New.
func DefaultConfig() Config {
	cfg := Config{DrainOnRestart: true}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = serialport.DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = serialport.DefaultReadTimeout
	}
	if c.Script == "" {
		c.Script = DefaultScript
	}
	if c.InactivityWindow == 0 {
		c.InactivityWindow = app.DefaultInactivityWindow
	}
	if c.DebounceDelay == 0 {
		c.DebounceDelay = app.DefaultDebounceDelay
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = app.DefaultReadBufferSize
	}
	if c.ReadErrorBackoff == 0 {
		c.ReadErrorBackoff = app.DefaultBackoffInitial
	}
	if c.ReadErrorBackoffMax == 0 {
		c.ReadErrorBackoffMax = app.DefaultBackoffMax
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = app.DefaultQueueCapacity
	}
}

// DefaultScript is the script run when none is configured.
const DefaultScript = "http"

// Validate checks the configuration for invalid values.
// The serial port is checked by New, since a custom link makes it optional.
func (c Config) Validate() error {
	if c.BaudRate < 0 {
		return invalid("baud rate must not be negative")
	}
	if c.ReadBufferSize < 0 {
		return invalid("read buffer size must not be negative")
	}
	if c.QueueCapacity < 0 {
		return invalid("queue capacity must not be negative")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"read timeout", c.ReadTimeout},
		{"inactivity window", c.InactivityWindow},
		{"debounce delay", c.DebounceDelay},
		{"startup delay", c.StartupDelay},
		{"read error backoff", c.ReadErrorBackoff},
		{"read error backoff max", c.ReadErrorBackoffMax},
		{"send timeout", c.SendTimeout},
	}
	for _, d := range durations {
		if d.d < 0 {
			return invalid(d.name + " must not be negative")
		}
	}

	if c.ReadErrorBackoffMax > 0 && c.ReadErrorBackoffMax < c.ReadErrorBackoff {
		return invalid("read error backoff max must be at least the initial backoff")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

func (c Config) agentConfig() app.AgentConfig {
	return app.AgentConfig{
		InactivityWindow:    c.InactivityWindow,
		DebounceDelay:       c.DebounceDelay,
		StartupDelay:        c.StartupDelay,
		DrainOnRestart:      c.DrainOnRestart,
		ReadBufferSize:      c.ReadBufferSize,
		ReadErrorBackoff:    c.ReadErrorBackoff,
		ReadErrorBackoffMax: c.ReadErrorBackoffMax,
		QueueCapacity:       c.QueueCapacity,
		SendTimeout:         c.SendTimeout,
	}
}
