package atdrive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/atdrive/internal/adapters/serialport"
	"github.com/bft-labs/atdrive/internal/app"
	"github.com/bft-labs/atdrive/internal/domain"
	"github.com/bft-labs/atdrive/internal/ports"
	"github.com/bft-labs/atdrive/internal/script"
)

// Driver runs an AT command script against a modem. Use New() to create an
// instance, then Start() to begin.
type Driver struct {
	config    Config
	opts      options
	script    domain.Script
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	logger    ports.Logger
	plugins   []Plugin

	// agent is read by RequestRestart without mu, since plugins call it
	// from their own goroutines while Stop holds mu.
	agent atomic.Pointer[app.Agent]

	mu       sync.RWMutex
	link     ports.SerialLink
	ownsLink bool
	cancel   context.CancelFunc
	done     chan struct{}

	errMu sync.Mutex
	err   error
}

// New creates a Driver with the given configuration.
// The instance is created in StateStopped; call Start() to begin.
// Returns an error if the configuration is invalid or the script cannot be
// resolved.
func New(cfg Config, opts ...Option) (*Driver, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = &noopLogger{}
	}

	if o.link == nil && cfg.Port == "" {
		return nil, invalid("serial port is required")
	}

	s, err := resolveScript(cfg, o)
	if err != nil {
		return nil, err
	}

	emitter := newEventEmitter(o.eventHandler, o.plugins)

	return &Driver{
		config:    cfg,
		opts:      o,
		script:    s,
		lifecycle: app.NewLifecycle(o.clock, o.logger, emitter),
		emitter:   emitter,
		logger:    o.logger,
		plugins:   o.plugins,
	}, nil
}

func resolveScript(cfg Config, o options) (domain.Script, error) {
	if o.script != nil {
		return *o.script, nil
	}

	catalog := script.NewCatalog()
	if cfg.ScriptFile != "" {
		f, err := script.LoadFile(cfg.ScriptFile)
		if err != nil {
			return domain.Script{}, fmt.Errorf("load script file: %w", err)
		}
		f.Register(catalog)
	}
	return catalog.Lookup(cfg.Script)
}

// Start runs the script in the background and returns once the tasks are
// launched. The provided context bounds the lifetime of the run.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	// a run that ended on its own still holds plugins and the link
	if d.cancel != nil {
		d.teardownLocked()
	}

	if err := d.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.setErr(nil)

	d.link, d.ownsLink = d.opts.link, false
	if d.link == nil {
		link := serialport.New(serialport.Config{
			Path:        d.config.Port,
			BaudRate:    d.config.BaudRate,
			ReadTimeout: d.config.ReadTimeout,
		}, serialport.WithLogger(named(d.logger, "serial")))
		if err := link.Open(); err != nil {
			d.logger.Warn("serial port not available yet, will keep retrying", ports.Err(err))
		}
		d.link, d.ownsLink = link, true
	}

	pluginCfg := PluginConfig{
		Port:      d.config.Port,
		Script:    d.config.Script,
		Logger:    d.logger,
		Restarter: d,
	}
	for i, p := range d.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			d.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			d.shutdownPlugins(d.plugins[:i])
			d.closeLink()
			d.cancel = nil
			_ = d.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		d.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	agent := app.NewAgent(d.config.agentConfig(), d.script, d.link, d.opts.clock, d.logger, d.emitter)
	d.agent.Store(agent)

	done := make(chan struct{})
	d.done = done

	d.lifecycle.Go(func() {
		defer close(done)

		if err := d.lifecycle.TransitionTo(app.StateRunning, "tasks starting"); err != nil {
			d.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		// Stop owns the transition once it has moved the state to Stopping
		err := agent.Run(runCtx)
		switch {
		case err == nil:
			_ = d.lifecycle.TransitionFrom(app.StateRunning, app.StateStopped, "script empty")
		case errors.Is(err, context.Canceled):
			_ = d.lifecycle.TransitionFrom(app.StateRunning, app.StateStopped, "context canceled")
		default:
			d.logger.Error("driver crashed", ports.Err(err))
			d.setErr(err)
			_ = d.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})

	return nil
}

// Stop cancels the tasks, closes the serial link and waits up to
// app.ShutdownTimeout for them to exit. Plugins are shut down in reverse
// order. Returns ErrShutdownTimeout if the tasks did not exit in time.
//
// If the run already ended on its own, Stop releases its resources and
// returns the error that ended it.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.lifecycle.State()
	if (state == app.StateStopped || state == app.StateCrashed) && d.cancel != nil {
		d.teardownLocked()
		return d.Err()
	}

	if !d.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := d.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		return err
	}

	err := d.teardownLocked()

	if err != nil {
		_ = d.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = d.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

func (d *Driver) teardownLocked() error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.closeLink()

	err := d.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	d.shutdownPlugins(d.plugins)
	d.agent.Store(nil)
	return err
}

func (d *Driver) closeLink() {
	if d.link == nil || !d.ownsLink {
		return
	}
	if err := d.link.Close(); err != nil {
		d.logger.Warn("failed to close serial link", ports.Err(err))
	}
	d.link = nil
}

func (d *Driver) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			d.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			d.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (d *Driver) Status() State {
	return State(d.lifecycle.State())
}

// LastTransition reports the most recent state change, including why the
// last run stopped or crashed.
func (d *Driver) LastTransition() Transition {
	t := d.lifecycle.Last()
	return Transition{From: State(t.From), To: State(t.To), Reason: t.Reason, At: t.At}
}

// Done is closed when the current run ends, whether by Stop, a crash or an
// empty script. It is nil before the first Start.
func (d *Driver) Done() <-chan struct{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.done
}

// Err returns the error that crashed the last run, if any.
func (d *Driver) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

func (d *Driver) setErr(err error) {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	d.err = err
}

// RequestRestart restarts the script from its first command, as if the
// modem had gone silent. It returns false if the driver is not running or
// a restart is already pending.
func (d *Driver) RequestRestart(reason string) bool {
	agent := d.agent.Load()
	if agent == nil || d.lifecycle.State() != app.StateRunning {
		return false
	}
	return agent.RequestRestart(reason)
}

// Script returns the resolved command script.
func (d *Driver) Script() Script {
	return d.script
}

func named(logger ports.Logger, name string) ports.Logger {
	if nl, ok := logger.(app.NamedLogger); ok {
		return nl.Component(name)
	}
	return logger
}
