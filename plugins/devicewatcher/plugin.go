// Package devicewatcher restarts the command script when the serial device
// node comes back, e.g. after the modem was unplugged and plugged in again.
package devicewatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/atdrive/internal/ports"
	"github.com/bft-labs/atdrive/pkg/atdrive"
)

// RestartReason is passed to the driver when the device reappears.
const RestartReason = "device reattached"

// Plugin watches the directory of the serial device node.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration

	path      string
	logger    atdrive.Logger
	restarter atdrive.Restarter
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	debounce  *time.Timer
}

// Config holds configuration options for the device watcher plugin.
type Config struct {
	// DebounceDelay is how long the device node must settle before the
	// script is restarted. udev usually creates and chmods the node in
	// quick succession.
	// Default: 2 seconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 2 * time.Second}
}

// New creates a new device watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultConfig().DebounceDelay
	}
	return &Plugin{debounceDelay: cfg.DebounceDelay}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "devicewatcher"
}

// Initialize starts watching the device's parent directory.
func (p *Plugin) Initialize(ctx context.Context, cfg atdrive.PluginConfig) error {
	p.mu.Lock()
	p.path = filepath.Clean(cfg.Port)
	p.logger = cfg.Logger
	p.restarter = cfg.Restarter
	p.mu.Unlock()

	if cfg.Port == "" || cfg.Restarter == nil {
		p.logger.Warn("device watcher disabled: no serial port configured")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("device watcher plugin initialized", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and drops any pending restart.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				p.debounceRestart(ctx)
			case event.Has(fsnotify.Remove):
				p.cancelRestart()
				p.logger.Warn("serial device removed", ports.String("path", p.path))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("device watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceRestart(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.logger.Info("serial device reappeared, restarting script",
			ports.String("path", p.path))
		if !p.restarter.RequestRestart(RestartReason) {
			p.logger.Debug("restart not accepted")
		}
	})
}

func (p *Plugin) cancelRestart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
}

// Ensure Plugin implements atdrive.Plugin.
var _ atdrive.Plugin = (*Plugin)(nil)
