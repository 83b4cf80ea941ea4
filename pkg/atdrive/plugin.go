package atdrive

import "context"

// Plugin extends a Driver with optional behavior.
// A plugin that also implements EventHandler receives every driver event.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called from Start before the tasks run. ctx is canceled
	// when the driver stops.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called from Stop after the tasks have exited.
	Shutdown(ctx context.Context) error
}

// PluginConfig is the driver context handed to plugins.
type PluginConfig struct {
	Port   string
	Script string
	Logger Logger

	// Restarter restarts the script from its first command.
	Restarter Restarter
}

// Restarter is implemented by Driver.
type Restarter interface {
	RequestRestart(reason string) bool
}

// BasePlugin implements Plugin with no-ops. Embed it and override what you need.
type BasePlugin struct{}

func (BasePlugin) Name() string                                   { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
