package devicewatcher

import "github.com/bft-labs/atdrive/pkg/atdrive"

// WithDeviceWatcher returns an atdrive Option that restarts the script when
// the serial device node is recreated.
//
// Usage:
//
//	d, err := atdrive.New(cfg,
//	    devicewatcher.WithDeviceWatcher(devicewatcher.Config{
//	        DebounceDelay: time.Second,
//	    }),
//	)
func WithDeviceWatcher(cfg Config) atdrive.Option {
	return atdrive.WithPlugin(New(cfg))
}

// WithDefaultDeviceWatcher enables device watching with a 2s debounce.
func WithDefaultDeviceWatcher() atdrive.Option {
	return WithDeviceWatcher(DefaultConfig())
}
