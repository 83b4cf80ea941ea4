// Package atdrive runs an AT command script against a serial modem.
//
// Example usage:
//
//	cfg := atdrive.DefaultConfig()
//	cfg.Port = "/dev/ttyUSB0"
//	cfg.Script = "mqtt"
//	if err := atdrive.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Run is a blocking convenience around pkg/atdrive. Use that package directly
// for plugins, event handlers or a custom link.
package atdrive

import (
	"context"
	"errors"

	"github.com/bft-labs/atdrive/pkg/atdrive"
)

// Config holds the configuration of the driver.
type Config = atdrive.Config

// Option configures the driver.
type Option = atdrive.Option

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return atdrive.DefaultConfig()
}

// Run starts the driver and blocks until ctx is canceled or the run ends on
// its own. It returns nil on cancellation or when the script is empty, and
// the crash error otherwise.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	d, err := atdrive.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-d.Done():
	}

	err = d.Stop()
	if errors.Is(err, atdrive.ErrNotRunning) {
		return nil
	}
	return err
}
