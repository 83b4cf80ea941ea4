package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/atdrive/internal/adapters/log"
	"github.com/bft-labs/atdrive/internal/adapters/serialport"
	"github.com/bft-labs/atdrive/internal/cliconfig"
	"github.com/bft-labs/atdrive/internal/script"
	"github.com/bft-labs/atdrive/pkg/atdrive"
	"github.com/bft-labs/atdrive/plugins/devicewatcher"
	"github.com/bft-labs/atdrive/plugins/mqttnotify"
)

const helpDescription = `
Drive an AT-command modem through a fixed script over a serial link.

Each command is sent once the modem acknowledges the previous one with OK.
An ERROR reply, or 15 seconds of silence, restarts the script from the top.

Built-in scripts: http, mqtt, mqtt-cmqtt. Custom scripts can be loaded from
a TOML catalog with --script-file.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  atdrive --port /dev/ttyUSB0 --script mqtt
  atdrive --config $HOME/.atdrive/config.toml --watch-device
  atdrive ports
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:          "atdrive",
		Short:        "Drive an AT-command modem through a command script",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file; flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			var closer io.Closer
			var err error
			log, closer, err = cliconfig.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			log.Info().Interface("config", cfg).Msg("configuration")

			return run(cmd.Context(), cfg, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.atdrive/config.toml)")
	root.Flags().StringVar(&cfg.Port, "port", cfg.Port, "serial device path, e.g. /dev/ttyUSB0")
	root.Flags().IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	root.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "bounded wait of each serial read")

	root.Flags().StringVar(&cfg.Script, "script", cfg.Script, "script to run (http, mqtt, mqtt-cmqtt or a name from --script-file)")
	root.Flags().StringVar(&cfg.ScriptFile, "script-file", cfg.ScriptFile, "TOML catalog of custom scripts")

	root.Flags().DurationVar(&cfg.Inactivity, "inactivity", cfg.Inactivity, "silence tolerated before the script restarts")
	root.Flags().DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "wait between a reply and the next action")
	root.Flags().DurationVar(&cfg.StartupDelay, "startup-delay", cfg.StartupDelay, "wait for the modem to boot before the first command")
	root.Flags().BoolVar(&cfg.DrainOnRestart, "drain-on-restart", cfg.DrainOnRestart, "discard queued replies on inactivity or requested restarts")

	root.Flags().IntVar(&cfg.ReadBufferSize, "read-buffer", cfg.ReadBufferSize, "bytes read per serial read")
	root.Flags().DurationVar(&cfg.ReadBackoff, "read-backoff", cfg.ReadBackoff, "initial backoff after a read error")
	root.Flags().DurationVar(&cfg.ReadBackoffMax, "read-backoff-max", cfg.ReadBackoffMax, "maximum backoff after repeated read errors")
	root.Flags().IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "depth of the action and frame queues")
	root.Flags().DurationVar(&cfg.SendTimeout, "send-timeout", cfg.SendTimeout, "crash when a queue stays full this long (0 waits forever)")
	if err := root.Flags().MarkHidden("send-timeout"); err != nil {
		log.Info().Err(err).Msg("failed to hide send-timeout flag")
	}

	root.Flags().BoolVar(&cfg.WatchDevice, "watch-device", cfg.WatchDevice, "restart the script when the device node is recreated")
	root.Flags().StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "publish driver events to this MQTT broker")
	root.Flags().StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "topic prefix for published events")
	root.Flags().StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id (default: atdrive-<hostname>)")

	root.Flags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write JSON logs to this rotating file")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(portsCmd(), scriptsCmd(&cfg))

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("atdrive")
		os.Exit(1)
	}
}

func run(parent context.Context, cfg cliconfig.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	opts := []atdrive.Option{
		atdrive.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
	}
	if cfg.WatchDevice {
		opts = append(opts, devicewatcher.WithDefaultDeviceWatcher())
	}
	if cfg.MQTTBroker != "" {
		mc := mqttnotify.DefaultConfig()
		mc.Broker = cfg.MQTTBroker
		mc.TopicPrefix = cfg.MQTTTopic
		if cfg.MQTTClientID != "" {
			mc.ClientID = cfg.MQTTClientID
		}
		opts = append(opts, mqttnotify.WithMQTTNotify(mc))
	}

	d, err := atdrive.New(libConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start driver: %w", err)
	}

	select {
	case <-sigCh:
		log.Info().Msg("received signal, stopping...")
	case <-d.Done():
		t := d.LastTransition()
		if t.To == atdrive.StateCrashed {
			log.Error().Err(d.Err()).Str("reason", t.Reason).Time("at", t.At).Msg("driver crashed")
		} else {
			log.Info().Str("reason", t.Reason).Msg("driver stopped")
		}
	}

	if err := d.Stop(); err != nil && !errors.Is(err, atdrive.ErrNotRunning) {
		return fmt.Errorf("stop driver: %w", err)
	}
	return nil
}

func libConfig(cfg cliconfig.Config) atdrive.Config {
	return atdrive.Config{
		Port:                cfg.Port,
		BaudRate:            cfg.BaudRate,
		ReadTimeout:         cfg.ReadTimeout,
		Script:              cfg.Script,
		ScriptFile:          cfg.ScriptFile,
		InactivityWindow:    cfg.Inactivity,
		DebounceDelay:       cfg.Debounce,
		StartupDelay:        cfg.StartupDelay,
		DrainOnRestart:      cfg.DrainOnRestart,
		ReadBufferSize:      cfg.ReadBufferSize,
		ReadErrorBackoff:    cfg.ReadBackoff,
		ReadErrorBackoffMax: cfg.ReadBackoffMax,
		QueueCapacity:       cfg.QueueCapacity,
		SendTimeout:         cfg.SendTimeout,
	}
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := serialport.ListPorts()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func scriptsCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts [name]",
		Short: "List scripts, or print the commands of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := script.NewCatalog()
			if cfg.ScriptFile != "" {
				f, err := script.LoadFile(cfg.ScriptFile)
				if err != nil {
					return err
				}
				f.Register(catalog)
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, n := range catalog.Names() {
					fmt.Fprintln(out, n)
				}
				return nil
			}

			s, err := catalog.Lookup(args[0])
			if err != nil {
				return err
			}
			for i := 0; i < s.Len(); i++ {
				c := s.At(i)
				fmt.Fprintf(out, "%2d  %-60q %v\n", i, c.Payload, c.PostSendDelay)
			}
			return nil
		},
	}
}
