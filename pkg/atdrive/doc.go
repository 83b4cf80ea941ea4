// Package atdrive provides an embeddable driver that runs AT command scripts
// against a serial modem.
//
// The driver sends a fixed, ordered script of CRLF-terminated commands. Each
// reply containing OK advances to the next command; a reply containing ERROR
// restarts the script from the first command. If the modem stays silent for
// the inactivity window the script is restarted as well.
//
// # Basic Usage
//
//	cfg := atdrive.DefaultConfig()
//	cfg.Port = "/dev/ttyUSB0"
//	cfg.Script = "http"
//
//	d, err := atdrive.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := d.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := d.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Scripts
//
// Built-in scripts are http, mqtt and mqtt-cmqtt. Additional scripts can be
// loaded from a TOML file via [Config.ScriptFile], or passed directly with
// [WithScript].
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler]) and pass it via
// [WithEventHandler]. Events are called synchronously from the task that
// produced them, so implementations should return quickly.
//
// # Lifecycle States
//
// A Driver can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. A full queue that stays
// full past [Config.SendTimeout] crashes the driver with [ErrQueueSaturated].
//
// # Plugins
//
//	import "github.com/bft-labs/atdrive/plugins/devicewatcher"
//	import "github.com/bft-labs/atdrive/plugins/mqttnotify"
//
//	d, err := atdrive.New(cfg,
//	    devicewatcher.WithDefaultDeviceWatcher(),
//	    mqttnotify.WithMQTTNotify(mqttnotify.Config{Broker: "tcp://localhost:1883"}),
//	)
package atdrive
