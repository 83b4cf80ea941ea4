package mqttnotify

import "github.com/bft-labs/atdrive/pkg/atdrive"

// WithMQTTNotify returns an atdrive Option that publishes driver events to
// an MQTT broker.
//
// Usage:
//
//	d, err := atdrive.New(cfg,
//	    mqttnotify.WithMQTTNotify(mqttnotify.Config{
//	        Broker:      "tcp://localhost:1883",
//	        TopicPrefix: "modem/gw1",
//	    }),
//	)
func WithMQTTNotify(cfg Config) atdrive.Option {
	return atdrive.WithPlugin(New(cfg))
}
