// Package mqttnotify publishes driver events to an MQTT broker as JSON.
//
// Each event kind goes to its own topic under the configured prefix:
// <prefix>/state, <prefix>/dispatch, <prefix>/transmit, <prefix>/frame and
// <prefix>/inactivity.
package mqttnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bft-labs/atdrive/internal/ports"
	"github.com/bft-labs/atdrive/pkg/atdrive"
)

// Config holds configuration options for the MQTT notifier.
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	// The plugin is disabled when empty.
	Broker string

	// TopicPrefix is prepended to every event topic.
	// Default: atdrive
	TopicPrefix string

	// ClientID identifies this client to the broker.
	// Default: atdrive-<hostname>
	ClientID string

	// QoS used for every publish. Default: 0
	QoS byte

	// ConnectTimeout bounds the initial connect. The client keeps retrying
	// in the background after it expires.
	// Default: 10 seconds
	ConnectTimeout time.Duration

	// PublishTimeout bounds each publish. Default: 5 seconds
	PublishTimeout time.Duration

	// BufferSize is the number of events queued for publishing. Events
	// arriving while the buffer is full are dropped. Default: 64
	BufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopicPrefix:    "atdrive",
		ClientID:       "atdrive-" + hostname(),
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
		BufferSize:     64,
	}
}

// ClientFactory creates the MQTT client. Tests replace it with a mock.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

type message struct {
	topic   string
	payload any
}

// Plugin forwards driver events to MQTT. It implements atdrive.EventHandler.
type Plugin struct {
	config  Config
	factory ClientFactory

	logger  atdrive.Logger
	client  mqtt.Client
	queue   chan message
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	enabled bool
	dropped int
}

// New creates a new MQTT notifier with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = def.TopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Plugin{
		config:  cfg,
		factory: mqtt.NewClient,
		queue:   make(chan message, cfg.BufferSize),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "mqttnotify"
}

// Initialize connects to the broker and starts the publisher.
func (p *Plugin) Initialize(ctx context.Context, cfg atdrive.PluginConfig) error {
	p.logger = cfg.Logger

	if p.config.Broker == "" {
		p.logger.Warn("mqtt notifier disabled: no broker configured")
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(p.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(p.config.ConnectTimeout)
	opts.OnConnect = func(_ mqtt.Client) {
		p.logger.Info("mqtt notifier connected", ports.String("broker", p.config.Broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.logger.Warn("mqtt notifier connection lost", ports.Err(err))
	}

	p.client = p.factory(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(p.config.ConnectTimeout) {
		p.logger.Warn("mqtt broker not reachable yet, retrying in background",
			ports.String("broker", p.config.Broker))
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	pubCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.mu.Lock()
	p.enabled = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.publishLoop(pubCtx)

	p.logger.Info("mqtt notifier plugin initialized",
		ports.String("broker", p.config.Broker),
		ports.String("prefix", p.config.TopicPrefix))
	return nil
}

// Shutdown stops publishing and disconnects from the broker.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.enabled = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	return nil
}

// Dropped returns the number of events discarded because the buffer was full.
func (p *Plugin) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

func (p *Plugin) publishLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.publish(msg)
		}
	}
}

func (p *Plugin) publish(msg message) {
	payload, err := json.Marshal(msg.payload)
	if err != nil {
		p.logger.Error("mqtt notifier: failed to marshal event", ports.Err(err))
		return
	}

	topic := p.config.TopicPrefix + "/" + msg.topic
	token := p.client.Publish(topic, p.config.QoS, false, payload)
	if !token.WaitTimeout(p.config.PublishTimeout) {
		p.logger.Warn("mqtt notifier: publish timed out", ports.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Error("mqtt notifier: failed to publish", ports.String("topic", topic), ports.Err(err))
	}
}

// enqueue never blocks; the driver's tasks call it synchronously.
func (p *Plugin) enqueue(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}
	select {
	case p.queue <- message{topic: topic, payload: payload}:
	default:
		p.dropped++
	}
}

type statePayload struct {
	Time     time.Time `json:"time"`
	Previous string    `json:"previous"`
	Current  string    `json:"current"`
	Reason   string    `json:"reason"`
}

type dispatchPayload struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Reason string    `json:"reason"`
}

type transmitPayload struct {
	Time    time.Time `json:"time"`
	Index   int       `json:"index"`
	Command string    `json:"command"`
	Error   string    `json:"error,omitempty"`
}

type framePayload struct {
	Time    time.Time `json:"time"`
	Outcome string    `json:"outcome"`
	Size    int       `json:"size"`
}

type inactivityPayload struct {
	Time     time.Time `json:"time"`
	WindowMs int64     `json:"window_ms"`
}

func (p *Plugin) OnStateChange(ev atdrive.StateChangeEvent) {
	p.enqueue("state", statePayload{
		Time:     now(),
		Previous: ev.Previous.String(),
		Current:  ev.Current.String(),
		Reason:   ev.Reason,
	})
}

func (p *Plugin) OnDispatch(ev atdrive.DispatchEvent) {
	p.enqueue("dispatch", dispatchPayload{Time: now(), Action: ev.Action.String(), Reason: ev.Reason})
}

func (p *Plugin) OnTransmit(ev atdrive.TransmitEvent) {
	payload := transmitPayload{Time: now(), Index: ev.Index, Command: ev.Command}
	if ev.Error != nil {
		payload.Error = ev.Error.Error()
	}
	p.enqueue("transmit", payload)
}

func (p *Plugin) OnFrame(ev atdrive.FrameEvent) {
	p.enqueue("frame", framePayload{Time: now(), Outcome: ev.Outcome.String(), Size: ev.Size})
}

func (p *Plugin) OnInactivity(ev atdrive.InactivityEvent) {
	p.enqueue("inactivity", inactivityPayload{Time: now(), WindowMs: ev.Window.Milliseconds()})
}

func now() time.Time {
	return time.Now().UTC()
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

var (
	_ atdrive.Plugin       = (*Plugin)(nil)
	_ atdrive.EventHandler = (*Plugin)(nil)
)
