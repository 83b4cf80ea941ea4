package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultStartupDelay gives the modem time to boot before the first command.
const DefaultStartupDelay = 20 * time.Second

// Config holds CLI configuration for atdrive.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration

	Script     string
	ScriptFile string

	Inactivity     time.Duration
	Debounce       time.Duration
	StartupDelay   time.Duration
	DrainOnRestart bool

	ReadBufferSize int
	ReadBackoff    time.Duration
	ReadBackoffMax time.Duration
	QueueCapacity  int
	SendTimeout    time.Duration

	WatchDevice  bool
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	LogFile  string
	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BaudRate:       115200,
		ReadTimeout:    time.Second,
		Script:         "http",
		Inactivity:     15 * time.Second,
		Debounce:       500 * time.Millisecond,
		StartupDelay:   DefaultStartupDelay,
		DrainOnRestart: true,
		ReadBufferSize: 1024,
		ReadBackoff:    100 * time.Millisecond,
		ReadBackoffMax: 2 * time.Second,
		QueueCapacity:  10,
		MQTTTopic:      "atdrive",
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Script == "" {
		return fmt.Errorf("script is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.Inactivity <= 0 {
		return fmt.Errorf("inactivity window must be positive")
	}
	if c.Debounce < 0 || c.StartupDelay < 0 || c.SendTimeout < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.ReadBackoffMax < c.ReadBackoff {
		return fmt.Errorf("read-backoff-max must be at least read-backoff")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
