package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Port           string `toml:"port"`
	BaudRate       int    `toml:"baud"`
	ReadTimeout    string `toml:"read_timeout"`
	Script         string `toml:"script"`
	ScriptFile     string `toml:"script_file"`
	Inactivity     string `toml:"inactivity"`
	Debounce       string `toml:"debounce"`
	StartupDelay   string `toml:"startup_delay"`
	DrainOnRestart *bool  `toml:"drain_on_restart"`
	ReadBufferSize int    `toml:"read_buffer"`
	ReadBackoff    string `toml:"read_backoff"`
	ReadBackoffMax string `toml:"read_backoff_max"`
	QueueCapacity  int    `toml:"queue_capacity"`
	SendTimeout    string `toml:"send_timeout"`
	WatchDevice    *bool  `toml:"watch_device"`
	MQTTBroker     string `toml:"mqtt_broker"`
	MQTTTopic      string `toml:"mqtt_topic"`
	MQTTClientID   string `toml:"mqtt_client_id"`
	LogFile        string `toml:"log_file"`
	LogLevel       string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.atdrive/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".atdrive", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.Port)
	s.setString("script", fc.Script, &cfg.Script)
	s.setString("script-file", fc.ScriptFile, &cfg.ScriptFile)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTTTopic, &cfg.MQTTTopic)
	s.setString("mqtt-client-id", fc.MQTTClientID, &cfg.MQTTClientID)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"read-timeout", fc.ReadTimeout, &cfg.ReadTimeout},
		{"inactivity", fc.Inactivity, &cfg.Inactivity},
		{"debounce", fc.Debounce, &cfg.Debounce},
		{"startup-delay", fc.StartupDelay, &cfg.StartupDelay},
		{"read-backoff", fc.ReadBackoff, &cfg.ReadBackoff},
		{"read-backoff-max", fc.ReadBackoffMax, &cfg.ReadBackoffMax},
		{"send-timeout", fc.SendTimeout, &cfg.SendTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setInt("read-buffer", fc.ReadBufferSize, &cfg.ReadBufferSize)
	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)

	s.setBool("drain-on-restart", fc.DrainOnRestart, &cfg.DrainOnRestart)
	s.setBool("watch-device", fc.WatchDevice, &cfg.WatchDevice)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
