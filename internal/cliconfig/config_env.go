package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (ATDRIVE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", os.Getenv("ATDRIVE_PORT"), &cfg.Port)
	s.setString("script", os.Getenv("ATDRIVE_SCRIPT"), &cfg.Script)
	s.setString("script-file", os.Getenv("ATDRIVE_SCRIPT_FILE"), &cfg.ScriptFile)
	s.setString("mqtt-broker", os.Getenv("ATDRIVE_MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-topic", os.Getenv("ATDRIVE_MQTT_TOPIC"), &cfg.MQTTTopic)
	s.setString("mqtt-client-id", os.Getenv("ATDRIVE_MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("log-file", os.Getenv("ATDRIVE_LOG_FILE"), &cfg.LogFile)
	s.setString("log-level", os.Getenv("ATDRIVE_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("read-timeout", os.Getenv("ATDRIVE_READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("inactivity", os.Getenv("ATDRIVE_INACTIVITY"), &cfg.Inactivity); err != nil {
		return err
	}
	if err := s.setDuration("debounce", os.Getenv("ATDRIVE_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}
	if err := s.setDuration("startup-delay", os.Getenv("ATDRIVE_STARTUP_DELAY"), &cfg.StartupDelay); err != nil {
		return err
	}
	if err := s.setDuration("read-backoff", os.Getenv("ATDRIVE_READ_BACKOFF"), &cfg.ReadBackoff); err != nil {
		return err
	}
	if err := s.setDuration("read-backoff-max", os.Getenv("ATDRIVE_READ_BACKOFF_MAX"), &cfg.ReadBackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("send-timeout", os.Getenv("ATDRIVE_SEND_TIMEOUT"), &cfg.SendTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("baud", os.Getenv("ATDRIVE_BAUD"), &cfg.BaudRate); err != nil {
		return err
	}
	if err := s.setIntFromString("read-buffer", os.Getenv("ATDRIVE_READ_BUFFER"), &cfg.ReadBufferSize); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-capacity", os.Getenv("ATDRIVE_QUEUE_CAPACITY"), &cfg.QueueCapacity); err != nil {
		return err
	}

	s.setBoolFromString("drain-on-restart", os.Getenv("ATDRIVE_DRAIN_ON_RESTART"), &cfg.DrainOnRestart)
	s.setBoolFromString("watch-device", os.Getenv("ATDRIVE_WATCH_DEVICE"), &cfg.WatchDevice)

	return nil
}
