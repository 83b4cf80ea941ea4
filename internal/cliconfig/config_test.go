package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Script != "http" {
		t.Errorf("Script = %v, want http", cfg.Script)
	}
	if cfg.Inactivity != 15*time.Second {
		t.Errorf("Inactivity = %v, want 15s", cfg.Inactivity)
	}
	if cfg.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Debounce)
	}
	if cfg.StartupDelay != DefaultStartupDelay {
		t.Errorf("StartupDelay = %v, want %v", cfg.StartupDelay, DefaultStartupDelay)
	}
	if !cfg.DrainOnRestart {
		t.Error("DrainOnRestart = false, want true")
	}
	if cfg.QueueCapacity != 10 {
		t.Errorf("QueueCapacity = %v, want 10", cfg.QueueCapacity)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Port = "/dev/ttyUSB0"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid defaults with port", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Port = "" }, wantErr: true},
		{name: "missing script", mutate: func(c *Config) { c.Script = "" }, wantErr: true},
		{name: "zero baud", mutate: func(c *Config) { c.BaudRate = 0 }, wantErr: true},
		{name: "zero inactivity", mutate: func(c *Config) { c.Inactivity = 0 }, wantErr: true},
		{name: "negative debounce", mutate: func(c *Config) { c.Debounce = -time.Second }, wantErr: true},
		{name: "negative send timeout", mutate: func(c *Config) { c.SendTimeout = -time.Second }, wantErr: true},
		{name: "zero startup delay", mutate: func(c *Config) { c.StartupDelay = 0 }},
		{
			name: "backoff max below initial",
			mutate: func(c *Config) {
				c.ReadBackoff = time.Second
				c.ReadBackoffMax = 100 * time.Millisecond
			},
			wantErr: true,
		},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "empty log level", mutate: func(c *Config) { c.LogLevel = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigSetter_RespectsChanged(t *testing.T) {
	s := newConfigSetter(map[string]bool{"port": true, "inactivity": true})

	port := "/dev/flag"
	s.setString("port", "/dev/file", &port)
	if port != "/dev/flag" {
		t.Errorf("port = %v, want /dev/flag", port)
	}

	window := time.Second
	if err := s.setDuration("inactivity", "not-a-duration", &window); err != nil {
		t.Errorf("setDuration() on changed flag should not parse, got %v", err)
	}

	n := 5
	s.setInt("queue-capacity", 0, &n)
	if n != 5 {
		t.Errorf("setInt() with zero value overwrote destination: %v", n)
	}
	if err := s.setIntFromString("queue-capacity", "-3", &n); err != nil || n != 5 {
		t.Errorf("setIntFromString() negative: n = %v, err = %v", n, err)
	}
}
