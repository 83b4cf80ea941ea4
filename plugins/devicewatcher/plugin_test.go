package devicewatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/atdrive/internal/ports"
	"github.com/bft-labs/atdrive/pkg/atdrive"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...ports.Field) {}
func (noopLogger) Info(string, ...ports.Field)  {}
func (noopLogger) Warn(string, ...ports.Field)  {}
func (noopLogger) Error(string, ...ports.Field) {}

type fakeRestarter struct {
	mu      sync.Mutex
	reasons []string
}

func (r *fakeRestarter) RequestRestart(reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
	return true
}

func (r *fakeRestarter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

func startWatcher(t *testing.T, delay time.Duration) (*Plugin, *fakeRestarter, string) {
	t.Helper()
	dir := t.TempDir()
	device := filepath.Join(dir, "ttyUSB0")
	restarter := &fakeRestarter{}

	plugin := New(Config{DebounceDelay: delay})
	err := plugin.Initialize(context.Background(), atdrive.PluginConfig{
		Port:      device,
		Logger:    noopLogger{},
		Restarter: restarter,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = plugin.Shutdown(context.Background()) })
	return plugin, restarter, device
}

func TestPlugin_RestartsWhenDeviceAppears(t *testing.T) {
	_, restarter, device := startWatcher(t, 20*time.Millisecond)

	if err := os.WriteFile(device, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for restarter.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if restarter.Count() != 1 {
		t.Fatalf("restart requests = %d, want 1", restarter.Count())
	}
	if restarter.reasons[0] != RestartReason {
		t.Errorf("reason = %q, want %q", restarter.reasons[0], RestartReason)
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	_, restarter, device := startWatcher(t, 10*time.Millisecond)

	if err := os.WriteFile(filepath.Join(filepath.Dir(device), "ttyUSB1"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if restarter.Count() != 0 {
		t.Errorf("restart requests = %d, want 0", restarter.Count())
	}
}

func TestPlugin_RemovalCancelsPendingRestart(t *testing.T) {
	_, restarter, device := startWatcher(t, 200*time.Millisecond)

	if err := os.WriteFile(device, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(device); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if restarter.Count() != 0 {
		t.Errorf("restart requests = %d, want 0 after the device went away again", restarter.Count())
	}
}

func TestPlugin_DisabledWithoutPort(t *testing.T) {
	plugin := New(DefaultConfig())
	err := plugin.Initialize(context.Background(), atdrive.PluginConfig{Logger: noopLogger{}})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	plugin := New(DefaultConfig())
	err := plugin.Initialize(context.Background(), atdrive.PluginConfig{
		Port:      filepath.Join(t.TempDir(), "missing", "ttyUSB0"),
		Logger:    noopLogger{},
		Restarter: &fakeRestarter{},
	})
	if err == nil {
		t.Fatal("Initialize should fail when the device directory does not exist")
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})
	if p.debounceDelay != 2*time.Second {
		t.Errorf("debounceDelay = %v, want 2s", p.debounceDelay)
	}
	if p.Name() != "devicewatcher" {
		t.Errorf("Name() = %q", p.Name())
	}
}
