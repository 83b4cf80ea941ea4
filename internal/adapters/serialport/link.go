// Package serialport adapts go.bug.st/serial to ports.SerialLink.
//
// The link opens the device lazily and drops the port after any I/O error,
// so the next Read or Write reopens it. A modem that is unplugged and plugged
// back in is picked up without restarting the process.
package serialport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/bft-labs/atdrive/internal/ports"
)

// Defaults match the modem's UART configuration.
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = time.Second
)

// ErrClosed is returned by Read and Write after Close.
var ErrClosed = errors.New("serialport: link closed")

// Port is the subset of serial.Port used by the link.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens real serial ports.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Config describes the device to open.
type Config struct {
	Path        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Option configures a Link.
type Option func(*Link)

// WithPortFactory replaces the function used to open the device.
func WithPortFactory(f PortFactory) Option {
	return func(l *Link) {
		l.factory = f
	}
}

// WithLogger sets the logger for open and close events.
func WithLogger(logger ports.Logger) Option {
	return func(l *Link) {
		l.logger = logger
	}
}

// Link is a reconnecting serial link. It supports one concurrent reader and
// one concurrent writer.
type Link struct {
	cfg     Config
	factory PortFactory
	logger  ports.Logger

	mu     sync.Mutex
	port   Port
	closed bool
}

var _ ports.SerialLink = (*Link)(nil)

// New creates a link for cfg. The device is not opened until first use.
func New(cfg Config, opts ...Option) *Link {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	l := &Link{
		cfg:     cfg,
		factory: DefaultPortFactory,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open opens the device now instead of on first use.
func (l *Link) Open() error {
	_, err := l.acquire()
	return err
}

// Read reads from the device. It returns 0, nil when nothing arrives within
// the read timeout.
func (l *Link) Read(p []byte) (int, error) {
	port, err := l.acquire()
	if err != nil {
		return 0, err
	}
	n, err := port.Read(p)
	if err != nil {
		l.invalidate(port, err)
		return n, fmt.Errorf("read %s: %w", l.cfg.Path, err)
	}
	return n, nil
}

// Write writes p to the device.
func (l *Link) Write(p []byte) (int, error) {
	port, err := l.acquire()
	if err != nil {
		return 0, err
	}
	n, err := port.Write(p)
	if err != nil {
		l.invalidate(port, err)
		return n, fmt.Errorf("write %s: %w", l.cfg.Path, err)
	}
	return n, nil
}

// Close closes the device and makes every later Read or Write fail with
// ErrClosed. Closing the port also unblocks a pending Read.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// Connected reports whether the device is currently open.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// Path returns the device path.
func (l *Link) Path() string {
	return l.cfg.Path
}

func (l *Link) acquire() (Port, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if l.port != nil {
		return l.port, nil
	}

	port, err := l.factory(l.cfg.Path, &serial.Mode{
		BaudRate: l.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.cfg.Path, err)
	}
	if err := port.SetReadTimeout(l.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", l.cfg.Path, err)
	}

	l.port = port
	l.logger.Info("serial port opened",
		ports.String("path", l.cfg.Path),
		ports.Int("baud", l.cfg.BaudRate))
	return port, nil
}

// invalidate drops port if it is still current; the next operation reopens.
func (l *Link) invalidate(port Port, cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != port {
		return
	}
	l.port = nil
	if err := port.Close(); err != nil {
		l.logger.Debug("failed to close serial port", ports.Err(err))
	}
	l.logger.Warn("serial port dropped, will reopen",
		ports.String("path", l.cfg.Path), ports.Err(cause))
}

// ListPorts returns the serial devices present on the system.
func ListPorts() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return names, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
