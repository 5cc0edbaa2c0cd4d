package transport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial line defaults for the Alti-2 cradle.
const (
	// DefaultBaudRate is the instrument's fixed line rate.
	DefaultBaudRate = 57600

	// DefaultSettleDelay is how long the instrument needs after DTR
	// rises before it answers on the link.
	DefaultSettleDelay = 10 * time.Second
)

// SerialConfig configures a serial channel.
type SerialConfig struct {
	// Path is the device path, e.g. "/dev/ttyUSB0" or "COM3".
	Path string

	// BaudRate overrides DefaultBaudRate when non-zero. The stock
	// cradle only speaks 57600.
	BaudRate int

	// SettleDelay overrides DefaultSettleDelay when non-zero. Open
	// blocks for this long after asserting DTR.
	SettleDelay time.Duration
}

// serialPort is the slice of serial.Port this package uses. Narrowed
// so tests can substitute a fake port.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetDTR(dtr bool) error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// SerialChannel is a Channel over a local serial port.
type SerialChannel struct {
	mu     sync.Mutex
	port   serialPort
	path   string
	closed bool
}

// OpenSerial opens the port with the instrument's line discipline
// (8 data bits, no parity, one stop bit), asserts DTR and waits for the
// device to settle.
func OpenSerial(cfg SerialConfig) (*SerialChannel, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	settle := cfg.SettleDelay
	if settle == 0 {
		settle = DefaultSettleDelay
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}
	if err := port.SetDTR(true); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("asserting DTR on %s: %w", cfg.Path, err)
	}

	time.Sleep(settle)

	return &SerialChannel{port: port, path: cfg.Path}, nil
}

// newSerialChannel wraps an already-open port. Used by tests.
func newSerialChannel(port serialPort, path string) *SerialChannel {
	return &SerialChannel{port: port, path: path}
}

// Path returns the device path the channel was opened on.
func (c *SerialChannel) Path() string {
	return c.path
}

// Write sends p to the port.
func (c *SerialChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrChannelClosed
	}

	n, err := c.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("serial write: %w", err)
	}
	if n < len(p) {
		return n, fmt.Errorf("serial write: short write (%d of %d bytes)", n, len(p))
	}
	return n, nil
}

// ReadAvailable reads up to max bytes, waiting at most timeout for the
// first byte. A timeout yields an empty slice and a nil error.
func (c *SerialChannel) ReadAvailable(max int, timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrChannelClosed
	}
	port := c.port
	c.mu.Unlock()

	if err := port.SetReadTimeout(timeout); err != nil {
		return nil, fmt.Errorf("serial read timeout: %w", err)
	}

	buf := make([]byte, max)
	n, err := port.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("serial read: %w", err)
	}
	return buf[:n], nil
}

// Close drops DTR and closes the port. Safe to call more than once.
func (c *SerialChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	// Dropping DTR puts the instrument back into standalone mode.
	_ = c.port.SetDTR(false)
	return c.port.Close()
}

// Compile-time interface satisfaction check.
var _ Channel = (*SerialChannel)(nil)

// ListPorts returns the serial port paths visible on this host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
