package testharness

import (
	"sync"
	"time"

	"github.com/alti2-tools/neptune-go/pkg/transport"
)

// Responder maps one host request (the raw ASCII bytes of one Write
// call) to the byte chunks the device sends back. Returning no chunks
// simulates a silent device for that request.
type Responder func(request []byte) [][]byte

// MockChannel is an in-memory transport.Channel with a scripted device
// on the far end. Writes are handed to the Responder; the bytes it
// returns become readable, optionally dribbled out in small chunks to
// exercise partial-read handling.
type MockChannel struct {
	mu      sync.Mutex
	respond Responder
	pending []byte
	writes  [][]byte
	closed  bool

	// ChunkSize caps how many bytes one ReadAvailable call may return.
	// Zero means no cap.
	ChunkSize int
}

// NewMockChannel creates a channel backed by the given responder.
// A nil responder yields a device that never answers.
func NewMockChannel(respond Responder) *MockChannel {
	return &MockChannel{respond: respond}
}

// Write records the request and queues the scripted reply.
func (c *MockChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, transport.ErrChannelClosed
	}

	req := append([]byte(nil), p...)
	c.writes = append(c.writes, req)

	if c.respond != nil {
		for _, chunk := range c.respond(req) {
			c.pending = append(c.pending, chunk...)
		}
	}
	return len(p), nil
}

// ReadAvailable pops queued bytes. When nothing is queued it sleeps for
// the full timeout, the way a blocking serial read would, then reports
// silence with an empty slice.
func (c *MockChannel) ReadAvailable(max int, timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, transport.ErrChannelClosed
	}

	if len(c.pending) == 0 {
		c.mu.Unlock()
		time.Sleep(timeout)
		return nil, nil
	}

	n := len(c.pending)
	if n > max {
		n = max
	}
	if c.ChunkSize > 0 && n > c.ChunkSize {
		n = c.ChunkSize
	}
	out := append([]byte(nil), c.pending[:n]...)
	c.pending = c.pending[n:]
	c.mu.Unlock()
	return out, nil
}

// Close marks the channel closed.
func (c *MockChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (c *MockChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Writes returns every request the host has written, in order.
func (c *MockChannel) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// Inject queues bytes for the host to read without any request having
// been written. Used to simulate line noise and unsolicited frames.
func (c *MockChannel) Inject(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, p...)
}

// Compile-time interface satisfaction check.
var _ transport.Channel = (*MockChannel)(nil)
