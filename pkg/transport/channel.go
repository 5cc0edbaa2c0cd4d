package transport

import (
	"errors"
	"time"
)

// ErrChannelClosed indicates I/O on a closed channel.
var ErrChannelClosed = errors.New("channel is closed")

// Channel is a duplex byte stream with bounded reads. Implementations
// must tolerate arbitrary read sizes and must return an empty slice,
// not an error, when the timeout expires with nothing received -
// silence is an expected condition on a half-duplex serial link.
type Channel interface {
	// Write sends p in order. Short writes are errors.
	Write(p []byte) (int, error)

	// ReadAvailable returns up to max bytes, waiting at most timeout
	// for the first byte. An empty result with a nil error means the
	// timeout expired.
	ReadAvailable(max int, timeout time.Duration) ([]byte, error)

	// Close releases the channel. Safe to call more than once.
	Close() error
}
