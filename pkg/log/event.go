package log

import (
	"time"
)

// MaxFrameDataSize is the maximum raw frame image size to include in an
// event. Alti-2 frames are small, so this is rarely hit, but a capture
// must never balloon because a corrupted length field claimed otherwise.
const MaxFrameDataSize = 512

// Event represents a protocol capture event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// SerialNumber is the device serial (populated once identified).
	SerialNumber string `cbor:"6,keyasint,omitempty"`

	// Port is the host-side channel name, e.g. "/dev/ttyUSB0".
	Port string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Raw frames
	Transaction *TransactionEvent `cbor:"11,keyasint,omitempty"` // Request/response outcomes
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Handshake state
	Resync      *ResyncEvent      `cbor:"13,keyasint,omitempty"` // Codec resynchronization
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates device → host.
	DirectionIn Direction = 0
	// DirectionOut indicates host → device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the byte channel (raw serial traffic).
	LayerTransport Layer = 0
	// LayerWire is the frame codec.
	LayerWire Layer = 1
	// LayerSession is the handshake and facade layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a complete frame in either direction.
	CategoryFrame Category = 0
	// CategoryTransaction indicates a request/response outcome.
	CategoryTransaction Category = 1
	// CategoryState indicates a handshake state change.
	CategoryState Category = 2
	// CategoryResync indicates bytes discarded during resynchronization.
	CategoryResync Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryTransaction:
		return "TRANSACTION"
	case CategoryState:
		return "STATE"
	case CategoryResync:
		return "RESYNC"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one complete frame.
type FrameEvent struct {
	// Kind is the message kind byte.
	Kind uint8 `cbor:"1,keyasint"`

	// KindName is the decoded kind name ("Type0", "Nak", ...).
	KindName string `cbor:"2,keyasint"`

	// Size is the binary image size in bytes.
	Size int `cbor:"3,keyasint"`

	// Data is the binary frame image, possibly truncated.
	Data []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates Data was cut at MaxFrameDataSize.
	Truncated bool `cbor:"5,keyasint,omitempty"`
}

// TransactionEvent captures the outcome of one transaction attempt.
type TransactionEvent struct {
	// RequestKind is the request message kind byte.
	RequestKind uint8 `cbor:"1,keyasint"`

	// Attempt is the 1-based attempt number.
	Attempt int `cbor:"2,keyasint"`

	// MaxAttempts is the configured attempt budget.
	MaxAttempts int `cbor:"3,keyasint"`

	// Outcome is "ok", "timeout", "nak", "unexpected" or "transport".
	Outcome string `cbor:"4,keyasint"`

	// Elapsed is how long the attempt took.
	Elapsed time.Duration `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures a handshake state transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Reason describes what triggered the transition.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ResyncEvent captures a resynchronization episode in the codec.
type ResyncEvent struct {
	// Skipped is how many bytes were discarded.
	Skipped int `cbor:"1,keyasint"`

	// Reason summarizes why the bytes were rejected.
	Reason string `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Phase names the failing phase: "handshake" or "extraction".
	Phase string `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Raw holds offending bytes when available, for protocol-analysis
	// reports.
	Raw []byte `cbor:"3,keyasint,omitempty"`
}

// TruncateFrameData bounds data for inclusion in a FrameEvent.
func TruncateFrameData(data []byte) (out []byte, truncated bool) {
	if len(data) > MaxFrameDataSize {
		return data[:MaxFrameDataSize], true
	}
	return data, false
}
