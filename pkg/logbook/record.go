package logbook

import (
	"fmt"
	"time"
)

// EventKind identifies what a logbook record describes.
type EventKind uint8

const (
	// EventUnknown is the zero value; never produced by a successful
	// decode.
	EventUnknown EventKind = 0x00
	// EventJump is a skydive profile summary.
	EventJump EventKind = 0x01
	// EventDive is a dive profile summary.
	EventDive EventKind = 0x02
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventJump:
		return "Jump"
	case EventDive:
		return "Dive"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint8(k))
	}
}

// Record is one decoded logbook entry. Immutable once decoded; all
// measurements are converted to SI units.
type Record struct {
	// Index is the record's position in the dump, counting from zero.
	Index int `cbor:"index"`

	// Sequence is the record number the device itself stored.
	Sequence uint16 `cbor:"sequence"`

	// Kind says whether this is a jump or a dive.
	Kind EventKind `cbor:"kind"`

	// Timestamp is when the event started, UTC.
	Timestamp time.Time `cbor:"timestamp"`

	// Exit is the exit altitude for jumps or the maximum depth for
	// dives, in meters.
	Exit float64 `cbor:"exit_m"`

	// Deployment is the canopy deployment altitude in meters. Zero for
	// dives.
	Deployment float64 `cbor:"deployment_m,omitempty"`

	// Duration is the event duration.
	Duration time.Duration `cbor:"duration"`

	// PeakRate is the peak descent rate in meters per second.
	PeakRate float64 `cbor:"peak_rate_ms"`

	// Raw is the record's bytes as stored on the device, kept for
	// auditability.
	Raw []byte `cbor:"raw"`
}

// String renders a one-line summary.
func (r *Record) String() string {
	return fmt.Sprintf("#%d %s %s exit %.0fm dur %s",
		r.Sequence, r.Kind, r.Timestamp.Format("2006-01-02 15:04:05"), r.Exit, r.Duration)
}
