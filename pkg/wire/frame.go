package wire

import "fmt"

// Frame is one validated protocol message. Instances are only produced
// by this package after the checksum has been verified; a frame with a
// failing checksum is never returned to a caller.
type Frame struct {
	// Kind is the message kind byte.
	Kind Kind

	// Data is the body after the kind byte. May be empty.
	Data []byte

	// Raw is the full binary image (len, kind, body, checksum). Kept
	// for provenance: decode errors and protocol-analysis reports quote
	// these bytes verbatim. Identity parsing also indexes into it,
	// because the reverse-engineered field offsets were documented
	// against the raw image.
	Raw []byte
}

// NewFrame builds a frame from a kind and body, computing the length and
// checksum. It fails with ErrPayloadTooLarge when the body exceeds
// MaxBodyLen.
func NewFrame(kind Kind, body []byte) (*Frame, error) {
	if len(body) > MaxBodyLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(body), MaxBodyLen)
	}

	raw := make([]byte, 0, len(body)+3)
	raw = append(raw, byte(len(body)+1), byte(kind))
	raw = append(raw, body...)
	raw = append(raw, Checksum(raw[1:]))

	return &Frame{
		Kind: kind,
		Data: raw[2 : len(raw)-1],
		Raw:  raw,
	}, nil
}

// String renders the frame for diagnostics, e.g. "Type0 (30 B)".
func (f *Frame) String() string {
	return fmt.Sprintf("%s (%d B)", f.Kind, len(f.Data))
}
