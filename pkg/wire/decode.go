package wire

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	// ErrPayloadTooLarge indicates a body longer than MaxBodyLen.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrChecksumMismatch indicates a frame whose checksum does not
	// match its contents.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrMalformed indicates bytes that cannot be part of a frame at
	// the current position.
	ErrMalformed = errors.New("malformed frame")
)

// DecodeStatus is the outcome of one Decode attempt.
type DecodeStatus int

const (
	// DecodeOK means a complete, checksum-verified frame was parsed.
	DecodeOK DecodeStatus = iota

	// DecodeNeedMore means the buffer holds a valid frame prefix but
	// not the whole frame yet. This is the normal mid-stream condition,
	// not an error.
	DecodeNeedMore

	// DecodeInvalid means the bytes at the cursor cannot be a frame.
	// The result carries a resynchronization hint.
	DecodeInvalid
)

// DecodeResult is the tri-state result of Decode.
type DecodeResult struct {
	// Status discriminates the remaining fields.
	Status DecodeStatus

	// Frame is the parsed frame. Set only for DecodeOK.
	Frame *Frame

	// Consumed is how many buffer bytes the frame occupied, including
	// its CRLF terminator. Set only for DecodeOK.
	Consumed int

	// Skip is the resynchronization hint for DecodeInvalid: how many
	// bytes to advance before retrying. Always at least 1, so a caller
	// that follows the hint makes progress even on pathological input.
	Skip int

	// Err is the reason for DecodeInvalid.
	Err error
}

// Decode attempts to parse one device → host frame at the start of buf.
// It never fails on truncated input: as long as every present byte is
// consistent with a frame, the result is DecodeNeedMore. Frames whose
// checksum fails are reported as DecodeInvalid and never surfaced as
// frames.
func Decode(buf []byte) DecodeResult {
	// The length byte is the first hex pair.
	count, res, ok := decodePair(buf, 0)
	if !ok {
		return res
	}
	if count == 0 {
		// A frame always carries at least a kind byte.
		return invalid(buf, fmt.Errorf("%w: zero length field", ErrMalformed))
	}

	total := int(count) + 2 // length byte, kind+body, checksum byte
	raw := make([]byte, 1, total)
	raw[0] = count
	for i := 1; i < total; i++ {
		b, res, ok := decodePair(buf, i*3)
		if !ok {
			return res
		}
		raw = append(raw, b)
	}

	// CRLF terminator after the last "HH " token.
	term := total * 3
	for j := 0; j < len(replyTerminator); j++ {
		if term+j >= len(buf) {
			return DecodeResult{Status: DecodeNeedMore}
		}
		if buf[term+j] != replyTerminator[j] {
			return invalid(buf, fmt.Errorf("%w: missing terminator", ErrMalformed))
		}
	}

	if got, want := raw[total-1], Checksum(raw[1:total-1]); got != want {
		return invalid(buf, fmt.Errorf("%w: got 0x%02X, want 0x%02X",
			ErrChecksumMismatch, got, want))
	}

	return DecodeResult{
		Status: DecodeOK,
		Frame: &Frame{
			Kind: Kind(raw[1]),
			Data: raw[2 : total-1],
			Raw:  raw,
		},
		Consumed: term + len(replyTerminator),
	}
}

// decodePair parses the "HH " token at off. ok is false when the caller
// should return res instead (need-more or invalid).
func decodePair(buf []byte, off int) (byte, DecodeResult, bool) {
	for j := 0; j < 2; j++ {
		if off+j >= len(buf) {
			return 0, DecodeResult{Status: DecodeNeedMore}, false
		}
		if !isHexDigit(buf[off+j]) {
			return 0, invalid(buf, fmt.Errorf("%w: non-hex byte 0x%02X at offset %d",
				ErrMalformed, buf[off+j], off+j)), false
		}
	}
	if off+2 >= len(buf) {
		return 0, DecodeResult{Status: DecodeNeedMore}, false
	}
	if buf[off+2] != ' ' {
		return 0, invalid(buf, fmt.Errorf("%w: missing pair separator at offset %d",
			ErrMalformed, off+2)), false
	}
	return hexVal(buf[off])<<4 | hexVal(buf[off+1]), DecodeResult{}, true
}

// invalid builds a DecodeInvalid result with a resynchronization hint.
func invalid(buf []byte, err error) DecodeResult {
	return DecodeResult{Status: DecodeInvalid, Skip: resyncSkip(buf), Err: err}
}

// resyncSkip returns the distance to the next plausible frame start: a
// hex pair followed by a space. When no such position exists in the
// buffer, everything except the last two bytes (a possible start split
// across reads) can be discarded.
func resyncSkip(buf []byte) int {
	for s := 1; s+2 < len(buf); s++ {
		if isHexDigit(buf[s]) && isHexDigit(buf[s+1]) && buf[s+2] == ' ' {
			return s
		}
	}
	if len(buf) > 3 {
		return len(buf) - 2
	}
	return 1
}

func isHexDigit(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'A' && c <= 'F':
		return true
	case c >= 'a' && c <= 'f':
		return true
	}
	return false
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}
