// Package wire implements the Alti-2 frame codec.
//
// The protocol is ASCII over a serial byte stream. Every frame has the
// binary image:
//
//	┌──────┬──────┬───────────────┬──────────┐
//	│ len  │ kind │     body      │ checksum │
//	│ 1 B  │ 1 B  │  len-1 bytes  │   1 B    │
//	└──────┴──────┴───────────────┴──────────┘
//
// len counts the kind byte plus the body; the checksum is the additive
// 8-bit sum over kind and body. The binary image is never transmitted
// directly:
//
//   - Host → device: contiguous uppercase hex pairs with no separators
//     and no terminator. The GetInfo request (kind 0x80, empty body) is
//     exactly the six ASCII bytes "018080".
//   - Device → host: hex pairs each followed by a single space,
//     terminated by CRLF. The decoder accepts either hex case.
//
// The wire format is reverse engineered. All layout constants and the
// request/response kind table live in this package (layout.go) so that a
// future protocol variant is a new table entry, not a new state machine.
//
// # Decoding
//
// Decode attempts to parse one device frame at the start of a buffer and
// reports one of three outcomes: a validated frame, "need more data"
// (expected mid-stream condition, not an error), or "invalid" with a
// resynchronization hint. StreamDecoder layers buffering and automatic
// byte-by-byte resynchronization on top, so a single corrupted byte never
// costs more than the frame it landed in.
package wire
