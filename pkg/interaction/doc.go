// Package interaction implements the transaction layer of the Alti-2
// protocol: one request on the wire at a time, a bounded wait for the
// matching reply, and identical re-sends when the device stays silent.
//
// The protocol is strictly half-duplex. The device never speaks
// unsolicited, so every inbound frame is interpreted against the single
// outstanding request:
//
//	Execute(GetInfo) ──► write "018080"
//	                     │
//	                     ├── Type0 reply ──► return frame
//	                     ├── NAK ──────────► DeviceError
//	                     ├── other kind ───► ProtocolError
//	                     └── silence ──────► re-send, up to MaxAttempts,
//	                                         then TimeoutError
//
// Requests are idempotent reads, which is what makes the blind re-send
// safe. A reply that arrives after its attempt was abandoned is drained
// before the next request goes out, so it can never be matched against
// the wrong transaction.
//
// # Concurrency
//
// Engine serializes callers. A second Execute while one is in flight
// fails fast with ErrBusy rather than queueing; the serial link has no
// useful notion of a request queue.
package interaction
