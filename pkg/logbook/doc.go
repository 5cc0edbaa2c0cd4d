// Package logbook decodes downloaded Alti-2 logbook dumps into typed
// jump and dive records.
//
// A dump is the concatenation of the decrypted logbook pages exactly as
// they came off the device. Record framing depends on the product line:
// the classic units store fixed 32-byte records, the N3 family stores
// length-prefixed ones. The framing is selected by the Capabilities the
// session negotiated, never guessed from the bytes.
//
// Decoding never drops data silently. A record that fails its internal
// checksum or sanity checks is reported as a DecodeError carrying the
// record's position and raw bytes, and decoding continues with the next
// record. Exported measurements use SI units: meters, seconds, meters
// per second.
package logbook
