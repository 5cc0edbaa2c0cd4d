// Package session composes the protocol layers into a single entry
// point for talking to an Alti-2 instrument.
//
// A Session owns one byte channel and drives it through the handshake:
//
//	disconnected ──connect──► identifying ──Type0 ok──► negotiating
//	                                │                       │
//	                                │                 capabilities +
//	                                │                 session cipher
//	                                │                       │
//	                                ▼                       ▼
//	                             faulted ◄───────────  authenticated
//
// Authenticated and faulted are terminal for a connection attempt; a
// fresh attempt means a new Session over a freshly opened channel. The
// transition table is explicit, so an unhandled state or message shows
// up as a rejected event rather than silent misbehavior.
//
// Once authenticated, DownloadLogbook pages the device's memory,
// decrypts each page with the session cipher, decodes the records and
// delivers them to a caller-supplied sink in decode order. Disconnect is
// safe from every state, including mid-failure, and always releases the
// channel.
package session
