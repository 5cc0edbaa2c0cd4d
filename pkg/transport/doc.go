// Package transport provides the byte channel the protocol runs over.
//
// The protocol stack consumes an abstract duplex byte stream:
//
//	┌────────────────────────────────┐
//	│     ASCII-hex frames           │
//	├────────────────────────────────┤
//	│     Channel (this package)     │
//	├────────────────────────────────┤
//	│     RS-232 over USB            │
//	└────────────────────────────────┘
//
// Channel makes no promises about message boundaries; reads return
// whatever bytes have arrived, and the codec reassembles frames. The
// serial implementation talks to the instrument's cradle: 57600 baud,
// 8N1, DTR asserted. The device only enters its communication mode a
// few seconds after DTR rises, so Open supports a settle delay before
// the first handshake bytes are sent.
package transport
