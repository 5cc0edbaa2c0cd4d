// Package device models the instrument's identity and capabilities.
//
// Identity is parsed from the Type0 frame the device sends during the
// handshake: software version, serial number, hardware revision and
// product type. Capabilities are not negotiated on the wire; they are
// looked up from the product type the device reported, the same way the
// vendor's own software selects per-model behavior. Instruments the
// library does not recognize are rejected during the handshake rather
// than driven with guessed parameters.
package device
