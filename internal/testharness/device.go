package testharness

import (
	"github.com/alti2-tools/neptune-go/pkg/cipher"
	"github.com/alti2-tools/neptune-go/pkg/wire"
)

// Identity configures the Type0 reply a MockDevice hands out. Zero
// values fall back to the captured Atlas unit so most tests can leave
// it empty.
type Identity struct {
	ProtocolVersion byte
	SoftwareVersion byte // packed major<<4 | minor
	SoftwareRev     byte
	SerialNumber    string // at most 9 ASCII characters, space padded
	HardwareRev     byte
	ProductCode     byte
}

// atlasIdentity mirrors the captured frame from an Atlas,
// S/N Y183641, S/W 1.0.3.
var atlasIdentity = Identity{
	ProtocolVersion: 0x05,
	SoftwareVersion: 0x10,
	SoftwareRev:     0x03,
	SerialNumber:    "Y183641",
	HardwareRev:     0x02,
	ProductCode:     0x07,
}

// type0BodyLen matches the body length of captured Type0 replies. The
// bytes past the identity fields feed the key schedule, so they are
// filled with a fixed pattern rather than left zero.
const type0BodyLen = 29

// Type0Body builds the Type0 reply body for the given identity. Pass it
// to wire.NewFrame or wire.EncodeReply with wire.KindType0.
func Type0Body(id Identity) []byte {
	if id == (Identity{}) {
		id = atlasIdentity
	}
	body := make([]byte, type0BodyLen)
	body[0] = id.ProtocolVersion
	body[1] = id.SoftwareVersion
	body[2] = id.SoftwareRev
	serial := id.SerialNumber
	for i := 0; i < 9; i++ {
		if i < len(serial) {
			body[3+i] = serial[i]
		} else {
			body[3+i] = ' '
		}
	}
	body[12] = id.HardwareRev
	body[13] = id.ProductCode
	for i := 14; i < type0BodyLen; i++ {
		body[i] = byte(0x40 + i)
	}
	return body
}

// MockDevice scripts a well-behaved instrument: it answers GetInfo with
// its identity and serves encrypted logbook pages, one page request at a
// time, reporting end-of-data with an empty payload. Fields may be
// mutated between transactions to script faults.
type MockDevice struct {
	Identity Identity

	// Pages holds the plaintext logbook pages in order. Each page is
	// encrypted with the session cipher derived from the device's own
	// Type0 reply before it goes on the wire.
	Pages [][]byte

	// NakKinds lists request kinds the device refuses. A refused
	// request is answered with a NAK carrying ReasonUnsupported.
	NakKinds []wire.Kind

	// Mute drops all requests on the floor when set.
	Mute bool

	// CorruptReplies flips a byte in every reply after hex encoding,
	// turning it into line garbage the codec must reject or skip.
	CorruptReplies bool
}

// NAK reason codes used by the harness.
const (
	ReasonUnsupported = 0x01
	ReasonBadRequest  = 0x02
)

// NewMockDevice builds a device with the captured Atlas identity and
// the given plaintext pages.
func NewMockDevice(pages ...[]byte) *MockDevice {
	return &MockDevice{Identity: atlasIdentity, Pages: pages}
}

// Channel wraps the device in a MockChannel ready to hand to a session.
func (d *MockDevice) Channel() *MockChannel {
	return NewMockChannel(d.Respond)
}

// Respond is the device's request handler, usable directly as a
// MockChannel Responder.
func (d *MockDevice) Respond(request []byte) [][]byte {
	if d.Mute {
		return nil
	}

	kind, body, ok := parseRequest(request)
	if !ok {
		return d.emit(mustReply(wire.KindNak, []byte{ReasonBadRequest}))
	}
	for _, k := range d.NakKinds {
		if kind == k {
			return d.emit(mustReply(wire.KindNak, []byte{ReasonUnsupported}))
		}
	}

	switch kind {
	case wire.KindGetInfo:
		return d.emit(mustReply(wire.KindType0, Type0Body(d.Identity)))
	case wire.KindReadLogbook:
		if len(body) != 1 {
			return d.emit(mustReply(wire.KindNak, []byte{ReasonBadRequest}))
		}
		page := int(body[0])
		if page >= len(d.Pages) {
			return d.emit(mustReply(wire.KindLogbookData, nil))
		}
		return d.emit(mustReply(wire.KindLogbookData, d.encrypt(d.Pages[page])))
	default:
		return d.emit(mustReply(wire.KindNak, []byte{ReasonUnsupported}))
	}
}

// Cipher returns the session cipher a host that completed the handshake
// against this device would hold.
func (d *MockDevice) Cipher() *cipher.Cipher {
	f, err := wire.NewFrame(wire.KindType0, Type0Body(d.Identity))
	if err != nil {
		panic(err)
	}
	c, err := cipher.FromType0(f.Raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (d *MockDevice) encrypt(page []byte) []byte {
	return d.Cipher().Encrypt(page)
}

func (d *MockDevice) emit(reply []byte) [][]byte {
	if d.CorruptReplies && len(reply) > 4 {
		reply = append([]byte(nil), reply...)
		reply[len(reply)/2] ^= 0x10
	}
	return [][]byte{reply}
}

// mustReply encodes a device reply, panicking on oversized bodies.
// Harness pages are always within the frame limit.
func mustReply(kind wire.Kind, body []byte) []byte {
	out, err := wire.EncodeReply(kind, body)
	if err != nil {
		panic(err)
	}
	return out
}

// parseRequest decodes the contiguous-hex request image and returns its
// kind and body. Checksum and length are verified so the harness never
// answers a request a real device would reject.
func parseRequest(req []byte) (wire.Kind, []byte, bool) {
	if len(req) < 6 || len(req)%2 != 0 {
		return 0, nil, false
	}
	raw := make([]byte, len(req)/2)
	for i := range raw {
		hi, ok1 := hexVal(req[2*i])
		lo, ok2 := hexVal(req[2*i+1])
		if !ok1 || !ok2 {
			return 0, nil, false
		}
		raw[i] = hi<<4 | lo
	}
	length := int(raw[0])
	if length < 1 || len(raw) != length+2 {
		return 0, nil, false
	}
	if wire.Checksum(raw[1:len(raw)-1]) != raw[len(raw)-1] {
		return 0, nil, false
	}
	return wire.Kind(raw[1]), raw[2 : len(raw)-1], true
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
