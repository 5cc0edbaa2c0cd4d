package wire

// Kind identifies a protocol message. The values are reverse engineered;
// anything not listed here is well-formed but unknown to this library.
type Kind byte

// Known message kinds.
const (
	// KindType0 is the identification reply that opens every session.
	KindType0 Kind = 0x00

	// KindLogbookData carries one encrypted logbook page. An empty body
	// means the requested page is past the end of the logbook.
	KindLogbookData Kind = 0x01

	// KindNak is the device-reported error frame. The body holds a
	// single reason code.
	KindNak Kind = 0x15

	// KindGetInfo requests the Type0 identification reply.
	KindGetInfo Kind = 0x80

	// KindReadLogbook requests one logbook page; the body is the page
	// index.
	KindReadLogbook Kind = 0x81
)

// String returns the kind name, or a hex rendering for unknown kinds.
func (k Kind) String() string {
	switch k {
	case KindType0:
		return "Type0"
	case KindLogbookData:
		return "LogbookData"
	case KindNak:
		return "Nak"
	case KindGetInfo:
		return "GetInfo"
	case KindReadLogbook:
		return "ReadLogbook"
	default:
		return "Unknown(0x" + string(hexUpper[k>>4]) + string(hexUpper[k&0x0f]) + ")"
	}
}

// Known reports whether the kind is part of the documented message set.
func (k Kind) Known() bool {
	switch k {
	case KindType0, KindLogbookData, KindNak, KindGetInfo, KindReadLogbook:
		return true
	}
	return false
}

// Framing constants. The single-byte length field counts the kind byte
// plus the body, so a frame carries at most 254 body bytes.
const (
	// MaxBodyLen is the maximum body size in one frame.
	MaxBodyLen = 254

	// maxFrameLen is the maximum binary image size: len, kind, body,
	// checksum.
	maxFrameLen = 1 + 255 + 1

	// replyTerminator ends every device → host frame.
	replyTerminator = "\r\n"
)

// requestReplies maps each request kind to the reply kind the device
// answers it with. This is the protocol's legal-order table: a reply of
// any other kind while one of these requests is outstanding indicates a
// desynchronized link.
var requestReplies = map[Kind]Kind{
	KindGetInfo:     KindType0,
	KindReadLogbook: KindLogbookData,
}

// ReplyKind returns the reply kind the device sends for a request kind.
// ok is false for kinds that are not requests in the documented set.
func ReplyKind(request Kind) (reply Kind, ok bool) {
	reply, ok = requestReplies[request]
	return reply, ok
}
