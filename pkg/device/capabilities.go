package device

// LogbookFormat selects how records are framed inside a logbook dump.
type LogbookFormat uint8

const (
	// FormatFixed frames records at a fixed size with a trailing
	// checksum byte. Used by the classic product line.
	FormatFixed LogbookFormat = iota

	// FormatLengthPrefixed frames each record with a one-byte length
	// prefix. Used by the N3 family and Atlas.
	FormatLengthPrefixed
)

// String returns the format name.
func (f LogbookFormat) String() string {
	switch f {
	case FormatFixed:
		return "fixed"
	case FormatLengthPrefixed:
		return "length-prefixed"
	default:
		return "invalid"
	}
}

// Capabilities describes the per-model protocol behavior negotiated
// during the handshake. Exposed to the logbook decoder once the session
// is authenticated.
type Capabilities struct {
	// ProtocolVersion is the version byte from the Type0 reply.
	ProtocolVersion uint8

	// LogbookFormat selects the record framing in dumps.
	LogbookFormat LogbookFormat

	// RecordLen is the fixed record size in bytes. Meaningful only for
	// FormatFixed.
	RecordLen int

	// PageSize is the decrypted logbook page payload size in bytes.
	PageSize int

	// EncryptedPages reports whether logbook pages arrive encrypted
	// with the session cipher.
	EncryptedPages bool
}

// capabilityTable maps each supported product to its protocol behavior.
// Adding a firmware variant means adding a row here, not changing the
// state machine.
var capabilityTable = map[ProductType]Capabilities{
	ProductNeptune:    {LogbookFormat: FormatFixed, RecordLen: 32, PageSize: 224, EncryptedPages: true},
	ProductWave:       {LogbookFormat: FormatFixed, RecordLen: 32, PageSize: 224, EncryptedPages: true},
	ProductTracker:    {LogbookFormat: FormatFixed, RecordLen: 32, PageSize: 224, EncryptedPages: true},
	ProductDataLogger: {LogbookFormat: FormatFixed, RecordLen: 32, PageSize: 224, EncryptedPages: true},
	ProductN3:         {LogbookFormat: FormatLengthPrefixed, PageSize: 224, EncryptedPages: true},
	ProductN3A:        {LogbookFormat: FormatLengthPrefixed, PageSize: 224, EncryptedPages: true},
	ProductAtlas:      {LogbookFormat: FormatLengthPrefixed, PageSize: 224, EncryptedPages: true},
}

// CapabilitiesFor returns the capabilities of a product. ok is false
// for products the library does not support; the handshake rejects
// those instead of guessing.
func CapabilitiesFor(product ProductType, protocolVersion uint8) (Capabilities, bool) {
	caps, ok := capabilityTable[product]
	if !ok {
		return Capabilities{}, false
	}
	caps.ProtocolVersion = protocolVersion
	return caps, ok
}
