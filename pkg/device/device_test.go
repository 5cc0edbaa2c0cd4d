package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alti2-tools/neptune-go/pkg/wire"
)

// type0Raw is the captured Type0 image shared with the wire and cipher
// tests: an Atlas, S/N Y183641, software 1.0.3, hardware rev 2.
var type0Raw = []byte{
	0x1E, 0x00, 0x05, 0x10, 0x03, 0x59, 0x31, 0x38, 0x33, 0x36, 0x34, 0x31,
	0x20, 0x20, 0x02, 0x07, 0x01, 0x00, 0x20, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x20, 0x05, 0x00, 0x00, 0x38,
}

func type0Frame(t *testing.T) *wire.Frame {
	t.Helper()
	f, err := wire.NewFrame(wire.KindType0, type0Raw[2:31])
	require.NoError(t, err)
	return f
}

func TestParseInfo_CapturedAtlas(t *testing.T) {
	info, err := ParseInfo(type0Frame(t))
	require.NoError(t, err)

	assert.Equal(t, uint8(0x05), info.ProtocolVersion)
	assert.Equal(t, SoftwareVersion{Major: 1, Minor: 0, Revision: 3}, info.Software)
	assert.Equal(t, "Y183641", info.SerialNumber)
	assert.Equal(t, uint8(2), info.HardwareRev)
	assert.Equal(t, ProductAtlas, info.Product)
	assert.Equal(t, "Alti-2 Atlas (rev. 2, S/N Y183641, S/W 1.0.3)", info.String())
}

func TestParseInfo_WrongKind(t *testing.T) {
	f, err := wire.NewFrame(wire.KindNak, []byte{0x01})
	require.NoError(t, err)
	_, err = ParseInfo(f)
	assert.ErrorIs(t, err, ErrNotType0)
}

func TestParseInfo_TooShort(t *testing.T) {
	f, err := wire.NewFrame(wire.KindType0, type0Raw[2:10])
	require.NoError(t, err)
	_, err = ParseInfo(f)
	assert.ErrorIs(t, err, ErrShortType0)
}

func TestProductFromCode(t *testing.T) {
	tests := []struct {
		code byte
		want ProductType
	}{
		{0, ProductUnknown},
		{1, ProductNeptune},
		{2, ProductWave},
		{3, ProductTracker},
		{4, ProductDataLogger},
		{5, ProductN3},
		{6, ProductN3A},
		{7, ProductAtlas},
		{8, ProductUnknown},
		{0xFF, ProductUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProductFromCode(tt.code), "code %d", tt.code)
	}
}

func TestCapabilitiesFor_ClassicLine(t *testing.T) {
	for _, p := range []ProductType{ProductNeptune, ProductWave, ProductTracker, ProductDataLogger} {
		caps, ok := CapabilitiesFor(p, 0x05)
		require.True(t, ok, "%s", p)
		assert.Equal(t, FormatFixed, caps.LogbookFormat)
		assert.Equal(t, 32, caps.RecordLen)
		assert.Equal(t, uint8(0x05), caps.ProtocolVersion)
		assert.True(t, caps.EncryptedPages)
	}
}

func TestCapabilitiesFor_N3Family(t *testing.T) {
	for _, p := range []ProductType{ProductN3, ProductN3A, ProductAtlas} {
		caps, ok := CapabilitiesFor(p, 0x05)
		require.True(t, ok, "%s", p)
		assert.Equal(t, FormatLengthPrefixed, caps.LogbookFormat)
	}
}

func TestCapabilitiesFor_UnknownRejected(t *testing.T) {
	_, ok := CapabilitiesFor(ProductUnknown, 0x05)
	assert.False(t, ok)
}
