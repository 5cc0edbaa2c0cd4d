package logbook

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alti2-tools/neptune-go/pkg/device"
	"github.com/alti2-tools/neptune-go/pkg/wire"
)

func fixedCaps() device.Capabilities {
	caps, ok := device.CapabilitiesFor(device.ProductNeptune, 5)
	if !ok {
		panic("neptune capabilities missing")
	}
	return caps
}

func prefixedCaps() device.Capabilities {
	caps, ok := device.CapabilitiesFor(device.ProductAtlas, 5)
	if !ok {
		panic("atlas capabilities missing")
	}
	return caps
}

// recordBody builds the 15-byte measurement span shared by both
// framings.
func recordBody(kind EventKind, seq uint16, seconds uint32, exitFt, deployFt, durS, peakFtMin uint16) []byte {
	body := make([]byte, 15)
	body[0] = byte(kind)
	binary.LittleEndian.PutUint16(body[1:3], seq)
	binary.LittleEndian.PutUint32(body[3:7], seconds)
	binary.LittleEndian.PutUint16(body[7:9], exitFt)
	binary.LittleEndian.PutUint16(body[9:11], deployFt)
	binary.LittleEndian.PutUint16(body[11:13], durS)
	binary.LittleEndian.PutUint16(body[13:15], peakFtMin)
	return body
}

// fixedRecord pads the body to 31 bytes and appends the checksum.
func fixedRecord(body []byte) []byte {
	rec := make([]byte, 32)
	copy(rec, body)
	rec[31] = wire.Checksum(rec[:31])
	return rec
}

// prefixedRecord wraps the body in a length prefix and checksum.
func prefixedRecord(body []byte) []byte {
	rec := make([]byte, 0, len(body)+2)
	rec = append(rec, byte(len(body)+1))
	rec = append(rec, body...)
	return append(rec, wire.Checksum(body))
}

func TestDecodeEmptyDump(t *testing.T) {
	for _, caps := range []device.Capabilities{fixedCaps(), prefixedCaps()} {
		records, errs, err := Decode(nil, caps)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Empty(t, errs)
	}
}

func TestDecodeErasedDump(t *testing.T) {
	erased := bytes.Repeat([]byte{0xFF}, 256)
	for _, caps := range []device.Capabilities{fixedCaps(), prefixedCaps()} {
		records, errs, err := Decode(erased, caps)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Empty(t, errs)
	}
}

func TestDecodeFixedSingleJump(t *testing.T) {
	when := time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)
	seconds := uint32(when.Sub(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)) / time.Second)

	dump := fixedRecord(recordBody(EventJump, 42, seconds, 13500, 3000, 62, 10560))
	records, errs, err := Decode(dump, fixedCaps())
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 0, r.Index)
	assert.Equal(t, uint16(42), r.Sequence)
	assert.Equal(t, EventJump, r.Kind)
	assert.True(t, r.Timestamp.Equal(when))
	assert.InDelta(t, 13500*0.3048, r.Exit, 0.001)
	assert.InDelta(t, 3000*0.3048, r.Deployment, 0.001)
	assert.Equal(t, 62*time.Second, r.Duration)
	assert.InDelta(t, 10560*0.3048/60, r.PeakRate, 0.001) // 120 mph terminal
	assert.Equal(t, dump, r.Raw)
}

func TestDecodeThreeGoodOneCorrupt(t *testing.T) {
	good := func(seq uint16) []byte {
		return recordBody(EventJump, seq, 1000*uint32(seq), 13000, 3500, 60, 9000)
	}

	t.Run("fixed", func(t *testing.T) {
		var dump []byte
		for seq := uint16(1); seq <= 3; seq++ {
			dump = append(dump, fixedRecord(good(seq))...)
		}
		bad := fixedRecord(good(4))
		bad[5] ^= 0x01 // break the checksum
		dump = append(dump, bad...)

		records, errs, err := Decode(dump, fixedCaps())
		require.NoError(t, err)
		assert.Len(t, records, 3)
		require.Len(t, errs, 1)
		assert.Equal(t, 3, errs[0].Index)
		assert.ErrorIs(t, errs[0], ErrRecordChecksum)
		assert.Equal(t, bad, errs[0].Raw)
	})

	t.Run("length-prefixed", func(t *testing.T) {
		var dump []byte
		for seq := uint16(1); seq <= 3; seq++ {
			dump = append(dump, prefixedRecord(good(seq))...)
		}
		bad := prefixedRecord(good(4))
		bad[5] ^= 0x01
		dump = append(dump, bad...)

		records, errs, err := Decode(dump, prefixedCaps())
		require.NoError(t, err)
		assert.Len(t, records, 3)
		require.Len(t, errs, 1)
		assert.Equal(t, 3, errs[0].Index)
		assert.ErrorIs(t, errs[0], ErrRecordChecksum)
		assert.Equal(t, bad, errs[0].Raw)
	})
}

func TestDecodeCorruptRecordDoesNotDerailFollowers(t *testing.T) {
	good1 := prefixedRecord(recordBody(EventDive, 1, 100, 130, 0, 2400, 60))
	bad := prefixedRecord(recordBody(EventDive, 2, 200, 130, 0, 2400, 60))
	bad[3] ^= 0x80
	good2 := prefixedRecord(recordBody(EventDive, 3, 300, 130, 0, 2400, 60))

	dump := append(append(append([]byte(nil), good1...), bad...), good2...)
	records, errs, err := Decode(dump, prefixedCaps())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint16(1), records[0].Sequence)
	assert.Equal(t, uint16(3), records[1].Sequence)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Index)
}

func TestDecodeStopsAtEndMarker(t *testing.T) {
	dump := fixedRecord(recordBody(EventJump, 7, 500, 12000, 3000, 58, 9500))
	dump = append(dump, make([]byte, 64)...) // erased-to-zero tail

	records, errs, err := Decode(dump, fixedCaps())
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, uint16(7), records[0].Sequence)
}

func TestDecodeBadEventKind(t *testing.T) {
	body := recordBody(EventJump, 1, 100, 12000, 3000, 60, 9000)
	body[0] = 0x7E
	dump := fixedRecord(body)

	records, errs, err := Decode(dump, fixedCaps())
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrBadEventKind)
}

func TestDecodeTruncatedRecord(t *testing.T) {
	full := prefixedRecord(recordBody(EventJump, 1, 100, 12000, 3000, 60, 9000))
	dump := full[:len(full)-4]

	records, errs, err := Decode(dump, prefixedCaps())
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrRecordTruncated)
}

func TestDecodeDeterministic(t *testing.T) {
	var dump []byte
	for seq := uint16(1); seq <= 5; seq++ {
		dump = append(dump, prefixedRecord(recordBody(EventJump, seq, 1000*uint32(seq), 13000, 3200, 61, 9100))...)
	}

	first, errs1, err := Decode(dump, prefixedCaps())
	require.NoError(t, err)
	second, errs2, err := Decode(dump, prefixedCaps())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, errs1, errs2)
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	_, _, err := Decode(nil, device.Capabilities{LogbookFormat: device.LogbookFormat(0xEE)})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportRoundTrip(t *testing.T) {
	var dump []byte
	for seq := uint16(1); seq <= 3; seq++ {
		dump = append(dump, prefixedRecord(recordBody(EventJump, seq, 1000*uint32(seq), 13000, 3200, 61, 9100))...)
	}
	records, errs, err := Decode(dump, prefixedCaps())
	require.NoError(t, err)
	require.Empty(t, errs)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, r := range records {
		require.NoError(t, w.Accept(r))
	}

	back, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, back, len(records))
	for i := range records {
		assert.Equal(t, records[i].Sequence, back[i].Sequence)
		assert.Equal(t, records[i].Kind, back[i].Kind)
		assert.True(t, records[i].Timestamp.Equal(back[i].Timestamp))
		assert.Equal(t, records[i].Raw, back[i].Raw)
	}
}

func TestSinks(t *testing.T) {
	rec := Record{Sequence: 9, Kind: EventJump}

	var slice SliceSink
	require.NoError(t, slice.Accept(rec))
	require.Len(t, slice.Records, 1)

	var seen []uint16
	fn := FuncSink(func(r Record) error {
		seen = append(seen, r.Sequence)
		return nil
	})
	require.NoError(t, fn.Accept(rec))
	assert.Equal(t, []uint16{9}, seen)
}
