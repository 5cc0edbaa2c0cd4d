package logbook

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/alti2-tools/neptune-go/pkg/device"
	"github.com/alti2-tools/neptune-go/pkg/wire"
)

// Decode errors.
var (
	// ErrRecordChecksum indicates a record whose internal checksum
	// does not match its contents.
	ErrRecordChecksum = errors.New("record checksum mismatch")

	// ErrRecordTruncated indicates a record cut off by the end of the
	// dump.
	ErrRecordTruncated = errors.New("record truncated")

	// ErrRecordTooShort indicates a record body missing measurement
	// fields.
	ErrRecordTooShort = errors.New("record body too short")

	// ErrBadEventKind indicates a record with an event kind the
	// protocol does not define.
	ErrBadEventKind = errors.New("unknown event kind")

	// ErrUnsupportedFormat indicates capabilities naming a logbook
	// format this decoder does not implement.
	ErrUnsupportedFormat = errors.New("unsupported logbook format")
)

// DecodeError reports one record that failed validation. The raw bytes
// are preserved so failures can be contributed back to protocol
// analysis.
type DecodeError struct {
	// Index is the failing record's position in the dump, counting
	// from zero.
	Index int

	// Raw holds the record's bytes as found in the dump.
	Raw []byte

	// Reason is the underlying validation error.
	Reason error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Reason)
}

// Unwrap exposes the validation error for errors.Is.
func (e *DecodeError) Unwrap() error { return e.Reason }

// recordEpoch is the device clock zero: 2000-01-01 00:00:00 UTC.
var recordEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// metersPerFoot converts the device's imperial fields to SI.
const metersPerFoot = 0.3048

// minRecordBody is the measurement field span of a record body.
const minRecordBody = 15

// Decode interprets a full logbook dump using the record framing the
// capabilities name. It is deterministic and restartable: decoding the
// same dump twice yields identical results.
//
// Records that fail validation are collected as DecodeErrors and
// decoding continues; the caller decides whether partial data is
// acceptable. An empty dump and an all-erased dump both decode to zero
// records with no errors.
func Decode(dump []byte, caps device.Capabilities) ([]Record, []*DecodeError, error) {
	switch caps.LogbookFormat {
	case device.FormatFixed:
		records, errs := decodeFixed(dump, caps.RecordLen)
		return records, errs, nil
	case device.FormatLengthPrefixed:
		records, errs := decodeLengthPrefixed(dump)
		return records, errs, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, caps.LogbookFormat)
	}
}

// decodeFixed walks fixed-size records. A record whose first byte is
// 0x00 marks the end of the used region; 0xFF is erased flash. The last
// record byte is the additive checksum of the rest.
func decodeFixed(dump []byte, recordLen int) ([]Record, []*DecodeError) {
	var (
		records []Record
		errs    []*DecodeError
	)
	index := 0
	for off := 0; off < len(dump); off += recordLen {
		if dump[off] == 0x00 || dump[off] == 0xFF {
			break
		}
		if off+recordLen > len(dump) {
			errs = append(errs, &DecodeError{
				Index:  index,
				Raw:    append([]byte(nil), dump[off:]...),
				Reason: ErrRecordTruncated,
			})
			break
		}

		raw := dump[off : off+recordLen]
		body := raw[:recordLen-1]
		if wire.Checksum(body) != raw[recordLen-1] {
			errs = append(errs, &DecodeError{
				Index:  index,
				Raw:    append([]byte(nil), raw...),
				Reason: ErrRecordChecksum,
			})
			index++
			continue
		}

		rec, err := parseBody(index, body, raw)
		if err != nil {
			errs = append(errs, &DecodeError{
				Index:  index,
				Raw:    append([]byte(nil), raw...),
				Reason: err,
			})
			index++
			continue
		}
		records = append(records, rec)
		index++
	}
	return records, errs
}

// decodeLengthPrefixed walks records led by a length byte counting the
// body plus the trailing checksum. A zero or erased length byte marks
// the end of the used region. The length field is trusted for advancing
// even when the checksum fails, so one bad record does not derail the
// rest of the dump.
func decodeLengthPrefixed(dump []byte) ([]Record, []*DecodeError) {
	var (
		records []Record
		errs    []*DecodeError
	)
	index := 0
	off := 0
	for off < len(dump) {
		length := int(dump[off])
		if length == 0x00 || length == 0xFF {
			break
		}
		if off+1+length > len(dump) {
			errs = append(errs, &DecodeError{
				Index:  index,
				Raw:    append([]byte(nil), dump[off:]...),
				Reason: ErrRecordTruncated,
			})
			break
		}

		raw := dump[off : off+1+length]
		body := raw[1:length] // everything between the length byte and the checksum
		sum := raw[length]
		off += 1 + length

		if wire.Checksum(body) != sum {
			errs = append(errs, &DecodeError{
				Index:  index,
				Raw:    append([]byte(nil), raw...),
				Reason: ErrRecordChecksum,
			})
			index++
			continue
		}

		rec, err := parseBody(index, body, raw)
		if err != nil {
			errs = append(errs, &DecodeError{
				Index:  index,
				Raw:    append([]byte(nil), raw...),
				Reason: err,
			})
			index++
			continue
		}
		records = append(records, rec)
		index++
	}
	return records, errs
}

// parseBody extracts the measurement fields common to both framings.
// The offsets follow the published protocol analysis.
func parseBody(index int, body, raw []byte) (Record, error) {
	if len(body) < minRecordBody {
		return Record{}, fmt.Errorf("%w: %d bytes", ErrRecordTooShort, len(body))
	}

	kind := EventKind(body[0])
	if kind != EventJump && kind != EventDive {
		return Record{}, fmt.Errorf("%w: 0x%02X", ErrBadEventKind, body[0])
	}

	seconds := binary.LittleEndian.Uint32(body[3:7])
	exitFt := binary.LittleEndian.Uint16(body[7:9])
	deployFt := binary.LittleEndian.Uint16(body[9:11])
	durationS := binary.LittleEndian.Uint16(body[11:13])
	peakFtMin := binary.LittleEndian.Uint16(body[13:15])

	return Record{
		Index:      index,
		Sequence:   binary.LittleEndian.Uint16(body[1:3]),
		Kind:       kind,
		Timestamp:  recordEpoch.Add(time.Duration(seconds) * time.Second),
		Exit:       float64(exitFt) * metersPerFoot,
		Deployment: float64(deployFt) * metersPerFoot,
		Duration:   time.Duration(durationS) * time.Second,
		PeakRate:   float64(peakFtMin) * metersPerFoot / 60,
		Raw:        append([]byte(nil), raw...),
	}, nil
}
