package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alti2-tools/neptune-go/pkg/wire"
)

// Type0 field offsets into the raw frame image. Reverse engineered;
// documented against the image including the length byte, matching the
// published protocol analysis.
const (
	offProtocolVersion = 2
	offSoftwareVersion = 3
	offRevision        = 4
	offSerialStart     = 5
	offSerialEnd       = 14
	offHardwareRev     = 14
	offProductType     = 15

	// minType0Len is the shortest Type0 image that carries all
	// identity fields.
	minType0Len = 16
)

// Identity errors.
var (
	// ErrNotType0 indicates a frame of a different kind.
	ErrNotType0 = errors.New("not a Type0 frame")

	// ErrShortType0 indicates a Type0 frame missing identity fields.
	ErrShortType0 = errors.New("type0 frame too short")
)

// SoftwareVersion is the firmware version reported in Type0.
type SoftwareVersion struct {
	Major    int
	Minor    int
	Revision int
}

// String returns "major.minor.revision".
func (v SoftwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// Info is the instrument identity recorded during the handshake.
// Immutable once parsed.
type Info struct {
	ProtocolVersion uint8
	Software        SoftwareVersion
	SerialNumber    string
	HardwareRev     uint8
	Product         ProductType
}

// ParseInfo extracts the identity fields from a validated Type0 frame.
// The frame's checksum has already been verified by the codec; this
// only checks that the expected fields are present.
func ParseInfo(f *wire.Frame) (*Info, error) {
	if f.Kind != wire.KindType0 {
		return nil, fmt.Errorf("%w: got %s", ErrNotType0, f.Kind)
	}
	if len(f.Raw) < minType0Len {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortType0, len(f.Raw))
	}

	raw := f.Raw
	return &Info{
		ProtocolVersion: raw[offProtocolVersion],
		Software: SoftwareVersion{
			Major:    int(raw[offSoftwareVersion] >> 4),
			Minor:    int(raw[offSoftwareVersion] & 0x0f),
			Revision: int(raw[offRevision]),
		},
		SerialNumber: strings.TrimSpace(string(raw[offSerialStart:offSerialEnd])),
		HardwareRev:  raw[offHardwareRev],
		Product:      ProductFromCode(raw[offProductType]),
	}, nil
}

// String renders the identity the way the vendor software displays it,
// e.g. "Alti-2 Atlas (rev. 2, S/N Y183641, S/W 1.0.3)".
func (i *Info) String() string {
	return fmt.Sprintf("Alti-2 %s (rev. %d, S/N %s, S/W %s)",
		i.Product, i.HardwareRev, i.SerialNumber, i.Software)
}
