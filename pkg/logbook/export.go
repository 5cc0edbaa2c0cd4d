package logbook

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// exportEncMode is the CBOR encoder mode for record export files.
// Deterministic so identical dumps export byte-identical files.
var exportEncMode cbor.EncMode

// exportDecMode is the CBOR decoder mode for record export files.
var exportDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339,
	}
	exportEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record export CBOR encoder mode: %v", err))
	}

	exportDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record export CBOR decoder mode: %v", err))
	}
}

// Writer streams records to an export file as a CBOR sequence, one
// record per item.
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter creates a record export writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: exportEncMode.NewEncoder(w)}
}

// Write appends one record to the export.
func (w *Writer) Write(r Record) error {
	return w.enc.Encode(r)
}

// Accept implements Sink, so a Writer can be handed straight to a
// logbook download.
func (w *Writer) Accept(r Record) error { return w.Write(r) }

// Compile-time interface satisfaction check.
var _ Sink = (*Writer)(nil)

// ReadAll decodes every record from an export file.
func ReadAll(r io.Reader) ([]Record, error) {
	dec := exportDecMode.NewDecoder(r)
	var records []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return records, nil
			}
			return records, err
		}
		records = append(records, rec)
	}
}
