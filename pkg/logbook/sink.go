package logbook

// Sink accepts decoded records one at a time, in decode order. A Sink
// may buffer or block; a non-nil error aborts the delivery loop.
type Sink interface {
	Accept(Record) error
}

// SliceSink collects records in memory. The zero value is ready to use.
type SliceSink struct {
	Records []Record
}

// Accept appends the record.
func (s *SliceSink) Accept(r Record) error {
	s.Records = append(s.Records, r)
	return nil
}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(Record) error

// Accept calls the function.
func (f FuncSink) Accept(r Record) error { return f(r) }

// Compile-time interface satisfaction checks.
var (
	_ Sink = (*SliceSink)(nil)
	_ Sink = FuncSink(nil)
)
