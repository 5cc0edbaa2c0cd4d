package wire

// maxBuffered caps the stream decoder's internal buffer. Large enough
// for several maximum-size frames; anything beyond that is line noise.
const maxBuffered = 4096

// StreamDecoder reassembles frames from an arbitrary byte stream. It
// buffers partial frames across Feed calls and resynchronizes after
// corrupted bytes by following the codec's skip hints, so one bad byte
// costs at most the frame it landed in.
//
// StreamDecoder is not safe for concurrent use; the protocol is
// half-duplex and a single reader owns the stream.
type StreamDecoder struct {
	buf     []byte
	skipped int
	faults  []error
}

// NewStreamDecoder creates an empty stream decoder.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Feed appends p to the buffer and returns every complete frame that can
// now be decoded, in stream order. Invalid stretches are skipped and
// recorded; drain them with TakeFaults.
func (d *StreamDecoder) Feed(p []byte) []*Frame {
	d.buf = append(d.buf, p...)

	var frames []*Frame
	for {
		res := Decode(d.buf)
		switch res.Status {
		case DecodeOK:
			frames = append(frames, res.Frame)
			d.buf = d.buf[res.Consumed:]
		case DecodeNeedMore:
			// The head may be a garbage byte masquerading as a large
			// length field. If a complete, checksum-valid frame already
			// sits further in the buffer, the head is garbage: waiting
			// for it to "complete" would stall the later frame forever.
			skip, inner := d.scanAhead()
			if inner == nil {
				d.trim()
				return frames
			}
			d.skipped += skip
			d.faults = append(d.faults, ErrMalformed)
			frames = append(frames, inner.Frame)
			d.buf = d.buf[skip+inner.Consumed:]
		case DecodeInvalid:
			d.skipped += res.Skip
			d.faults = append(d.faults, res.Err)
			d.buf = d.buf[res.Skip:]
		}
	}
}

// scanAhead looks for a complete valid frame starting after the current
// cursor. Returns the offset of the frame and its decode result, or
// (0, nil) when no complete frame exists yet. The chance of garbage
// passing both the checksum and the terminator check is negligible, so
// a hit means the cursor really is sitting on garbage.
func (d *StreamDecoder) scanAhead() (int, *DecodeResult) {
	for s := 1; s < len(d.buf); s++ {
		res := Decode(d.buf[s:])
		if res.Status == DecodeOK {
			return s, &res
		}
	}
	return 0, nil
}

// trim bounds the buffer so garbage input cannot grow it without limit.
// The tail is kept; a valid frame may still be forming there.
func (d *StreamDecoder) trim() {
	if len(d.buf) > maxBuffered {
		drop := len(d.buf) - maxBuffered
		d.buf = d.buf[drop:]
		d.skipped += drop
	}
}

// TakeFaults returns and clears the reasons for every invalid stretch
// skipped since the last call. Callers log these; resynchronization is
// automatic but never silent.
func (d *StreamDecoder) TakeFaults() []error {
	f := d.faults
	d.faults = nil
	return f
}

// Skipped returns the total number of bytes discarded during
// resynchronization over the decoder's lifetime.
func (d *StreamDecoder) Skipped() int {
	return d.skipped
}

// Buffered returns the number of bytes held for a frame in progress.
func (d *StreamDecoder) Buffered() int {
	return len(d.buf)
}

// Reset discards all buffered bytes. Used when a transaction is
// abandoned and the stream position is no longer trusted.
func (d *StreamDecoder) Reset() {
	d.buf = nil
}
