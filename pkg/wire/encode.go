package wire

const hexUpper = "0123456789ABCDEF"

// appendHexUpper appends the uppercase hex pair for each byte of b,
// inserting sep after every pair when sep is non-zero.
func appendHexUpper(dst []byte, b []byte, sep byte) []byte {
	for _, c := range b {
		dst = append(dst, hexUpper[c>>4], hexUpper[c&0x0f])
		if sep != 0 {
			dst = append(dst, sep)
		}
	}
	return dst
}

// Encode serializes a host → device request: the binary image rendered
// as contiguous uppercase hex pairs. Encoding is deterministic; the same
// kind and body always produce identical bytes, which is what makes
// transaction retries safe.
func Encode(kind Kind, body []byte) ([]byte, error) {
	f, err := NewFrame(kind, body)
	if err != nil {
		return nil, err
	}
	return appendHexUpper(make([]byte, 0, len(f.Raw)*2), f.Raw, 0), nil
}

// EncodeReply serializes a device → host frame: space-separated hex
// pairs terminated by CRLF. The host never sends these; the function
// exists for device simulators and test fixtures.
func EncodeReply(kind Kind, body []byte) ([]byte, error) {
	f, err := NewFrame(kind, body)
	if err != nil {
		return nil, err
	}
	out := appendHexUpper(make([]byte, 0, len(f.Raw)*3+2), f.Raw, ' ')
	return append(out, replyTerminator...), nil
}
