package wire

// Checksum returns the additive 8-bit checksum of b. Overflow wraps, as
// on the device.
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}
