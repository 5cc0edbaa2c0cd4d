package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// type0Raw is the captured Type0 image also used by the wire tests.
var type0Raw = []byte{
	0x1E, 0x00, 0x05, 0x10, 0x03, 0x59, 0x31, 0x38, 0x33, 0x36, 0x34, 0x31,
	0x20, 0x20, 0x02, 0x07, 0x01, 0x00, 0x20, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x20, 0x05, 0x00, 0x00, 0x38,
}

func TestFromType0_ShortInput(t *testing.T) {
	_, err := FromType0(type0Raw[:20])
	assert.ErrorIs(t, err, ErrShortType0)
}

func TestRoundTrip(t *testing.T) {
	c, err := FromType0(type0Raw)
	require.NoError(t, err)

	payload := []byte{1, 170, 170}
	encrypted := c.Encrypt(payload)
	assert.Len(t, encrypted, BlockSize)
	assert.Equal(t, payload, c.Decrypt(encrypted)[:len(payload)])
}

func TestRoundTrip_ExactBlockMultiple(t *testing.T) {
	c, err := FromType0(type0Raw)
	require.NoError(t, err)

	payload := make([]byte, 2*BlockSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	encrypted := c.Encrypt(payload)
	assert.Len(t, encrypted, 2*BlockSize)
	assert.Equal(t, payload, c.Decrypt(encrypted))
}

func TestEncrypt_ChangesContent(t *testing.T) {
	c, err := FromType0(type0Raw)
	require.NoError(t, err)

	payload := make([]byte, BlockSize)
	assert.NotEqual(t, payload, c.Encrypt(payload))
}

func TestBlockRoundTrip(t *testing.T) {
	c, err := FromType0(type0Raw)
	require.NoError(t, err)

	v := [2]uint32{0xDEADBEEF, 0x01020304}
	assert.Equal(t, v, c.DecryptBlock(c.EncryptBlock(v)))
}

// Two devices with different identification bytes must derive different
// keys; otherwise every unit would share a session key.
func TestKeyDependsOnType0(t *testing.T) {
	c1, err := FromType0(type0Raw)
	require.NoError(t, err)

	other := append([]byte(nil), type0Raw...)
	other[8] ^= 0x5A
	c2, err := FromType0(other)
	require.NoError(t, err)

	payload := make([]byte, BlockSize)
	assert.NotEqual(t, c1.Encrypt(payload), c2.Encrypt(payload))
}
