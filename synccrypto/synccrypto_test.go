package synccrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) Key {
	t.Helper()
	raw := make([]byte, KeySize)
	for i := range raw {
		raw[i] = byte(i)
	}
	k, err := ParseKey(raw)
	require.NoError(t, err)
	return k
}

func TestParseKeyRejectsWrongLength(t *testing.T) {
	_, err := ParseKey([]byte("too short"))
	assert.Error(t, err)
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("task history goes here")

	sealed, err := Seal(key, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := Open(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key := testKey(t)
	sealed, err := Seal(key, []byte("hello"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF

	_, err = Open(key, sealed)
	assert.Error(t, err)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	key := testKey(t)
	sealed, err := Seal(key, []byte("hello"))
	require.NoError(t, err)

	other := testKey(t)
	other[0] ^= 0xFF
	_, err = Open(other, sealed)
	assert.Error(t, err)
}

func TestOpenRejectsTruncatedBlob(t *testing.T) {
	key := testKey(t)
	_, err := Open(key, []byte("short"))
	assert.Error(t, err)
}
