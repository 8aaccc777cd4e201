package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numscull/go-numscull/lib/wire"
)

func TestGenerateKeypair(t *testing.T) {
	require := require.New(t)

	pub, sec, err := GenerateKeypair()
	require.NoError(err)
	require.NotEqual(pub, sec)

	// The public key must be the base-point scalar mult of the secret.
	derived, err := PublicKey(sec)
	require.NoError(err)
	require.Equal(pub, derived)

	pub2, sec2, err := GenerateKeypair()
	require.NoError(err)
	require.NotEqual(pub, pub2)
	require.NotEqual(sec, sec2)
}

func TestCounterNonceLayout(t *testing.T) {
	assert := assert.New(t)

	nonce := CounterNonce(1)
	expected := [wire.NonceLen]byte{1}
	assert.Equal(expected, nonce)

	nonce = CounterNonce(0x0102030405060708)
	assert.Equal([]byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, nonce[:8])
	assert.Equal(make([]byte, 16), nonce[8:])
}

func TestSealOpenRoundTrip(t *testing.T) {
	require := require.New(t)

	alicePub, aliceSec, err := GenerateKeypair()
	require.NoError(err)
	bobPub, bobSec, err := GenerateKeypair()
	require.NoError(err)

	plaintext := []byte("annotated line 42")
	nonce := CounterNonce(1)

	ct := Seal(plaintext, nonce, bobPub, aliceSec)
	require.Len(ct, len(plaintext)+wire.TagLen)

	got, err := Open(ct, nonce, alicePub, bobSec)
	require.NoError(err)
	require.Equal(plaintext, got)
}

func TestOpenRejectsTampering(t *testing.T) {
	require := require.New(t)

	alicePub, aliceSec, err := GenerateKeypair()
	require.NoError(err)
	bobPub, bobSec, err := GenerateKeypair()
	require.NoError(err)

	nonce := CounterNonce(7)
	ct := Seal([]byte("payload"), nonce, bobPub, aliceSec)

	// Flipping any single bit, in the ciphertext body or in the tag,
	// must fail authentication rather than produce garbage plaintext.
	for _, idx := range []int{0, 1, len(ct) / 2, len(ct) - wire.TagLen, len(ct) - 1} {
		mutated := append([]byte(nil), ct...)
		mutated[idx] ^= 0x01
		_, err := Open(mutated, nonce, alicePub, bobSec)
		require.ErrorIs(err, ErrAuthenticationFailed, "byte %d", idx)
	}
}

func TestOpenRejectsWrongNonce(t *testing.T) {
	assert := assert.New(t)

	alicePub, aliceSec, _ := GenerateKeypair()
	bobPub, bobSec, _ := GenerateKeypair()

	ct := Seal([]byte("payload"), CounterNonce(1), bobPub, aliceSec)
	_, err := Open(ct, CounterNonce(2), alicePub, bobSec)
	assert.ErrorIs(err, ErrAuthenticationFailed)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	assert := assert.New(t)

	alicePub, aliceSec, _ := GenerateKeypair()
	bobPub, _, _ := GenerateKeypair()
	_, eveSec, _ := GenerateKeypair()

	nonce := CounterNonce(1)
	ct := Seal([]byte("payload"), nonce, bobPub, aliceSec)
	_, err := Open(ct, nonce, alicePub, eveSec)
	assert.ErrorIs(err, ErrAuthenticationFailed)
}

func TestRandomNonce(t *testing.T) {
	require := require.New(t)

	a, err := RandomNonce()
	require.NoError(err)
	b, err := RandomNonce()
	require.NoError(err)
	require.NotEqual(a, b)
}
