package crypto

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/samber/oops"

	"github.com/numscull/go-numscull/lib/wire"
)

// CounterNonce encodes counter as a 24-byte box nonce: the little-endian
// u64 followed by 16 zero bytes. Uniqueness depends entirely on the
// caller never reusing a counter value under the same key.
func CounterNonce(counter uint64) [wire.NonceLen]byte {
	var nonce [wire.NonceLen]byte
	binary.LittleEndian.PutUint64(nonce[:8], counter)
	return nonce
}

// RandomNonce returns a fresh random 24-byte nonce, used only for the
// static-key exchange messages where no counter state exists yet.
func RandomNonce() ([wire.NonceLen]byte, error) {
	var nonce [wire.NonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, oops.Errorf("crypto: nonce randomness unavailable: %w", err)
	}
	return nonce, nil
}
