// Package crypto wraps the NaCl box primitives used by the numscull wire
// protocol: X25519 keypairs, deterministic counter nonces, and
// authenticated public-key encryption. No other package touches raw key
// material directly.
package crypto

import (
	"crypto/rand"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/curve25519"

	"github.com/numscull/go-numscull/lib/util/logger"
	"github.com/numscull/go-numscull/lib/wire"
)

var log = logger.GetNumscullLogger()

var (
	ErrAuthenticationFailed = errors.New("crypto: box authentication failed")
	ErrEncryptionFailed     = errors.New("crypto: encryption failed")
)

// GenerateKeypair generates a fresh X25519 keypair from the system
// cryptographic random source.
func GenerateKeypair() (pub, sec [wire.KeyLen]byte, err error) {
	if _, err = rand.Read(sec[:]); err != nil {
		return pub, sec, oops.Errorf("crypto: keypair randomness unavailable: %w", err)
	}
	pub, err = PublicKey(sec)
	return pub, sec, err
}

// PublicKey derives the X25519 public key of sec by base-point scalar
// multiplication.
func PublicKey(sec [wire.KeyLen]byte) (pub [wire.KeyLen]byte, err error) {
	pubSlice, err := curve25519.X25519(sec[:], curve25519.Basepoint)
	if err != nil {
		return pub, oops.Errorf("crypto: public key derivation failed: %w", err)
	}
	copy(pub[:], pubSlice)
	return pub, nil
}
