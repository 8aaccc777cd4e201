package crypto

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/box"

	"github.com/numscull/go-numscull/lib/wire"
)

// Seal encrypts and authenticates plaintext to peerPub under ourSec,
// returning ciphertext with the 16-byte tag appended.
func Seal(plaintext []byte, nonce [wire.NonceLen]byte, peerPub, ourSec [wire.KeyLen]byte) []byte {
	return box.Seal(nil, plaintext, &nonce, &peerPub, &ourSec)
}

// Open authenticates and decrypts ciphertext from peerPub under ourSec.
// A tag verification failure is a hard failure: the caller must abort
// the channel, never skip the block.
func Open(ciphertext []byte, nonce [wire.NonceLen]byte, peerPub, ourSec [wire.KeyLen]byte) ([]byte, error) {
	plaintext, ok := box.Open(nil, ciphertext, &nonce, &peerPub, &ourSec)
	if !ok {
		log.WithFields(logrus.Fields{
			"at":             "crypto.Open",
			"ciphertext_len": len(ciphertext),
		}).Error("box_open_failed")
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
