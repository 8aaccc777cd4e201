package session

import (
	"crypto/rand"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/numscull/go-numscull/lib/crypto"
	"github.com/numscull/go-numscull/lib/transport"
	"github.com/numscull/go-numscull/lib/wire"
)

// KeyExchange runs the client side of the ephemeral key exchange that
// follows the plaintext init. The server writes first:
//
//	[24-byte random nonce][528-byte ciphertext]
//
// whose plaintext block carries the server's ephemeral receive and send
// public keys in its first 64 bytes. The client answers with its own
// two ephemeral public keys packed the same way. Directional pairing:
// our sends seal to the peer's receive-labeled key, our recvs open with
// the peer's send-labeled key.
func KeyExchange(t *transport.Transport, ourStaticSec, serverStaticPub [wire.KeyLen]byte) (*Channel, error) {
	raw, err := t.ReadFull(wire.NonceLen + wire.EncryptedBlockSize)
	if err != nil {
		return nil, oops.Errorf("%w: reading server exchange: %w", ErrHandshakeFailed, err)
	}
	var serverNonce [wire.NonceLen]byte
	copy(serverNonce[:], raw[:wire.NonceLen])

	serverBlock, err := crypto.Open(raw[wire.NonceLen:], serverNonce, serverStaticPub, ourStaticSec)
	if err != nil {
		return nil, oops.Errorf("%w: opening server exchange: %w", ErrHandshakeFailed, err)
	}
	var serverRecvPub, serverSendPub [wire.KeyLen]byte
	copy(serverRecvPub[:], serverBlock[:wire.KeyLen])
	copy(serverSendPub[:], serverBlock[wire.KeyLen:2*wire.KeyLen])

	recvPub, recvSec, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	sendPub, sendSec, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	block := make([]byte, wire.BlockSize)
	copy(block[:wire.KeyLen], recvPub[:])
	copy(block[wire.KeyLen:2*wire.KeyLen], sendPub[:])
	if _, err := rand.Read(block[2*wire.KeyLen:]); err != nil {
		return nil, oops.Errorf("session: exchange padding randomness unavailable: %w", err)
	}

	clientNonce, err := crypto.RandomNonce()
	if err != nil {
		return nil, err
	}
	ct := crypto.Seal(block, clientNonce, serverStaticPub, ourStaticSec)

	out := make([]byte, 0, wire.NonceLen+wire.EncryptedBlockSize)
	out = append(out, clientNonce[:]...)
	out = append(out, ct...)
	if err := t.Write(out); err != nil {
		return nil, oops.Errorf("%w: writing client exchange: %w", ErrHandshakeFailed, err)
	}

	log.WithFields(logrus.Fields{
		"at": "session.KeyExchange",
	}).Debug("key_exchange_complete")
	return NewChannel(t, recvSec, sendSec, serverSendPub, serverRecvPub), nil
}
