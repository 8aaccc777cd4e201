package session

import (
	"crypto/rand"

	"github.com/samber/oops"

	"github.com/numscull/go-numscull/lib/crypto"
	"github.com/numscull/go-numscull/lib/transport"
	"github.com/numscull/go-numscull/lib/wire"
)

// ServerKeyExchange runs the accepting side of the key exchange: the
// server seals its two ephemeral public keys to the client's static key
// and writes first, then opens the client's reply. Used by the dev
// server and by protocol tests.
func ServerKeyExchange(t *transport.Transport, clientStaticPub, serverStaticSec [wire.KeyLen]byte) (*Channel, error) {
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
	serverNonce, err := crypto.RandomNonce()
	if err != nil {
		return nil, err
	}
	ct := crypto.Seal(block, serverNonce, clientStaticPub, serverStaticSec)

	out := make([]byte, 0, wire.NonceLen+wire.EncryptedBlockSize)
	out = append(out, serverNonce[:]...)
	out = append(out, ct...)
	if err := t.Write(out); err != nil {
		return nil, oops.Errorf("%w: writing server exchange: %w", ErrHandshakeFailed, err)
	}

	raw, err := t.ReadFull(wire.NonceLen + wire.EncryptedBlockSize)
	if err != nil {
		return nil, oops.Errorf("%w: reading client exchange: %w", ErrHandshakeFailed, err)
	}
	var clientNonce [wire.NonceLen]byte
	copy(clientNonce[:], raw[:wire.NonceLen])
	clientBlock, err := crypto.Open(raw[wire.NonceLen:], clientNonce, clientStaticPub, serverStaticSec)
	if err != nil {
		return nil, oops.Errorf("%w: opening client exchange: %w", ErrHandshakeFailed, err)
	}
	var clientRecvPub, clientSendPub [wire.KeyLen]byte
	copy(clientRecvPub[:], clientBlock[:wire.KeyLen])
	copy(clientSendPub[:], clientBlock[wire.KeyLen:2*wire.KeyLen])

	return NewChannel(t, recvSec, sendSec, clientSendPub, clientRecvPub), nil
}
