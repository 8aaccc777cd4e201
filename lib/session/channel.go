// Package session derives and drives one encrypted numscull channel: the
// ephemeral key exchange under static keys, then counter-nonce NaCl box
// framing of JSON messages into fixed-size blocks.
package session

import (
	"encoding/json"
	"errors"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/numscull/go-numscull/lib/crypto"
	"github.com/numscull/go-numscull/lib/transport"
	"github.com/numscull/go-numscull/lib/util/logger"
	"github.com/numscull/go-numscull/lib/wire"
)

var log = logger.GetNumscullLogger()

var ErrHandshakeFailed = errors.New("session: handshake failed")

// Channel is one established encrypted session. It owns its transport
// and its two nonce counters; counters start at 1, advance by exactly
// one per block in each direction, and never reset. A reconnect always
// builds a brand-new Channel with fresh ephemeral keys.
type Channel struct {
	t *transport.Transport

	recvSec [wire.KeyLen]byte // our ephemeral receive secret
	sendSec [wire.KeyLen]byte // our ephemeral send secret
	openPub [wire.KeyLen]byte // peer key our recvs open against
	sealPub [wire.KeyLen]byte // peer key our sends seal to

	sendCtr uint64
	recvCtr uint64
}

// NewChannel builds a ready channel from the four session keys produced
// by the key exchange.
func NewChannel(t *transport.Transport, recvSec, sendSec, openPub, sealPub [wire.KeyLen]byte) *Channel {
	return &Channel{
		t:       t,
		recvSec: recvSec,
		sendSec: sendSec,
		openPub: openPub,
		sealPub: sealPub,
		sendCtr: 1,
		recvCtr: 1,
	}
}

// Send serializes msg to JSON, frames it with the 10-byte length header,
// and writes it as one or more sealed blocks. One nonce counter value is
// consumed per block, not per message.
func (c *Channel) Send(msg interface{}) error {
	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return oops.Errorf("session: encoding message: %w", err)
	}
	framed := wire.PackPlaintext(jsonBytes)
	if len(framed) > wire.MaxMessageSize {
		return oops.Errorf("%w: framed message is %d bytes", wire.ErrMessageTooLarge, len(framed))
	}

	for off := 0; off < len(framed); off += wire.MaxBlockPayload {
		end := off + wire.MaxBlockPayload
		if end > len(framed) {
			end = len(framed)
		}
		if err := c.sendBlock(framed[off:end]); err != nil {
			return err
		}
	}
	log.WithFields(logrus.Fields{
		"at":       "session.Send",
		"json_len": len(jsonBytes),
	}).Debug("message_sent")
	return nil
}

func (c *Channel) sendBlock(payload []byte) error {
	block, err := wire.PackBlock(payload)
	if err != nil {
		return err
	}
	nonce := crypto.CounterNonce(c.sendCtr)
	c.sendCtr++
	return c.t.Write(crypto.Seal(block, nonce, c.sealPub, c.sendSec))
}

func (c *Channel) recvBlock() ([]byte, error) {
	ct, err := c.t.ReadFull(wire.EncryptedBlockSize)
	if err != nil {
		return nil, err
	}
	nonce := crypto.CounterNonce(c.recvCtr)
	c.recvCtr++
	block, err := crypto.Open(ct, nonce, c.openPub, c.recvSec)
	if err != nil {
		// Counter or key desync and tampering are indistinguishable
		// here; either way the channel is unusable.
		c.t.Close()
		return nil, err
	}
	return wire.UnpackBlock(block)
}

// Recv reads one logical JSON message, reassembling consecutive blocks
// until the declared length is satisfied.
func (c *Channel) Recv() (json.RawMessage, error) {
	data, err := c.recvBlock()
	if err != nil {
		return nil, err
	}
	if len(data) < wire.HeaderSize {
		return nil, oops.Errorf("%w: first block holds %d bytes", wire.ErrInvalidHeader, len(data))
	}
	jsonLen, err := wire.ParseHeader(data[:wire.HeaderSize])
	if err != nil {
		return nil, err
	}
	if jsonLen > wire.MaxMessageSize {
		return nil, oops.Errorf("%w: declared length %d", wire.ErrMessageTooLarge, jsonLen)
	}

	jsonBytes := append([]byte(nil), data[wire.HeaderSize:]...)
	blocks := 1
	for len(jsonBytes) < jsonLen {
		if blocks >= wire.MaxMessageBlocks {
			return nil, oops.Errorf("%w: message spans more than %d blocks",
				wire.ErrMessageTooLarge, wire.MaxMessageBlocks)
		}
		more, err := c.recvBlock()
		if err != nil {
			return nil, err
		}
		jsonBytes = append(jsonBytes, more...)
		blocks++
	}
	log.WithFields(logrus.Fields{
		"at":       "session.Recv",
		"json_len": jsonLen,
		"blocks":   blocks,
	}).Debug("message_received")
	return json.RawMessage(jsonBytes[:jsonLen]), nil
}

// Close tears down the underlying transport. Idempotent.
func (c *Channel) Close() error {
	return c.t.Close()
}
