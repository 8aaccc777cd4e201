// Package wire implements the two numscull wire envelope formats: the
// plaintext 10-byte decimal length framing used during init, and the
// fixed-size 512-byte padded block carried inside every encrypted
// transmission.
package wire

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"strconv"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/numscull/go-numscull/lib/util/logger"
)

var log = logger.GetNumscullLogger()

const (
	// HeaderSize is the length of the ASCII decimal length prefix.
	HeaderSize = 10
	// BlockSize is the plaintext size of one encrypted block.
	BlockSize = 512
	// TagLen is the NaCl box authentication tag length.
	TagLen = 16
	// NonceLen is the NaCl box nonce length.
	NonceLen = 24
	// KeyLen is the X25519 key length.
	KeyLen = 32
	// EncryptedBlockSize is the on-wire size of one sealed block.
	EncryptedBlockSize = BlockSize + TagLen
	// MaxBlockPayload is the usable payload capacity of one block after
	// its 2-byte length prefix.
	MaxBlockPayload = BlockSize - 2
	// MaxMessageBlocks bounds how many consecutive blocks one logical
	// message may span.
	MaxMessageBlocks = 128
	// MaxMessageSize is the largest logical frame the spanning scheme
	// can express.
	MaxMessageSize = MaxBlockPayload * MaxMessageBlocks
)

var (
	ErrInvalidHeader   = errors.New("wire: invalid length header")
	ErrMessageTooLarge = errors.New("wire: message too large")
)

// PackPlaintext prefixes payload with a zero-padded 10-byte ASCII decimal
// length header.
func PackPlaintext(payload []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(payload))
	header := strconv.Itoa(len(payload))
	for i := len(header); i < HeaderSize; i++ {
		out = append(out, '0')
	}
	out = append(out, header...)
	return append(out, payload...)
}

// ParseHeader parses a 10-byte ASCII decimal length header.
func ParseHeader(header []byte) (int, error) {
	if len(header) != HeaderSize {
		return 0, oops.Errorf("%w: header is %d bytes", ErrInvalidHeader, len(header))
	}
	n, err := strconv.Atoi(string(header))
	if err != nil {
		return 0, oops.Errorf("%w: %q", ErrInvalidHeader, string(header))
	}
	if n < 0 {
		return 0, oops.Errorf("%w: negative length %d", ErrInvalidHeader, n)
	}
	return n, nil
}

// ReadPlaintext reads one plaintext envelope from r: exactly HeaderSize
// header bytes followed by exactly the declared payload length.
func ReadPlaintext(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	n, err := ParseHeader(header)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"at":          "wire.ReadPlaintext",
		"payload_len": n,
	}).Debug("plaintext_envelope_read")
	return payload, nil
}

// PackBlock lays payload into a BlockSize block: 2-byte little-endian
// length, payload bytes, then random padding out to BlockSize. The
// padding is random rather than zeroed so every block on the wire is
// indistinguishable regardless of payload length.
func PackBlock(payload []byte) ([]byte, error) {
	if len(payload) > MaxBlockPayload {
		return nil, oops.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), MaxBlockPayload)
	}
	block := make([]byte, BlockSize)
	binary.LittleEndian.PutUint16(block[0:2], uint16(len(payload)))
	copy(block[2:], payload)
	if _, err := rand.Read(block[2+len(payload):]); err != nil {
		return nil, oops.Errorf("wire: padding randomness unavailable: %w", err)
	}
	return block, nil
}

// UnpackBlock returns the payload of one BlockSize block. Padding bytes
// are discarded without inspection.
func UnpackBlock(block []byte) ([]byte, error) {
	if len(block) != BlockSize {
		return nil, oops.Errorf("%w: block is %d bytes", ErrInvalidHeader, len(block))
	}
	n := int(binary.LittleEndian.Uint16(block[0:2]))
	if n > MaxBlockPayload {
		return nil, oops.Errorf("%w: block length prefix %d", ErrInvalidHeader, n)
	}
	payload := make([]byte, n)
	copy(payload, block[2:2+n])
	return payload, nil
}
