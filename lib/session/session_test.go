package session

import (
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numscull/go-numscull/lib/crypto"
	"github.com/numscull/go-numscull/lib/transport"
	"github.com/numscull/go-numscull/lib/wire"
)

type testMessage struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Text   string `json:"text,omitempty"`
}

// handshakePair runs a full client/server key exchange over an
// in-memory pipe and returns both ready channels.
func handshakePair(t *testing.T, timeout time.Duration) (*Channel, *Channel) {
	t.Helper()
	require := require.New(t)

	clientPub, clientSec, err := crypto.GenerateKeypair()
	require.NoError(err)
	serverPub, serverSec, err := crypto.GenerateKeypair()
	require.NoError(err)

	clientConn, serverConn := net.Pipe()
	clientT := transport.NewTransport(clientConn, timeout)
	serverT := transport.NewTransport(serverConn, timeout)
	t.Cleanup(func() {
		clientT.Close()
		serverT.Close()
	})

	type result struct {
		ch  *Channel
		err error
	}
	serverDone := make(chan result, 1)
	go func() {
		ch, err := ServerKeyExchange(serverT, clientPub, serverSec)
		serverDone <- result{ch, err}
	}()

	clientCh, err := KeyExchange(clientT, clientSec, serverPub)
	require.NoError(err)
	sr := <-serverDone
	require.NoError(sr.err)
	return clientCh, sr.ch
}

// channelPair wires two channels directly from generated ephemerals,
// bypassing the handshake, for low-level framing tests.
func channelPair(t *testing.T, timeout time.Duration) (*Channel, *Channel, net.Conn) {
	t.Helper()
	require := require.New(t)

	cRecvPub, cRecvSec, err := crypto.GenerateKeypair()
	require.NoError(err)
	cSendPub, cSendSec, err := crypto.GenerateKeypair()
	require.NoError(err)
	sRecvPub, sRecvSec, err := crypto.GenerateKeypair()
	require.NoError(err)
	sSendPub, sSendSec, err := crypto.GenerateKeypair()
	require.NoError(err)

	clientConn, serverConn := net.Pipe()
	clientCh := NewChannel(transport.NewTransport(clientConn, timeout), cRecvSec, cSendSec, sSendPub, sRecvPub)
	serverCh := NewChannel(transport.NewTransport(serverConn, timeout), sRecvSec, sSendSec, cSendPub, cRecvPub)
	t.Cleanup(func() {
		clientCh.Close()
		serverCh.Close()
	})
	return clientCh, serverCh, serverConn
}

func TestHandshakeAndEcho(t *testing.T) {
	require := require.New(t)
	clientCh, serverCh := handshakePair(t, 2*time.Second)

	go func() {
		raw, err := serverCh.Recv()
		if err != nil {
			return
		}
		var msg testMessage
		if json.Unmarshal(raw, &msg) != nil {
			return
		}
		msg.Text = "pong:" + msg.Text
		serverCh.Send(msg)
	}()

	require.NoError(clientCh.Send(testMessage{ID: 1, Method: "test/echo", Text: "ping"}))
	raw, err := clientCh.Recv()
	require.NoError(err)

	var got testMessage
	require.NoError(json.Unmarshal(raw, &got))
	require.Equal("pong:ping", got.Text)
}

func TestNonceCountersAdvanceByOnePerBlock(t *testing.T) {
	require := require.New(t)
	clientCh, serverCh, _ := channelPair(t, 2*time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			if _, err := serverCh.Recv(); err != nil {
				return
			}
		}
	}()

	require.Equal(uint64(1), clientCh.sendCtr)
	for i := 0; i < 5; i++ {
		require.NoError(clientCh.Send(testMessage{ID: int64(i), Method: "test/seq"}))
	}
	<-done

	// Five single-block messages consume exactly nonces 1..5 on each
	// side, with no gaps.
	require.Equal(uint64(6), clientCh.sendCtr)
	require.Equal(uint64(6), serverCh.recvCtr)
}

func TestMultiBlockMessageRoundTrip(t *testing.T) {
	require := require.New(t)
	clientCh, serverCh, _ := channelPair(t, 2*time.Second)

	// Far beyond one block's 510-byte capacity.
	text := strings.Repeat("annotation ", 300)
	msg := testMessage{ID: 9, Method: "test/large", Text: text}

	type recvResult struct {
		raw json.RawMessage
		err error
	}
	got := make(chan recvResult, 1)
	go func() {
		raw, err := serverCh.Recv()
		got <- recvResult{raw, err}
	}()

	require.NoError(clientCh.Send(msg))
	res := <-got
	require.NoError(res.err)

	var decoded testMessage
	require.NoError(json.Unmarshal(res.raw, &decoded))
	require.Equal(text, decoded.Text)

	// Both sides consumed the same number of block nonces.
	require.Greater(clientCh.sendCtr, uint64(2))
	require.Equal(clientCh.sendCtr, serverCh.recvCtr)
}

func TestHandshakesProduceIndependentChannels(t *testing.T) {
	require := require.New(t)

	chA, _ := handshakePair(t, 2*time.Second)
	chB, _ := handshakePair(t, 2*time.Second)

	// Fresh ephemerals every time: no key material may repeat.
	require.NotEqual(chA.recvSec, chB.recvSec)
	require.NotEqual(chA.sendSec, chB.sendSec)
	require.NotEqual(chA.openPub, chB.openPub)
	require.NotEqual(chA.sealPub, chB.sealPub)

	// Counters reset per channel.
	require.Equal(uint64(1), chB.sendCtr)
	require.Equal(uint64(1), chB.recvCtr)

	// A block sealed under channel A's keys must not open under B's.
	block, err := wire.PackBlock([]byte("cross"))
	require.NoError(err)
	ct := crypto.Seal(block, crypto.CounterNonce(1), chA.sealPub, chA.sendSec)
	_, err = crypto.Open(ct, crypto.CounterNonce(1), chB.openPub, chB.recvSec)
	require.ErrorIs(err, crypto.ErrAuthenticationFailed)
}

func TestRecvRejectsTamperedBlock(t *testing.T) {
	require := require.New(t)
	clientCh, _, serverConn := channelPair(t, 2*time.Second)

	// 528 bytes that were never sealed by the peer.
	garbage := make([]byte, wire.EncryptedBlockSize)
	go serverConn.Write(garbage)

	_, err := clientCh.Recv()
	require.ErrorIs(err, crypto.ErrAuthenticationFailed)
}

func TestRecvTimeoutThenTransportClosed(t *testing.T) {
	assert := assert.New(t)
	clientCh, _, _ := channelPair(t, 50*time.Millisecond)

	// The peer stalls mid-conversation.
	_, err := clientCh.Recv()
	assert.ErrorIs(err, transport.ErrReadTimeout)

	// Retrying on the same channel must fail fast, not hang; recovery
	// requires a fresh connection and handshake.
	_, err = clientCh.Recv()
	assert.ErrorIs(err, transport.ErrTransportClosed)
}
