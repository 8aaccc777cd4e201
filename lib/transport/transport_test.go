package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startListener returns a listener and a channel delivering each
// accepted connection.
func startListener(t *testing.T) (net.Listener, <-chan net.Conn) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	conns := make(chan net.Conn, 1)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()
	return l, conns
}

func dialTo(t *testing.T, l net.Listener, timeout time.Duration) *Transport {
	t.Helper()
	addr := l.Addr().(*net.TCPAddr)
	tr, err := Dial("127.0.0.1", addr.Port, timeout)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestReadFullAccumulatesExactCount(t *testing.T) {
	require := require.New(t)
	l, conns := startListener(t)
	tr := dialTo(t, l, 5*time.Second)
	peer := <-conns

	// Stagger the writes so ReadFull has to accumulate short reads.
	go func() {
		peer.Write([]byte("hel"))
		time.Sleep(10 * time.Millisecond)
		peer.Write([]byte("lo, wo"))
		time.Sleep(10 * time.Millisecond)
		peer.Write([]byte("rld"))
	}()

	got, err := tr.ReadFull(12)
	require.NoError(err)
	require.Equal([]byte("hello, world"), got)
}

func TestReadFullPeerClose(t *testing.T) {
	assert := assert.New(t)
	l, conns := startListener(t)
	tr := dialTo(t, l, 5*time.Second)
	peer := <-conns

	go func() {
		peer.Write([]byte("abc"))
		peer.Close()
	}()

	_, err := tr.ReadFull(10)
	assert.ErrorIs(err, ErrConnectionClosed)
}

func TestReadTimeoutLatchesClosed(t *testing.T) {
	assert := assert.New(t)
	l, conns := startListener(t)
	tr := dialTo(t, l, 50*time.Millisecond)
	peer := <-conns
	defer peer.Close()

	// The peer stalls: nothing is ever written.
	_, err := tr.ReadFull(1)
	assert.ErrorIs(err, ErrReadTimeout)

	// Once failed, the transport must refuse further work immediately
	// instead of hanging again.
	_, err = tr.ReadFull(1)
	assert.ErrorIs(err, ErrTransportClosed)
	err = tr.Write([]byte("x"))
	assert.ErrorIs(err, ErrTransportClosed)
}

func TestWriteAfterCloseFails(t *testing.T) {
	assert := assert.New(t)
	l, conns := startListener(t)
	tr := dialTo(t, l, time.Second)
	peer := <-conns
	defer peer.Close()

	assert.NoError(tr.Close())
	// Closing twice is a no-op.
	assert.NoError(tr.Close())

	assert.ErrorIs(tr.Write([]byte("x")), ErrTransportClosed)
}

func TestDialRefused(t *testing.T) {
	assert := assert.New(t)

	// Bind and immediately close to get a port with nothing listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	_, err = Dial("127.0.0.1", port, time.Second)
	assert.ErrorIs(err, ErrConnectFailed)
}

func TestWriteReachesPeer(t *testing.T) {
	require := require.New(t)
	l, conns := startListener(t)
	tr := dialTo(t, l, time.Second)
	peer := <-conns
	defer peer.Close()

	require.NoError(tr.Write([]byte("ping")))

	buf := make([]byte, 4)
	peer.SetReadDeadline(time.Now().Add(time.Second))
	_, err := peer.Read(buf)
	require.NoError(err)
	require.Equal([]byte("ping"), buf)
}
