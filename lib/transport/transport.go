// Package transport presents blocking read-exactly-n / write-all
// primitives over a TCP connection. Any fatal I/O error latches the
// transport closed; recovery always means dialing a fresh transport and
// re-running the handshake, never resuming this one.
package transport

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/numscull/go-numscull/lib/util/logger"
)

var log = logger.GetNumscullLogger()

var (
	ErrConnectFailed    = errors.New("transport: connect failed")
	ErrConnectionClosed = errors.New("transport: connection closed by peer")
	ErrReadTimeout      = errors.New("transport: read timed out")
	ErrWriteFailed      = errors.New("transport: write failed")
	ErrTransportClosed  = errors.New("transport: transport is closed")
)

// Transport wraps one net.Conn. It is owned by a single logical session;
// only Close is safe to call from another goroutine.
type Transport struct {
	conn    net.Conn
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// Dial opens a TCP connection to host:port. A zero timeout disables
// both the connect deadline and all later per-operation deadlines.
func Dial(host string, port int, timeout time.Duration) (*Transport, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, oops.Errorf("%w: %s: %w", ErrConnectFailed, addr, err)
	}
	log.WithFields(logrus.Fields{
		"at":   "transport.Dial",
		"addr": addr,
	}).Debug("connected")
	return &Transport{conn: conn, timeout: timeout}, nil
}

// NewTransport wraps an already-established connection, used by the
// server accept path and by tests.
func NewTransport(conn net.Conn, timeout time.Duration) *Transport {
	return &Transport{conn: conn, timeout: timeout}
}

// ReadFull reads exactly n bytes, accumulating across short reads.
func (t *Transport) ReadFull(n int) ([]byte, error) {
	if t.isClosed() {
		return nil, ErrTransportClosed
	}
	if t.timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			log.WithError(err).Debug("failed_to_set_read_deadline")
		}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		t.fail()
		return nil, classifyReadError(err, n)
	}
	return buf, nil
}

// Write sends all of b. net.Conn.Write already retries partial writes
// internally, so any error means the flush did not complete.
func (t *Transport) Write(b []byte) error {
	if t.isClosed() {
		return ErrTransportClosed
	}
	if t.timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
			log.WithError(err).Debug("failed_to_set_write_deadline")
		}
	}
	if _, err := t.conn.Write(b); err != nil {
		t.fail()
		return oops.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Close shuts the transport down. Closing an already-closed transport
// is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// fail latches the closed state after a fatal I/O error so every
// subsequent operation returns ErrTransportClosed immediately.
func (t *Transport) fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.conn.Close()
	}
}

func classifyReadError(err error, wanted int) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.WithFields(logrus.Fields{
			"at":     "transport.ReadFull",
			"wanted": wanted,
		}).Debug("read_timeout")
		return oops.Errorf("%w: waiting for %d bytes: %w", ErrReadTimeout, wanted, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return oops.Errorf("%w: wanted %d bytes: %w", ErrConnectionClosed, wanted, err)
	}
	return oops.Errorf("transport: read failed: %w", err)
}
