// Package server is an in-memory numscull server speaking the full wire
// protocol: plaintext init, static-key key exchange, and the encrypted
// request loop. It backs the protocol tests and the `numscull serve`
// development command; it is not the production server.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/numscull/go-numscull/lib/keys"
	"github.com/numscull/go-numscull/lib/session"
	"github.com/numscull/go-numscull/lib/transport"
	"github.com/numscull/go-numscull/lib/util/logger"
	"github.com/numscull/go-numscull/lib/wire"
)

var log = logger.GetNumscullLogger()

// Server accepts connections and runs one protocol session per client.
type Server struct {
	configDir string
	staticPub [wire.KeyLen]byte
	staticSec [wire.KeyLen]byte
	timeout   time.Duration
	limiter   *rate.Limiter
	store     *Store

	mu       sync.Mutex
	listener net.Listener
}

// New loads (or creates) the server static keypair under configDir and
// builds an empty store.
func New(configDir string, timeout time.Duration) (*Server, error) {
	pub, sec, err := keys.NewServerKeystore(configDir).LoadOrCreate()
	if err != nil {
		return nil, err
	}
	return &Server{
		configDir: configDir,
		staticPub: pub,
		staticSec: sec,
		timeout:   timeout,
		// Accepts are rate-limited; a dev server has no business
		// absorbing a connect flood.
		limiter: rate.NewLimiter(rate.Limit(50), 100),
		store:   NewStore(),
	}, nil
}

// StaticPublicKey returns the server's static public key, e.g. for
// provisioning test fixtures.
func (s *Server) StaticPublicKey() [wire.KeyLen]byte {
	return s.staticPub
}

// Store exposes the backing store for fixture preloading.
func (s *Server) Store() *Store {
	return s.store
}

// Listen binds the TCP listener. Use port 0 for an ephemeral port.
func (s *Server) Listen(host string, port int) (net.Addr, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, oops.Errorf("server: listen: %w", err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	return l.Addr(), nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l == nil {
		return oops.Errorf("server: Serve called before Listen")
	}
	for {
		if err := s.limiter.Wait(context.Background()); err != nil {
			return err
		}
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops the listener. In-flight sessions run to completion.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	return err
}

type request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (s *Server) handleConn(conn net.Conn) {
	t := transport.NewTransport(conn, s.timeout)
	defer t.Close()

	identity, clientPub, err := s.acceptInit(t)
	if err != nil {
		log.WithError(err).Debug("init_rejected")
		return
	}

	channel, err := session.ServerKeyExchange(t, clientPub, s.staticSec)
	if err != nil {
		log.WithError(err).Debug("server_key_exchange_failed")
		return
	}
	log.WithFields(logrus.Fields{
		"at":       "server.handleConn",
		"identity": identity,
	}).Debug("session_established")

	for {
		raw, err := channel.Recv()
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			return
		}
		resp := s.store.Handle(identity, req.ID, req.Method, req.Params)
		if err := channel.Send(resp); err != nil {
			return
		}
		if req.Method == "control/exit" {
			return
		}
	}
}

// acceptInit runs the plaintext init exchange and resolves the client's
// registered public key.
func (s *Server) acceptInit(t *transport.Transport) (string, [wire.KeyLen]byte, error) {
	var clientPub [wire.KeyLen]byte

	header, err := t.ReadFull(wire.HeaderSize)
	if err != nil {
		return "", clientPub, err
	}
	n, err := wire.ParseHeader(header)
	if err != nil {
		return "", clientPub, err
	}
	payload, err := t.ReadFull(n)
	if err != nil {
		return "", clientPub, err
	}

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		return "", clientPub, oops.Errorf("server: decoding init: %w", err)
	}
	if req.Method != "control/init" {
		return "", clientPub, oops.Errorf("server: first message is %q, not control/init", req.Method)
	}
	var params struct {
		Identity string `json:"identity"`
		Version  string `json:"version"`
	}
	decodeParams(req.Params, &params)

	clientPub, lookupErr := keys.LookupUserPublic(s.configDir, params.Identity)
	valid := lookupErr == nil

	initResp := map[string]interface{}{
		"id":     req.ID,
		"method": "control/init",
		"params": map[string]interface{}{
			"valid": valid,
			"publicKey": map[string]string{
				"bytes": base64.StdEncoding.EncodeToString(s.staticPub[:]),
			},
		},
	}
	jsonBytes, err := json.Marshal(initResp)
	if err != nil {
		return "", clientPub, err
	}
	if err := t.Write(wire.PackPlaintext(jsonBytes)); err != nil {
		return "", clientPub, err
	}
	if !valid {
		return "", clientPub, oops.Errorf("server: unknown identity %q: %w", params.Identity, lookupErr)
	}
	return params.Identity, clientPub, nil
}
