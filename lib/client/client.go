// Package client implements the numscull RPC client: plaintext init,
// key exchange to an encrypted channel, and the request/response method
// surface on top of it. A Client is an explicit session object owned by
// its caller; a process may hold any number of independent clients.
package client

import (
	"encoding/base64"
	"encoding/json"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/numscull/go-numscull/lib/config"
	"github.com/numscull/go-numscull/lib/keys"
	"github.com/numscull/go-numscull/lib/session"
	"github.com/numscull/go-numscull/lib/transport"
	"github.com/numscull/go-numscull/lib/util/logger"
	"github.com/numscull/go-numscull/lib/wire"
)

var log = logger.GetNumscullLogger()

// Client is one connection-scoped session. Requests are strictly
// sequential: one outstanding request at a time, responses paired by
// alternation rather than by id.
type Client struct {
	t       *transport.Transport
	channel *session.Channel
	msgID   int64
}

// Connect dials the server, performs the plaintext init exchange, and
// derives the encrypted channel. Any failure tears the transport down;
// retrying means calling Connect again from scratch.
func Connect(cfg *config.ClientConfig) (*Client, error) {
	_, staticSec, err := keys.NewIdentityKeystore(cfg.ConfigDir, cfg.Identity).Load()
	if err != nil {
		return nil, err
	}

	t, err := transport.Dial(cfg.Host, cfg.Port, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{t: t}
	serverPub, err := c.init(cfg.Identity, cfg.Version)
	if err != nil {
		t.Close()
		return nil, err
	}

	channel, err := session.KeyExchange(t, staticSec, serverPub)
	if err != nil {
		t.Close()
		return nil, err
	}
	c.channel = channel
	log.WithFields(logrus.Fields{
		"at":       "client.Connect",
		"identity": cfg.Identity,
		"host":     cfg.Host,
		"port":     cfg.Port,
	}).Debug("session_established")
	return c, nil
}

func (c *Client) nextID() int64 {
	c.msgID++
	return c.msgID
}

// init sends the plaintext control/init request and extracts the
// server's base64-encoded static public key from the response.
func (c *Client) init(identity, version string) (serverPub [wire.KeyLen]byte, err error) {
	req := Message{
		ID:     c.nextID(),
		Method: "control/init",
		Params: initParams{Identity: identity, Version: version},
	}
	jsonBytes, err := json.Marshal(req)
	if err != nil {
		return serverPub, oops.Errorf("client: encoding init: %w", err)
	}
	if err = c.t.Write(wire.PackPlaintext(jsonBytes)); err != nil {
		return serverPub, err
	}

	payload, err := c.readPlaintext()
	if err != nil {
		return serverPub, err
	}
	var resp Response
	if err = json.Unmarshal(payload, &resp); err != nil {
		return serverPub, oops.Errorf("%w: decoding init response: %w", session.ErrHandshakeFailed, err)
	}
	var params initResponseParams
	if resp.Params != nil {
		if err = json.Unmarshal(resp.Params, &params); err != nil {
			return serverPub, oops.Errorf("%w: decoding init params: %w", session.ErrHandshakeFailed, err)
		}
	}
	if !params.Valid {
		return serverPub, oops.Errorf("%w: server rejected identity %q", session.ErrHandshakeFailed, identity)
	}
	if params.PublicKey.Bytes == "" {
		return serverPub, oops.Errorf("%w: no publicKey in init response", session.ErrHandshakeFailed)
	}
	raw, err := base64.StdEncoding.DecodeString(params.PublicKey.Bytes)
	if err != nil {
		return serverPub, oops.Errorf("%w: decoding server public key: %w", session.ErrHandshakeFailed, err)
	}
	if len(raw) != wire.KeyLen {
		return serverPub, oops.Errorf("%w: server public key is %d bytes", session.ErrHandshakeFailed, len(raw))
	}
	copy(serverPub[:], raw)
	return serverPub, nil
}

// readPlaintext reads one plaintext envelope off the transport.
func (c *Client) readPlaintext() ([]byte, error) {
	header, err := c.t.ReadFull(wire.HeaderSize)
	if err != nil {
		return nil, err
	}
	n, err := wire.ParseHeader(header)
	if err != nil {
		return nil, err
	}
	return c.t.ReadFull(n)
}

// Request sends one RPC and blocks for its response. A control/error
// envelope comes back as *RemoteError; every other error kind means the
// session is unusable and must be reconnected.
func (c *Client) Request(method string, params interface{}) (json.RawMessage, error) {
	if c.channel == nil {
		return nil, transport.ErrTransportClosed
	}
	if params == nil {
		params = struct{}{}
	}
	req := Message{ID: c.nextID(), Method: method, Params: params}
	if err := c.channel.Send(req); err != nil {
		return nil, err
	}
	raw, err := c.channel.Recv()
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, oops.Errorf("client: decoding response to %s: %w", method, err)
	}
	if resp.Method == errorMethod {
		var res errorResult
		if err := json.Unmarshal(resp.Result, &res); err != nil {
			return nil, oops.Errorf("client: decoding error envelope: %w", err)
		}
		log.WithFields(logrus.Fields{
			"at":     "client.Request",
			"method": method,
			"reason": res.Reason,
		}).Debug("remote_error")
		return nil, &RemoteError{Reason: res.Reason}
	}
	return resp.Result, nil
}

// requestInto runs Request and decodes the result into out when out is
// non-nil.
func (c *Client) requestInto(method string, params, out interface{}) error {
	result, err := c.Request(method, params)
	if err != nil {
		return err
	}
	if out == nil || result == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return oops.Errorf("client: decoding %s result: %w", method, err)
	}
	return nil
}

// Close tears the session down. Closing an already-closed client is a
// no-op.
func (c *Client) Close() error {
	if c.t == nil {
		return nil
	}
	err := c.t.Close()
	c.channel = nil
	return err
}
