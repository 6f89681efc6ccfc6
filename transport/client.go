// File: transport/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocket+TLS client adapter implementing api.Transport (§4.4).
// Generalized from client/client.go's dialAndHandshake and
// client/transport_client.go's clientTransport (momentics/hioload-ws):
// same dial-then-upgrade shape, but TLS-first and handing inbound
// frames to a Dispatcher instead of a recvChan.

package transport

import (
	cryptorand "crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/internal/concurrency"
	"github.com/momentics/fixp-ws-client/pool"
	"github.com/momentics/fixp-ws-client/protocol"
)

// Config holds the parameters needed to dial and maintain one client
// connection.
type Config struct {
	Addr         string        // e.g. wss://localhost:443/trade
	ReadBufSize  int           // per-read pooled buffer size
	ReadTimeout  time.Duration // 0 disables read deadlines
	WriteTimeout time.Duration // 0 disables write deadlines

	// OnClose, if set, is invoked once whenever the read loop exits
	// (socket error, peer close, a local Close, or a frame too large
	// for the read buffer), letting the trader facade unbind the
	// session without the read loop importing session itself.
	OnClose func()
}

// DefaultConfig mirrors the teacher's DefaultConfig defaults
// (client/facade.go), scaled down for a single order-entry session.
func DefaultConfig() Config {
	return Config{
		Addr:         "wss://localhost:443/trade",
		ReadBufSize:  64 * 1024,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Client is a WebSocket client transport bound to one dispatcher. It
// implements api.Transport and api.Deadline.
type Client struct {
	cfg     Config
	pool    api.BufferPool
	disp    *concurrency.Dispatcher
	host    string
	path    string
	useTLS  bool

	mu     sync.Mutex
	conn   net.Conn
	closed atomic.Bool
	wg     sync.WaitGroup
}

var _ api.Transport = (*Client)(nil)
var _ api.Deadline = (*Client)(nil)

// NewClient constructs a transport that will hand every inbound
// binary frame's payload to disp as a concurrency.Frame. bp may be
// nil, in which case pool.DefaultPool() is used.
func NewClient(cfg Config, disp *concurrency.Dispatcher, bp api.BufferPool) (*Client, error) {
	u, err := url.Parse(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	if bp == nil {
		bp = pool.DefaultPool()
	}
	path := u.RequestURI()
	if path == "" {
		path = "/"
	}
	return &Client{
		cfg:    cfg,
		pool:   bp,
		disp:   disp,
		host:   u.Host,
		path:   path,
		useTLS: u.Scheme == "wss",
	}, nil
}

// Open dials the peer, optionally over TLS with a pkcs12 trust-store,
// performs the RFC6455 upgrade, and starts the read loop. It returns
// only once the upgrade has succeeded.
func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var conn net.Conn
	var err error
	if c.useTLS {
		roots, terr := loadTrustStore()
		if terr != nil {
			return &api.TransportError{Op: "truststore", Err: terr}
		}
		conn, err = tls.Dial("tcp", c.host, &tls.Config{RootCAs: roots})
	} else {
		conn, err = net.Dial("tcp", c.host)
	}
	if err != nil {
		return &api.TransportError{Op: "dial", Err: err}
	}

	req := buildUpgradeRequest(c.host, c.path)
	err = protocol.WriteHandshakeRequest(conn, req)
	if err == nil {
		err = protocol.DoClientHandshake(conn, req)
	}
	if err != nil {
		conn.Close()
		return &api.TransportError{Op: "handshake", Err: err}
	}

	c.conn = conn
	c.closed.Store(false)
	c.wg.Add(1)
	go c.readLoop()
	return nil
}

// Send frames payload as a single masked binary WebSocket message.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || c.closed.Load() {
		return api.ErrTransportClosed
	}
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	out, err := protocol.EncodeFrameToBytes(&protocol.WSFrame{
		IsFinal:    true,
		Opcode:     protocol.OpcodeBinary,
		PayloadLen: int64(len(frame)),
		Payload:    frame,
	})
	if err != nil {
		return &api.TransportError{Op: "encode", Err: err}
	}
	if _, err := conn.Write(out); err != nil {
		return &api.TransportError{Op: "write", Err: err}
	}
	return nil
}

// Close idempotently tears down the connection and joins the read
// loop.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
	return nil
}

// Source reports the configured peer address, used for dispatcher
// frame provenance and logging.
func (c *Client) Source() string {
	return c.cfg.Addr
}

// Features reports this transport's capability set.
func (c *Client) Features() api.TransportFeatures {
	return api.TransportFeatures{
		ZeroCopy: false,
		TLS:      c.useTLS,
		OS:       []string{"linux", "windows", "darwin"},
	}
}

// SetReadDeadline and SetWriteDeadline implement api.Deadline.
func (c *Client) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return api.ErrTransportClosed
	}
	return c.conn.SetReadDeadline(t)
}

func (c *Client) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return api.ErrTransportClosed
	}
	return c.conn.SetWriteDeadline(t)
}

// readLoop accumulates reads into a pooled buffer, decodes complete
// frames off the front, and submits each binary payload to the
// dispatcher (§4.2). Partial frames are preserved across reads by
// compacting the unconsumed tail to the buffer's start.
func (c *Client) readLoop() {
	defer c.wg.Done()

	buf := c.pool.Get(c.cfg.ReadBufSize)
	defer buf.Release()
	pending := 0

	notified := false
	notifyClose := func() {
		if !notified && c.cfg.OnClose != nil {
			notified = true
			c.cfg.OnClose()
		}
	}
	defer notifyClose()

	for {
		if c.closed.Load() {
			return
		}
		if c.cfg.ReadTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		data := buf.Bytes()
		if pending == len(data) {
			// frame larger than the buffer's remaining room; nothing more to read into.
			return
		}
		n, err := c.conn.Read(data[pending:])
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			c.closed.Store(true)
			return
		}
		pending += n

		consumedTotal := 0
		for {
			frame, consumed, ferr := protocol.DecodeFrameFromBytes(data[consumedTotal:pending])
			if ferr != nil || frame == nil {
				break
			}
			consumedTotal += consumed
			if frame.Opcode == protocol.OpcodeBinary || frame.Opcode == protocol.OpcodeContinuation {
				c.disp.Submit(concurrency.Frame{SourceID: c.cfg.Addr, Region: frame.Payload})
			}
		}
		if consumedTotal > 0 {
			copy(data, data[consumedTotal:pending])
			pending -= consumedTotal
		}
	}
}

func buildUpgradeRequest(host, path string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, "http://"+host+path, nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Key", newSecWebSocketKey())
	req.Header.Set("Sec-WebSocket-Version", protocol.RequiredWebSocketVersion)
	return req
}

func newSecWebSocketKey() string {
	var raw [16]byte
	_, _ = cryptorand.Read(raw[:])
	return base64.StdEncoding.EncodeToString(raw[:])
}
