// Package transport implements the UDP request/response primitive (C5) and
// the progressive-backoff retry client (C6) used to talk to WiZ devices.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/wizgo/wizgo/wizerr"
)

// WizPort is the command port every WiZ device listens on.
const WizPort = 38899

// Message is the JSON envelope sent to a device:
// {"method": str, "params": object, "id"?: int}.
type Message struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
	ID     int            `json:"id,omitempty"`
}

// Envelope is a decoded device response:
// {"method": str, "env": str, "result": object} or {"method": ..., "error": ...}.
type Envelope struct {
	Method string         `json:"method"`
	Env    string         `json:"env,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Error  any            `json:"error,omitempty"`
}

// HasError reports whether the envelope carries an "error" field.
func (e Envelope) HasError() bool {
	return e.Error != nil
}

// StateObject returns Result, falling back to Params when Result is empty —
// the core treats result and params as interchangeable fallbacks when
// extracting state, since device firmware varies (spec §4.5).
func (e Envelope) StateObject() map[string]any {
	if len(e.Result) > 0 {
		return e.Result
	}
	return e.Params
}

// Conn is the UDP transport primitive: one socket, bound by NewConn and
// reused for every request. SendOnce and SendOnceToAddr hold Conn's mutex
// for the whole write-and-await exchange, so concurrent callers on the same
// Conn are serialized with a single request pending at a time.
type Conn struct {
	mu   sync.Mutex
	conn *net.UDPConn
}

// NewConn binds an address-any, ephemeral-port UDP endpoint.
func NewConn() (*Conn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, wizerr.Wrap(wizerr.ConnectionError, err)
	}
	return &Conn{conn: conn}, nil
}

// SendOnce transmits payload to (ip, WizPort) and awaits one datagram from
// that peer within timeout. A socket error fails with ConnectionError; an
// undecodable datagram is logged and the wait continues rather than being
// propagated as the response.
func (c *Conn) SendOnce(ctx context.Context, ip string, payload []byte, timeout time.Duration) (Envelope, error) {
	dst := &net.UDPAddr{IP: net.ParseIP(ip), Port: WizPort}
	if dst.IP == nil {
		return Envelope{}, wizerr.Newf(wizerr.ConnectionError, "invalid device IP %q", ip)
	}
	return c.SendOnceToAddr(dst, payload, timeout)
}

// SendOnceToAddr is SendOnce against an explicit peer address rather than
// the fixed WizPort, used by tests that stand up a loopback listener on an
// ephemeral port.
func (c *Conn) SendOnceToAddr(dst *net.UDPAddr, payload []byte, timeout time.Duration) (Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.WriteToUDP(payload, dst); err != nil {
		return Envelope{}, wizerr.Wrap(wizerr.ConnectionError, err)
	}

	deadline := time.Now().Add(timeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return Envelope{}, wizerr.Wrap(wizerr.ConnectionError, err)
	}

	buf := make([]byte, 2048)
	for {
		n, from, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return Envelope{}, wizerr.Newf(wizerr.TimeoutError, "no response from %s", dst.IP)
			}
			return Envelope{}, wizerr.Wrap(wizerr.ConnectionError, err)
		}
		if !from.IP.Equal(dst.IP) {
			continue
		}

		var env Envelope
		if jsonErr := json.Unmarshal(buf[:n], &env); jsonErr != nil {
			slog.Debug("malformed response, continuing to wait", "from", from, "err", jsonErr, "raw", spew.Sdump(buf[:n]))
			continue
		}
		return env, nil
	}
}

// SendNoReply transmits payload to (ip, WizPort) without waiting for a
// response.
func (c *Conn) SendNoReply(ip string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dst := &net.UDPAddr{IP: net.ParseIP(ip), Port: WizPort}
	if dst.IP == nil {
		return wizerr.Newf(wizerr.ConnectionError, "invalid device IP %q", ip)
	}
	if _, err := c.conn.WriteToUDP(payload, dst); err != nil {
		return wizerr.Wrap(wizerr.ConnectionError, err)
	}
	return nil
}

// Close releases the UDP socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// String renders the connection for debug logging, spew-style like the
// teacher's lwl.Client.String().
func (c *Conn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return spew.Sprintf("transport.Conn(local=%v)", c.localAddr())
}

func (c *Conn) localAddr() any {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

func encode(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return b, nil
}
