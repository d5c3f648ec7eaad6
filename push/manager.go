// Package push implements the singleton listener that receives unsolicited
// syncPilot/firstBeat state updates from WiZ devices and dispatches them to
// per-device subscribers.
package push

import (
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/wizgo/wizgo/pilot"
	"github.com/wizgo/wizgo/wizerr"
)

// Port is the UDP port WiZ devices push state updates to.
const Port = 38900

// StateCallback receives a parsed syncPilot update.
type StateCallback func(*pilot.Parser)

// DiscoveryCallback receives a (ip, mac) pair from a firstBeat message.
type DiscoveryCallback func(ip, mac string)

type subscription struct {
	id       uint64
	callback StateCallback
}

type discoverySubscription struct {
	id       uint64
	callback DiscoveryCallback
}

// Manager is a process-wide push listener and subscription registry. Port
// 38900 can only be bound once, so callers share a Manager via Get rather
// than constructing one directly.
type Manager struct {
	mu          sync.Mutex
	conn        *net.UDPConn
	running     bool
	nextID      uint64
	subscribers map[string][]subscription
	discovery   []discoverySubscription
	port        int
}

var (
	instance     *Manager
	instanceOnce sync.Once
)

// Get returns the process-wide Manager, creating it on first call. Safe to
// call repeatedly and from multiple goroutines.
func Get() *Manager {
	instanceOnce.Do(func() {
		instance = &Manager{subscribers: map[string][]subscription{}, port: Port}
	})
	return instance
}

// New returns a standalone Manager, bypassing the process-wide singleton.
// Intended for tests and for callers that deliberately want an isolated
// listener rather than sharing port 38900 with the rest of the process.
func New() *Manager {
	return &Manager{subscribers: map[string][]subscription{}, port: Port}
}

// newOnPort builds a Manager bound to an arbitrary port, used by tests that
// exercise a real listener without claiming the production push port.
func newOnPort(port int) *Manager {
	return &Manager{subscribers: map[string][]subscription{}, port: port}
}

// Start begins listening on the manager's port (Port for managers from Get
// and New). Idempotent: calling it again while
// already running is a no-op.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	port := m.port
	if port == 0 {
		port = Port
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return wizerr.Wrap(wizerr.ConnectionError, err)
	}
	m.conn = conn
	m.running = true

	go m.listen(conn)
	return nil
}

// Stop closes the listener and clears running state. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.conn.Close()
	m.conn = nil
	m.running = false
}

// IsRunning reports whether the manager currently holds an open listener.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Subscribe registers callback for syncPilot updates from mac, normalizing
// the MAC (lowercase, strip ':' and '-'). Returns a disposer that removes
// exactly this subscription; calling it more than once is a no-op.
func (m *Manager) Subscribe(mac string, callback StateCallback) func() {
	key := normalizeMAC(mac)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[key] = append(m.subscribers[key], subscription{id: id, callback: callback})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			subs := m.subscribers[key]
			for i, s := range subs {
				if s.id == id {
					m.subscribers[key] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(m.subscribers[key]) == 0 {
				delete(m.subscribers, key)
			}
		})
	}
}

// OnDiscovery registers callback for firstBeat messages. Returns a disposer.
func (m *Manager) OnDiscovery(callback DiscoveryCallback) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.discovery = append(m.discovery, discoverySubscription{id: id, callback: callback})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.discovery {
				if s.id == id {
					m.discovery = append(m.discovery[:i:i], m.discovery[i+1:]...)
					break
				}
			}
		})
	}
}

func (m *Manager) listen(conn *net.UDPConn) {
	buf := make([]byte, 2048)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		var msg struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		if jsonErr := json.Unmarshal(buf[:n], &msg); jsonErr != nil {
			slog.Debug("malformed push datagram, dropping", "from", from, "err", jsonErr)
			continue
		}

		switch msg.Method {
		case "syncPilot":
			m.dispatchSyncPilot(msg.Params)
		case "firstBeat":
			m.dispatchFirstBeat(msg.Params, from)
		default:
			slog.Debug("unknown push method, ignoring", "method", msg.Method, "from", from)
		}
	}
}

func (m *Manager) dispatchSyncPilot(params map[string]any) {
	rawMAC, _ := params["mac"].(string)
	if rawMAC == "" {
		slog.Debug("syncPilot without mac, dropping")
		return
	}
	key := normalizeMAC(rawMAC)

	m.mu.Lock()
	subs := append([]subscription(nil), m.subscribers[key]...)
	m.mu.Unlock()

	parser := pilot.NewParser(params)
	for _, s := range subs {
		invokeStateCallback(s.callback, parser)
	}
}

func (m *Manager) dispatchFirstBeat(params map[string]any, from *net.UDPAddr) {
	rawMAC, _ := params["mac"].(string)
	if rawMAC == "" {
		return
	}
	key := normalizeMAC(rawMAC)

	m.mu.Lock()
	subs := append([]discoverySubscription(nil), m.discovery...)
	m.mu.Unlock()

	for _, s := range subs {
		invokeDiscoveryCallback(s.callback, from.IP.String(), key)
	}
}

// invokeStateCallback isolates a panicking callback so it doesn't bring
// down the listener goroutine, mirroring the source's catch-log-continue
// policy for push dispatch.
func invokeStateCallback(cb StateCallback, p *pilot.Parser) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("push callback panicked", "recovered", r)
		}
	}()
	cb(p)
}

func invokeDiscoveryCallback(cb DiscoveryCallback, ip, mac string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("discovery callback panicked", "recovered", r)
		}
	}()
	cb(ip, mac)
}

func normalizeMAC(mac string) string {
	mac = strings.ToLower(mac)
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, "-", "")
	return mac
}
