// Package discovery implements broadcast-based device discovery: send a
// registration probe to the LAN broadcast address once per second and
// collect replies, deduplicated by MAC.
package discovery

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wizgo/wizgo/wizerr"
)

const wizPort = 38899

// probeMessage is the literal discovery registration probe. The fake
// credentials and register:false elicit a response without registering the
// prober for push updates.
const probeMessage = `{"method":"registration","params":{"phoneIp":"1.2.3.4","register":false,"phoneMac":"aaaaaaaaaaaa"}}`

// Device is a discovered device's address pair.
type Device struct {
	IP  string
	MAC string
}

// Find broadcasts the registration probe to broadcastAddr once per second
// for timeout and returns every distinct device that replied, deduplicated
// by MAC (first occurrence wins). The broadcast socket is always closed,
// even if ctx is cancelled early.
func Find(ctx context.Context, timeout time.Duration, broadcastAddr string) ([]Device, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, wizerr.Wrap(wizerr.ConnectionError, err)
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.ParseIP(broadcastAddr), Port: wizPort}
	if dst.IP == nil {
		return nil, wizerr.Newf(wizerr.InvalidParameter, "invalid broadcast address %q", broadcastAddr)
	}

	var mu sync.Mutex
	seen := map[string]Device{}
	order := []string{}

	collectDone := make(chan struct{})
	go collectResponses(conn, &mu, seen, &order, collectDone)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(timeout)

	sendProbe(conn, dst)
loop:
	for {
		select {
		case <-ticker.C:
			sendProbe(conn, dst)
		case <-deadline:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	conn.Close()
	<-collectDone

	mu.Lock()
	defer mu.Unlock()
	result := make([]Device, 0, len(order))
	for _, mac := range order {
		result = append(result, seen[mac])
	}
	return result, nil
}

func sendProbe(conn *net.UDPConn, dst *net.UDPAddr) {
	if _, err := conn.WriteToUDP([]byte(probeMessage), dst); err != nil {
		slog.Debug("discovery probe send failed", "err", err)
	}
}

// collectResponses reads datagrams until the socket closes, recording the
// first (ip, mac) pair seen per MAC.
func collectResponses(conn *net.UDPConn, mu *sync.Mutex, seen map[string]Device, order *[]string, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 2048)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		var env struct {
			Result struct {
				Mac string `json:"mac"`
			} `json:"result"`
		}
		if jsonErr := json.Unmarshal(buf[:n], &env); jsonErr != nil {
			slog.Debug("malformed discovery response", "from", from, "err", jsonErr)
			continue
		}
		mac := env.Result.Mac
		if mac == "" {
			continue
		}

		mu.Lock()
		if _, exists := seen[mac]; !exists {
			seen[mac] = Device{IP: from.IP.String(), MAC: mac}
			*order = append(*order, mac)
		}
		mu.Unlock()
	}
}
