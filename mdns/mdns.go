// Package mdns discovers WiZ devices advertised over _wiz._udp.local. via
// zeroconf, as an alternative to broadcast discovery.
package mdns

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/wizgo/wizgo/discovery"
	"github.com/wizgo/wizgo/wizerr"
)

const serviceType = "_wiz._udp"
const domain = "local."

// Browse resolves _wiz._udp.local. services for timeout and returns every
// distinct device seen, deduplicated by MAC (first occurrence wins). MAC is
// read from the service's TXT record "mac" key; entries without one are
// skipped since they cannot be deduplicated against broadcast results.
func Browse(ctx context.Context, timeout time.Duration) ([]discovery.Device, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, wizerr.Wrap(wizerr.ConnectionError, err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)

	var mu sync.Mutex
	seen := map[string]discovery.Device{}
	order := []string{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			dev, ok := parseEntry(entry)
			if !ok {
				continue
			}
			mu.Lock()
			if _, exists := seen[dev.MAC]; !exists {
				seen[dev.MAC] = dev
				order = append(order, dev.MAC)
			}
			mu.Unlock()
		}
	}()

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(browseCtx, serviceType, domain, entries); err != nil {
		return nil, wizerr.Wrap(wizerr.ConnectionError, err)
	}

	<-browseCtx.Done()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	result := make([]discovery.Device, 0, len(order))
	for _, mac := range order {
		result = append(result, seen[mac])
	}
	return result, nil
}

// Discover runs broadcast discovery and mDNS browsing together and merges
// the results, deduplicated by MAC. Broadcast results are queried first, so
// a device seen by both methods keeps its broadcast-reported IP.
func Discover(ctx context.Context, timeout time.Duration, broadcastAddr string) ([]discovery.Device, error) {
	broadcastDevices, err := discovery.Find(ctx, timeout, broadcastAddr)
	if err != nil {
		return nil, err
	}

	mdnsDevices, err := Browse(ctx, timeout)
	if err != nil {
		return nil, err
	}

	return mergeByMAC(broadcastDevices, mdnsDevices), nil
}

// mergeByMAC concatenates device lists, keeping only the first occurrence of
// each MAC across all of them in order.
func mergeByMAC(lists ...[]discovery.Device) []discovery.Device {
	seen := map[string]bool{}
	var merged []discovery.Device
	for _, list := range lists {
		for _, dev := range list {
			if !seen[dev.MAC] {
				seen[dev.MAC] = true
				merged = append(merged, dev)
			}
		}
	}
	return merged
}

func parseEntry(entry *zeroconf.ServiceEntry) (discovery.Device, bool) {
	if entry == nil {
		return discovery.Device{}, false
	}

	var addr net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		addr = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		addr = entry.AddrIPv6[0]
	default:
		return discovery.Device{}, false
	}

	mac := ""
	for _, txt := range entry.Text {
		key, value, found := strings.Cut(txt, "=")
		if found && strings.EqualFold(key, "mac") {
			mac = value
			break
		}
	}
	if mac == "" {
		return discovery.Device{}, false
	}

	return discovery.Device{IP: addr.String(), MAC: mac}, true
}
