package mdns

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"

	"github.com/wizgo/wizgo/discovery"
)

func TestParseEntry_ExtractsMACFromTXT(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{net.IPv4(192, 168, 1, 50)},
		Text:     []string{"mac=aabbccddeeff", "version=1"},
	}
	dev, ok := parseEntry(entry)
	if !ok {
		t.Fatal("expected entry to parse")
	}
	if dev.MAC != "aabbccddeeff" || dev.IP != "192.168.1.50" {
		t.Fatalf("unexpected device: %+v", dev)
	}
}

func TestParseEntry_NoMAC_Skipped(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{net.IPv4(192, 168, 1, 50)},
		Text:     []string{"version=1"},
	}
	if _, ok := parseEntry(entry); ok {
		t.Fatal("expected entry without mac to be skipped")
	}
}

func TestParseEntry_NoAddress_Skipped(t *testing.T) {
	entry := &zeroconf.ServiceEntry{Text: []string{"mac=aabbccddeeff"}}
	if _, ok := parseEntry(entry); ok {
		t.Fatal("expected entry without address to be skipped")
	}
}

func TestMergeByMAC_BroadcastWinsOverMDNS(t *testing.T) {
	broadcast := []discovery.Device{{IP: "192.168.1.10", MAC: "aabbccddeeff"}}
	mdns := []discovery.Device{
		{IP: "169.254.1.1", MAC: "aabbccddeeff"}, // duplicate, broadcast IP should win
		{IP: "192.168.1.20", MAC: "112233445566"},
	}

	merged := mergeByMAC(broadcast, mdns)
	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}
	if merged[0].MAC != "aabbccddeeff" || merged[0].IP != "192.168.1.10" {
		t.Fatalf("merged[0] = %+v", merged[0])
	}
	if merged[1].MAC != "112233445566" {
		t.Fatalf("merged[1] = %+v", merged[1])
	}
}
