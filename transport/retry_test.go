package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wizgo/wizgo/transport"
	"github.com/wizgo/wizgo/wizerr"
)

// fakeWizDevice binds the real WizPort on loopback so transport.Client, which
// always addresses (ip, WizPort), can be driven end to end without a test
// shim standing in for the destination port.
type fakeWizDevice struct {
	conn *net.UDPConn
}

func bindFakeWizDevice(t *testing.T) *fakeWizDevice {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: transport.WizPort})
	if err != nil {
		t.Fatalf("listen on WizPort: %v", err)
	}
	return &fakeWizDevice{conn: conn}
}

func (f *fakeWizDevice) close() { f.conn.Close() }

func TestRetrySchedule_IsConfigurable(t *testing.T) {
	if len(transport.RetryDelays) != 5 {
		t.Fatalf("expected 5 scheduled attempts, got %d", len(transport.RetryDelays))
	}
	want := []time.Duration{0, 500 * time.Millisecond, 1500 * time.Millisecond, 3 * time.Second, 6 * time.Second}
	for i, d := range want {
		if transport.RetryDelays[i] != d {
			t.Fatalf("delay[%d] = %v, want %v", i, transport.RetryDelays[i], d)
		}
	}
}

// TestClient_Send_CommandErrorNotRetried drives Client.Send itself (not the
// bare Conn) against a device that answers immediately with an "error" key,
// confirming the error surfaces as a terminal wizerr.CommandError after
// exactly one attempt, per spec scenario S7's sibling invariant 7.
func TestClient_Send_CommandErrorNotRetried(t *testing.T) {
	dev := bindFakeWizDevice(t)
	defer dev.close()

	var attempts int32
	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := dev.conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			atomic.AddInt32(&attempts, 1)
			var req struct {
				Method string `json:"method"`
			}
			json.Unmarshal(buf[:n], &req)
			reply, _ := json.Marshal(map[string]any{
				"method": req.Method,
				"error":  map[string]any{"code": -1, "message": "bad params"},
			})
			dev.conn.WriteToUDP(reply, from)
		}
	}()

	client, err := transport.NewClientWithDelays(transport.RetryDelays, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClientWithDelays: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, sendErr := client.Send(ctx, "127.0.0.1", transport.Message{Method: "setPilot"})
	if sendErr == nil {
		t.Fatal("expected command-error")
	}
	if wizerr.Retryable(sendErr) {
		t.Fatal("command-error must not be classified as retryable")
	}
	if !errors.Is(sendErr, wizerr.CommandError) {
		t.Fatalf("expected CommandError, got %v", sendErr)
	}

	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected exactly 1 attempt reaching the device, got %d", got)
	}
}

// TestClient_Send_RetriesTransientFailureThenSucceeds confirms the retry
// loop itself recovers: the device stays silent for the first two attempts
// (classified connection/timeout failures, both retryable) then answers on
// the third, and Send returns that success without surfacing an error.
func TestClient_Send_RetriesTransientFailureThenSucceeds(t *testing.T) {
	dev := bindFakeWizDevice(t)
	defer dev.close()

	var attempts int32
	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := dev.conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			count := atomic.AddInt32(&attempts, 1)
			if count < 3 {
				continue // stay silent, forcing a timeout on this attempt
			}
			var req struct {
				Method string `json:"method"`
			}
			json.Unmarshal(buf[:n], &req)
			reply, _ := json.Marshal(map[string]any{
				"method": req.Method,
				"env":    "pro",
				"result": map[string]any{"state": true},
			})
			dev.conn.WriteToUDP(reply, from)
		}
	}()

	delays := []time.Duration{0, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}
	client, err := transport.NewClientWithDelays(delays, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClientWithDelays: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	env, sendErr := client.Send(ctx, "127.0.0.1", transport.Message{Method: "getPilot"})
	if sendErr != nil {
		t.Fatalf("expected eventual success, got %v", sendErr)
	}
	if env.Result["state"] != true {
		t.Fatalf("unexpected result: %+v", env.Result)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected exactly 3 attempts before success, got %d", got)
	}
}

// TestClient_Send_ExhaustsScheduleOnSilence_S6 drives Client.Send itself
// against a device that never responds, confirming the schedule is
// exhausted after exactly len(RetryDelays) attempts and the failure surfaces
// as wizerr.TimeoutError (spec scenario S6 / invariant 6).
func TestClient_Send_ExhaustsScheduleOnSilence_S6(t *testing.T) {
	dev := bindFakeWizDevice(t)
	defer dev.close()

	var attempts int32
	go func() {
		buf := make([]byte, 2048)
		for {
			_, _, err := dev.conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			atomic.AddInt32(&attempts, 1)
			// never reply
		}
	}()

	fastDelays := make([]time.Duration, len(transport.RetryDelays))
	client, err := transport.NewClientWithDelays(fastDelays, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClientWithDelays: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, sendErr := client.Send(ctx, "127.0.0.1", transport.Message{Method: "getPilot"})
	if sendErr == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(sendErr, wizerr.TimeoutError) {
		t.Fatalf("expected TimeoutError, got %v", sendErr)
	}

	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&attempts); got != int32(len(transport.RetryDelays)) {
		t.Fatalf("expected %d attempts, got %d", len(transport.RetryDelays), got)
	}
}
