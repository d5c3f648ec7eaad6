package device_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/wizgo/wizgo/device"
	"github.com/wizgo/wizgo/pilot"
	"github.com/wizgo/wizgo/schedules"
)

// fakeDevice answers every request with handler's output.
type fakeDevice struct {
	conn *net.UDPConn
}

func startFakeDevice(t *testing.T, handler func(method string, params map[string]any) map[string]any) *fakeDevice {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 38899})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeDevice{conn: conn}

	go func() {
		buf := make([]byte, 4096)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			var req struct {
				Method string         `json:"method"`
				Params map[string]any `json:"params"`
			}
			if jsonErr := json.Unmarshal(buf[:n], &req); jsonErr != nil {
				continue
			}
			result := handler(req.Method, req.Params)
			reply, _ := json.Marshal(map[string]any{
				"method": req.Method,
				"env":    "pro",
				"result": result,
			})
			conn.WriteToUDP(reply, from)
		}
	}()

	return f
}

func (f *fakeDevice) close() { f.conn.Close() }

func TestUpdateState_CachesStateAndMAC(t *testing.T) {
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		return map[string]any{"state": true, "dimming": 77, "mac": "aabbccddeeff"}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	parser, err := d.UpdateState(ctx)
	if err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if !parser.State() {
		t.Fatal("expected state true")
	}
	if v, _ := parser.Brightness(); v != 77 {
		t.Fatalf("brightness = %d, want 77", v)
	}

	mac, err := d.GetMac(ctx)
	if err != nil {
		t.Fatalf("GetMac: %v", err)
	}
	if mac != "aabbccddeeff" {
		t.Fatalf("mac = %q", mac)
	}
}

func TestGetCapability_DetectsFromModuleName(t *testing.T) {
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		return map[string]any{"moduleName": "ESP01_SHRGB3_01ABI", "fwVersion": "1.22.0", "mac": "112233445566"}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cap, err := d.GetCapability(ctx)
	if err != nil {
		t.Fatalf("GetCapability: %v", err)
	}
	if cap.Class != "RGB" || cap.FWVersion != "1.22.0" {
		t.Fatalf("unexpected capability: %+v", cap)
	}
}

func TestGetPower_SwallowsFailure(t *testing.T) {
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		return map[string]any{} // no "w" key — unsupported
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, ok := d.GetPower(ctx)
	if ok {
		t.Fatal("expected power monitoring unsupported")
	}
}

func TestTurnOn_SendsBuiltParams(t *testing.T) {
	received := make(chan map[string]any, 1)
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		if method == "setPilot" {
			received <- params
		}
		return map[string]any{}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.TurnOn(ctx, pilot.New().Scene("Club").Brightness(200)); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}

	select {
	case params := <-received:
		if params["sceneId"] != float64(26) && params["sceneId"] != 26 {
			t.Fatalf("sceneId = %v", params["sceneId"])
		}
	case <-time.After(time.Second):
		t.Fatal("setPilot was not received")
	}
}

func TestGetRoomID_ReadsAssignment(t *testing.T) {
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		return map[string]any{"homeId": float64(1), "roomId": float64(2)}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assignment, err := d.GetRoomID(ctx)
	if err != nil {
		t.Fatalf("GetRoomID: %v", err)
	}
	if assignment.HomeID == nil || *assignment.HomeID != 1 {
		t.Fatalf("HomeID = %v", assignment.HomeID)
	}
	if assignment.GroupID != nil {
		t.Fatal("GroupID should be nil when absent")
	}
}

func TestGetDeviceInfo_AssemblesFromSystemConfig(t *testing.T) {
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		return map[string]any{
			"mac":        "112233445566",
			"moduleName": "ESP01_SHRGB3_01ABI",
			"fwVersion":  "1.22.0",
			"homeId":     float64(10),
			"roomId":     float64(20),
			"typeId":     float64(3),
		}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := d.GetDeviceInfo(ctx)
	if err != nil {
		t.Fatalf("GetDeviceInfo: %v", err)
	}
	if info.MAC != "112233445566" || info.ModuleName != "ESP01_SHRGB3_01ABI" || info.FWVersion != "1.22.0" {
		t.Fatalf("unexpected device info: %+v", info)
	}
	if info.HomeID == nil || *info.HomeID != 10 {
		t.Fatalf("HomeID = %v", info.HomeID)
	}
	if info.RoomID == nil || *info.RoomID != 20 {
		t.Fatalf("RoomID = %v", info.RoomID)
	}
	if info.TypeID == nil || *info.TypeID != 3 {
		t.Fatalf("TypeID = %v", info.TypeID)
	}
	if info.IP != "127.0.0.1" {
		t.Fatalf("IP = %q, want 127.0.0.1", info.IP)
	}
}

func TestSetRoomID_SendsOnlyNonNilFields(t *testing.T) {
	received := make(chan map[string]any, 1)
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		if method == "setSystemConfig" {
			received <- params
		}
		return map[string]any{}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	room := 9
	if err := d.SetRoomID(ctx, nil, &room, nil); err != nil {
		t.Fatalf("SetRoomID: %v", err)
	}

	select {
	case params := <-received:
		if len(params) != 1 || params["roomId"] != float64(9) {
			t.Fatalf("unexpected params: %+v", params)
		}
	case <-time.After(time.Second):
		t.Fatal("setSystemConfig was not received")
	}
}

func TestGetSchedules_ParsesList(t *testing.T) {
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		return map[string]any{
			"schdPsetList": []any{
				map[string]any{"i": float64(0), "en": float64(1), "d": float64(schedules.EveryDay), "h": float64(7), "m": float64(0)},
			},
		}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	entries, err := d.GetSchedules(ctx)
	if err != nil {
		t.Fatalf("GetSchedules: %v", err)
	}
	if len(entries) != 1 || entries[0].Hour != 7 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestSetSchedule_SendsEntry(t *testing.T) {
	received := make(chan map[string]any, 1)
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		if method == "setSchdPset" {
			received <- params
		}
		return map[string]any{}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	scene := 9
	if err := d.SetSchedule(ctx, schedules.Entry{Index: 2, Enabled: true, Days: schedules.EveryDay, Hour: 6, Minute: 30, SceneID: &scene}); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}

	select {
	case params := <-received:
		list, ok := params["schdPsetList"].([]any)
		if !ok || len(list) != 1 {
			t.Fatalf("unexpected params: %+v", params)
		}
		entry, ok := list[0].(map[string]any)
		if !ok || entry["sceneId"] != float64(9) {
			t.Fatalf("unexpected params: %+v", params)
		}
	case <-time.After(time.Second):
		t.Fatal("setSchdPset was not received")
	}
}

func TestClose_IdempotentWithoutPush(t *testing.T) {
	dev := startFakeDevice(t, func(method string, params map[string]any) map[string]any {
		return map[string]any{}
	})
	defer dev.close()

	d, err := device.New("127.0.0.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
