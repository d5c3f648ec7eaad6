// Package device implements the per-device façade: a single object bound
// to one physical device's IP, wrapping the transport/pilot/push layers and
// owning that device's caches and push keep-alive lifecycle.
package device

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/wizgo/wizgo/devices"
	"github.com/wizgo/wizgo/firmware"
	"github.com/wizgo/wizgo/groups"
	"github.com/wizgo/wizgo/pilot"
	"github.com/wizgo/wizgo/push"
	"github.com/wizgo/wizgo/scenes"
	"github.com/wizgo/wizgo/schedules"
	"github.com/wizgo/wizgo/transport"
	"github.com/wizgo/wizgo/wizerr"
)

// pushKeepAliveInterval is how often start_push re-sends the registration
// command; WiZ devices stop pushing if they don't hear from a listener
// within roughly this window.
const pushKeepAliveInterval = 20 * time.Second

// registrationListenerMAC is the placeholder phoneMac sent in the
// registration commands of RegisterForPush and UnregisterPush; the protocol
// treats it as opaque.
const registrationListenerMAC = "aaaaaaaaaaaa"

// Device represents a single physical WiZ device at a known IP.
type Device struct {
	IP   string
	Port int

	client     *transport.Client
	ownsClient bool

	mu             sync.Mutex
	state          *pilot.Parser
	capability     *devices.Capability
	mac            string
	systemConfig   map[string]any
	supportedScene []string
	powerMonitored *bool

	pushCallback push.StateCallback
	pushCancel   context.CancelFunc
	pushDone     chan struct{}
}

// New binds a façade to ip:port, creating and owning its own transport
// client.
func New(ip string) (*Device, error) {
	client, err := transport.NewClient()
	if err != nil {
		return nil, err
	}
	return &Device{IP: ip, Port: transport.WizPort, client: client, ownsClient: true}, nil
}

// NewWithClient binds a façade to a caller-supplied, shared transport
// client. The façade does not close a borrowed client.
func NewWithClient(ip string, client *transport.Client) *Device {
	return &Device{IP: ip, Port: transport.WizPort, client: client, ownsClient: false}
}

func (d *Device) send(ctx context.Context, method string, params map[string]any) (transport.Envelope, error) {
	return d.client.Send(ctx, d.IP, transport.Message{Method: method, Params: params})
}

func (d *Device) sendID(ctx context.Context, method string, id int, params map[string]any) (transport.Envelope, error) {
	return d.client.Send(ctx, d.IP, transport.Message{Method: method, ID: id, Params: params})
}

// UpdateState fetches getPilot, replaces the cached state and MAC, and
// returns the parsed result.
func (d *Device) UpdateState(ctx context.Context) (*pilot.Parser, error) {
	env, err := d.send(ctx, "getPilot", nil)
	if err != nil {
		return nil, err
	}
	parser := pilot.NewParser(env.StateObject())

	d.mu.Lock()
	d.state = parser
	if mac, ok := parser.MAC(); ok && mac != "" {
		d.mac = mac
	}
	d.mu.Unlock()

	return parser, nil
}

// State returns the last state observed by UpdateState or a push update, or
// nil if none has been received yet.
func (d *Device) State() *pilot.Parser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// GetCapability runs device detection against getSystemConfig, caching the
// result (including fw_version and white_channels) on first call.
func (d *Device) GetCapability(ctx context.Context) (devices.Capability, error) {
	d.mu.Lock()
	if d.capability != nil {
		capability := *d.capability
		d.mu.Unlock()
		return capability, nil
	}
	d.mu.Unlock()

	config, err := d.GetSystemConfig(ctx)
	if err != nil {
		return devices.Capability{}, err
	}

	moduleName, _ := config["moduleName"].(string)
	var whiteRange *devices.WhiteRange
	if raw, ok := config["whiteRange"].([]any); ok && len(raw) >= 2 {
		min, okMin := asNumber(raw[0])
		max, okMax := asNumber(raw[1])
		if okMin && okMax {
			whiteRange = &devices.WhiteRange{Min: min, Max: max}
		}
	}

	capability := devices.Detect(moduleName, whiteRange)
	if fw, ok := config["fwVersion"].(string); ok {
		capability.FWVersion = fw
	}

	d.mu.Lock()
	d.capability = &capability
	if mac, ok := config["mac"].(string); ok && mac != "" {
		d.mac = mac
	}
	d.mu.Unlock()

	return capability, nil
}

// GetMac returns the cached MAC, fetching getSystemConfig if unknown.
func (d *Device) GetMac(ctx context.Context) (string, error) {
	d.mu.Lock()
	if d.mac != "" {
		mac := d.mac
		d.mu.Unlock()
		return mac, nil
	}
	d.mu.Unlock()

	config, err := d.GetSystemConfig(ctx)
	if err != nil {
		return "", err
	}
	mac, _ := config["mac"].(string)

	d.mu.Lock()
	d.mac = mac
	d.mu.Unlock()
	return mac, nil
}

// GetSupportedScenes ensures the capability is known, then returns the
// sorted scene names available to that device class.
func (d *Device) GetSupportedScenes(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	if d.supportedScene != nil {
		scenesCopy := append([]string(nil), d.supportedScene...)
		d.mu.Unlock()
		return scenesCopy, nil
	}
	d.mu.Unlock()

	capability, err := d.GetCapability(ctx)
	if err != nil {
		return nil, err
	}

	byID := scenes.ForClass(capability.Class.SceneClass())
	names := make([]string, 0, len(byID))
	for _, name := range byID {
		names = append(names, name)
	}
	sort.Strings(names)

	d.mu.Lock()
	d.supportedScene = names
	d.mu.Unlock()
	return names, nil
}

// TurnOn sends setPilot with the given builder's params, or a plain
// {"state": true} when builder is nil.
func (d *Device) TurnOn(ctx context.Context, builder *pilot.Builder) error {
	if builder == nil {
		builder = pilot.New()
	}
	params, err := builder.Build()
	if err != nil {
		return err
	}
	_, err = d.send(ctx, "setPilot", params)
	return err
}

// TurnOff sends setPilot {"state": false}.
func (d *Device) TurnOff(ctx context.Context) error {
	_, err := d.send(ctx, "setPilot", map[string]any{"state": false})
	return err
}

// SetSpeed sends setPilot with a single "speed" key.
func (d *Device) SetSpeed(ctx context.Context, speed int) error {
	_, err := d.send(ctx, "setPilot", map[string]any{"speed": speed})
	return err
}

// SetRatio sends setPilot with a single "ratio" key.
func (d *Device) SetRatio(ctx context.Context, ratio int) error {
	_, err := d.send(ctx, "setPilot", map[string]any{"ratio": ratio})
	return err
}

// FanTurnOn sends fanState:1 plus any provided mode/speed.
func (d *Device) FanTurnOn(ctx context.Context, mode, speed *int) error {
	params := map[string]any{"fanState": 1}
	if mode != nil {
		params["fanMode"] = *mode
	}
	if speed != nil {
		params["fanSpeed"] = *speed
	}
	_, err := d.send(ctx, "setPilot", params)
	return err
}

// FanTurnOff sends fanState:0.
func (d *Device) FanTurnOff(ctx context.Context) error {
	_, err := d.send(ctx, "setPilot", map[string]any{"fanState": 0})
	return err
}

// FanSetState composes setPilot from whichever of mode/speed/reverse are
// non-nil. Sends nothing when all three are absent.
func (d *Device) FanSetState(ctx context.Context, mode, speed, reverse *int) error {
	params := map[string]any{}
	if mode != nil {
		params["fanMode"] = *mode
	}
	if speed != nil {
		params["fanSpeed"] = *speed
	}
	if reverse != nil {
		params["fanRevrs"] = *reverse
	}
	if len(params) == 0 {
		return nil
	}
	_, err := d.send(ctx, "setPilot", params)
	return err
}

// GetSystemConfig sends getSystemConfig and caches the result.
func (d *Device) GetSystemConfig(ctx context.Context) (map[string]any, error) {
	env, err := d.send(ctx, "getSystemConfig", nil)
	if err != nil {
		return nil, err
	}
	config := env.StateObject()

	d.mu.Lock()
	d.systemConfig = config
	d.mu.Unlock()

	return config, nil
}

// SetSystemConfig sends setSystemConfig with kv as its params.
func (d *Device) SetSystemConfig(ctx context.Context, kv map[string]any) error {
	_, err := d.send(ctx, "setSystemConfig", kv)
	return err
}

// GetRoomID returns the device's room/home/group assignment from
// getSystemConfig.
func (d *Device) GetRoomID(ctx context.Context) (groups.RoomAssignment, error) {
	config, err := d.GetSystemConfig(ctx)
	if err != nil {
		return groups.RoomAssignment{}, err
	}
	return groups.FromSystemConfig(config), nil
}

// GetHomeID returns the device's home id, or nil if the device has never
// been assigned to one.
func (d *Device) GetHomeID(ctx context.Context) (*int, error) {
	assignment, err := d.GetRoomID(ctx)
	if err != nil {
		return nil, err
	}
	return assignment.HomeID, nil
}

// SetRoomID assigns the device to the given home/room/group via
// setSystemConfig; nil fields are left unchanged on the device.
func (d *Device) SetRoomID(ctx context.Context, homeID, roomID, groupID *int) error {
	return d.SetSystemConfig(ctx, groups.BuildRoomParams(homeID, roomID, groupID))
}

// GetDeviceInfo fetches getSystemConfig and assembles it into a
// firmware.DeviceInfo (mac, module name, fw version, home/room/type id)
// tagged with this façade's IP.
func (d *Device) GetDeviceInfo(ctx context.Context) (firmware.DeviceInfo, error) {
	config, err := d.GetSystemConfig(ctx)
	if err != nil {
		return firmware.DeviceInfo{}, err
	}
	return firmware.FromSystemConfig(config, d.IP), nil
}

// GetUserConfig sends getUserConfig and returns its result, uncached.
func (d *Device) GetUserConfig(ctx context.Context) (map[string]any, error) {
	env, err := d.send(ctx, "getUserConfig", nil)
	if err != nil {
		return nil, err
	}
	return env.StateObject(), nil
}

// SetUserConfig sends setUserConfig with kv as its params.
func (d *Device) SetUserConfig(ctx context.Context, kv map[string]any) error {
	_, err := d.send(ctx, "setUserConfig", kv)
	return err
}

// Reboot sends the reboot method.
func (d *Device) Reboot(ctx context.Context) error {
	_, err := d.send(ctx, "reboot", nil)
	return err
}

// GetPower returns power consumption in watts, or (0, false) if
// unsupported. Never returns an error: any failure is swallowed and
// reported as power monitoring being unavailable.
func (d *Device) GetPower(ctx context.Context) (float64, bool) {
	env, err := d.send(ctx, "getPower", nil)
	if err != nil {
		d.setPowerMonitored(false)
		return 0, false
	}
	watts, ok := pilot.NewParser(env.StateObject()).Power()
	d.setPowerMonitored(ok)
	if !ok {
		return 0, false
	}
	return watts, true
}

func (d *Device) setPowerMonitored(v bool) {
	d.mu.Lock()
	d.powerMonitored = &v
	d.mu.Unlock()
}

// GetSchedules returns the device's schedule-preset list.
func (d *Device) GetSchedules(ctx context.Context) ([]schedules.Entry, error) {
	env, err := d.send(ctx, "getSchdPset", nil)
	if err != nil {
		return nil, err
	}
	return schedules.ParseScheduleResponse(env.StateObject()), nil
}

// SetSchedule upserts a single schedule entry.
func (d *Device) SetSchedule(ctx context.Context, entry schedules.Entry) error {
	_, err := d.send(ctx, "setSchdPset", schedules.BuildScheduleParams([]schedules.Entry{entry}))
	return err
}

// DeleteSchedule disables the schedule at index by sending en:0.
func (d *Device) DeleteSchedule(ctx context.Context, index int) error {
	params := schedules.BuildScheduleParams([]schedules.Entry{{Index: index, Enabled: false}})
	_, err := d.send(ctx, "setSchdPset", params)
	return err
}

// SendRaw is the passthrough escape hatch for methods this façade doesn't
// wrap directly.
func (d *Device) SendRaw(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	env, err := d.send(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return env.StateObject(), nil
}

// RegisterForPush sends a registration command marking listenerIP/MAC as an
// active push subscriber.
func (d *Device) RegisterForPush(ctx context.Context, listenerIP string) error {
	_, err := d.sendID(ctx, "registration", 105, map[string]any{
		"phoneIp":  listenerIP,
		"phoneMac": registrationListenerMAC,
		"register": true,
	})
	return err
}

// UnregisterPush sends a registration command removing listenerIP/MAC as a
// subscriber.
func (d *Device) UnregisterPush(ctx context.Context, listenerIP string) error {
	_, err := d.sendID(ctx, "registration", 105, map[string]any{
		"phoneIp":  listenerIP,
		"phoneMac": registrationListenerMAC,
		"register": false,
	})
	return err
}

// StartPush ensures the process-wide push manager is running, subscribes
// callback under this device's MAC, registers this host with the device,
// and spawns a keep-alive loop that re-registers every 20s until Close is
// called. Re-entering StartPush without an intervening Close replaces the
// user callback and stacks another manager subscription.
func (d *Device) StartPush(ctx context.Context, callback push.StateCallback) error {
	manager := push.Get()
	if !manager.IsRunning() {
		if err := manager.Start(); err != nil {
			return err
		}
	}

	mac, err := d.GetMac(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.pushCallback = callback
	d.mu.Unlock()

	manager.Subscribe(mac, d.onPushUpdate)

	if err := d.registerPushQuiet(ctx); err != nil {
		// Registration failures are logged by the caller's transport layer;
		// the keep-alive loop will retry on its own schedule.
		_ = err
	}

	keepAliveCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	d.mu.Lock()
	prevCancel, prevDone := d.pushCancel, d.pushDone
	d.pushCancel = cancel
	d.pushDone = done
	d.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	go d.pushKeepAlive(keepAliveCtx, done)
	return nil
}

func (d *Device) onPushUpdate(p *pilot.Parser) {
	d.mu.Lock()
	d.state = p
	callback := d.pushCallback
	d.mu.Unlock()

	if callback != nil {
		callback(p)
	}
}

func (d *Device) registerPushQuiet(ctx context.Context) error {
	return d.RegisterForPush(ctx, d.localIP())
}

func (d *Device) pushKeepAlive(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(pushKeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = d.registerPushQuiet(ctx)
		}
	}
}

// localIP resolves the source address the kernel would pick to reach this
// device, by connecting a UDP socket and reading its bound local address.
// Falls back to "0.0.0.0" on any failure.
func (d *Device) localIP() string {
	conn, err := net.Dial("udp4", net.JoinHostPort(d.IP, portString(d.Port)))
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "0.0.0.0"
	}
	return local.IP.String()
}

// Close cancels the push keep-alive task (awaiting its exit) and closes the
// transport iff owned. Idempotent; never returns an error to the caller
// that can't already be ignored safely.
func (d *Device) Close() error {
	d.mu.Lock()
	cancel := d.pushCancel
	done := d.pushDone
	d.pushCancel = nil
	d.pushDone = nil
	ownsClient := d.ownsClient
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	if ownsClient {
		return d.client.Close()
	}
	return nil
}

// Diagnostics assembles a snapshot of this device's caches for debugging.
func (d *Device) Diagnostics() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()

	diag := map[string]any{
		"ip": d.IP,
	}
	if d.mac != "" {
		diag["mac"] = d.mac
	}
	if d.powerMonitored != nil {
		diag["power_monitoring"] = *d.powerMonitored
	}
	if d.capability != nil {
		diag["bulb_type"] = string(d.capability.Class)
		diag["module_name"] = d.capability.Name
		diag["fw_version"] = d.capability.FWVersion
	}
	if d.systemConfig != nil {
		diag["system_config"] = d.systemConfig
	}
	if d.state != nil {
		diag["state"] = spew.Sprintf("%+v", d.state.Raw())
	}
	return diag
}

func asNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

func portString(p int) string {
	return strconv.Itoa(p)
}
