// Package firmware assembles device identification data out of a
// getSystemConfig response.
package firmware

// DeviceInfo is comprehensive identification data for one device, pulled
// from getSystemConfig.
type DeviceInfo struct {
	MAC        string
	ModuleName string
	FWVersion  string
	HomeID     *int
	RoomID     *int
	TypeID     *int
	IP         string
}

// FromSystemConfig builds a DeviceInfo from a decoded getSystemConfig
// result, tagging it with ip (the caller's known device address, since the
// protocol response itself carries no address field).
func FromSystemConfig(config map[string]any, ip string) DeviceInfo {
	return DeviceInfo{
		MAC:        stringField(config, "mac"),
		ModuleName: stringField(config, "moduleName"),
		FWVersion:  stringField(config, "fwVersion"),
		HomeID:     intField(config, "homeId"),
		RoomID:     intField(config, "roomId"),
		TypeID:     intField(config, "typeId"),
		IP:         ip,
	}
}

func stringField(config map[string]any, key string) string {
	v, _ := config[key].(string)
	return v
}

func intField(config map[string]any, key string) *int {
	switch n := config[key].(type) {
	case float64:
		v := int(n)
		return &v
	case int:
		return &n
	default:
		return nil
	}
}
