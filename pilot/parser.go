package pilot

import (
	"github.com/wizgo/wizgo/scenes"
)

// Parser reads typed state out of the "result" or "params" object of a
// getPilot/syncPilot envelope.
type Parser struct {
	raw map[string]any
}

// NewParser wraps raw, the decoded result/params object.
func NewParser(raw map[string]any) *Parser {
	if raw == nil {
		raw = map[string]any{}
	}
	return &Parser{raw: raw}
}

// Raw returns the underlying decoded object.
func (p *Parser) Raw() map[string]any {
	return p.raw
}

// State returns the on/off state, defaulting to false when absent.
func (p *Parser) State() bool {
	v, _ := p.raw["state"].(bool)
	return v
}

// Brightness returns dimming, or (0, false) when absent.
func (p *Parser) Brightness() (int, bool) {
	return asInt(p.raw["dimming"])
}

// ColorTemp returns temp in Kelvin, or (0, false) when absent.
func (p *Parser) ColorTemp() (int, bool) {
	return asInt(p.raw["temp"])
}

// RGB returns (r, g, b); ok is false unless all three are present.
func (p *Parser) RGB() (r, g, b int, ok bool) {
	r, okR := asInt(p.raw["r"])
	g, okG := asInt(p.raw["g"])
	b, okB := asInt(p.raw["b"])
	if !okR || !okG || !okB {
		return 0, 0, 0, false
	}
	return r, g, b, true
}

// RGBW returns (r, g, b, w); requires r/g/b present, w defaults to 0.
func (p *Parser) RGBW() (r, g, b, w int, ok bool) {
	r, g, b, ok = p.RGB()
	if !ok {
		return 0, 0, 0, 0, false
	}
	w, _ = asInt(p.raw["w"])
	return r, g, b, w, true
}

// RGBWW returns (r, g, b, w, c); requires r/g/b present, w/c default to 0.
func (p *Parser) RGBWW() (r, g, b, w, c int, ok bool) {
	r, g, b, ok = p.RGB()
	if !ok {
		return 0, 0, 0, 0, 0, false
	}
	w, _ = asInt(p.raw["w"])
	c, _ = asInt(p.raw["c"])
	return r, g, b, w, c, true
}

// SceneID returns the active scene ID; a stored value of 0 is coerced to
// absent, matching firmware's convention for "no scene active".
func (p *Parser) SceneID() (int, bool) {
	id, ok := asInt(p.raw["sceneId"])
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// SceneName returns the active scene's display name via the scene registry.
func (p *Parser) SceneName() (string, bool) {
	id, ok := p.SceneID()
	if !ok {
		return "", false
	}
	name := scenes.NameFromID(id)
	return name, name != ""
}

// Power returns power consumption in watts, preferring "pc" over "w".
func (p *Parser) Power() (float64, bool) {
	if v, ok := asFloat(p.raw["pc"]); ok {
		return v, true
	}
	return asFloat(p.raw["w"])
}

// RSSI returns WiFi signal strength.
func (p *Parser) RSSI() (int, bool) {
	return asInt(p.raw["rssi"])
}

// Speed returns effect speed.
func (p *Parser) Speed() (int, bool) {
	return asInt(p.raw["speed"])
}

// Ratio returns the dual-head ratio.
func (p *Parser) Ratio() (int, bool) {
	return asInt(p.raw["ratio"])
}

// MAC returns the device MAC address as reported in the response.
func (p *Parser) MAC() (string, bool) {
	v, ok := p.raw["mac"].(string)
	return v, ok
}

// Source returns the data source identifier ("src").
func (p *Parser) Source() (string, bool) {
	v, ok := p.raw["src"].(string)
	return v, ok
}

// FanState returns the fan on/off state, defaulting to 0 when absent.
func (p *Parser) FanState() int {
	v, _ := asInt(p.raw["fanState"])
	return v
}

// FanSpeed returns the fan speed, defaulting to 0 when absent.
func (p *Parser) FanSpeed() int {
	v, _ := asInt(p.raw["fanSpeed"])
	return v
}

// FanMode returns the fan mode, defaulting to 1 (normal) when absent.
func (p *Parser) FanMode() int {
	v, ok := asInt(p.raw["fanMode"])
	if !ok {
		return 1
	}
	return v
}

// FanReverse returns the fan reverse state, defaulting to 0 when absent.
func (p *Parser) FanReverse() int {
	v, _ := asInt(p.raw["fanRevrs"])
	return v
}

// asInt coerces a decoded JSON number (float64 after encoding/json, or int
// when constructed in-process/tests) to int.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
