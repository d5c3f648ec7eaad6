// Package pilot implements the setPilot command codec (Builder) and the
// getPilot/syncPilot response codec (Parser).
package pilot

import (
	"github.com/wizgo/wizgo/scenes"
	"github.com/wizgo/wizgo/wizerr"
)

// Params is the validated params object for a setPilot request.
type Params map[string]any

// Builder constructs the params object for a setPilot command. New returns
// a builder with state:true and no mode selected (the zero value has
// state:false and builds a plain turn-off command); configure it with the
// mode and control methods, then call Build to validate and clamp.
//
// Mode precedence, first match wins (spec §4.4): scene > rgbww > rgbw >
// explicit r/g/b > colortemp. Brightness, speed and ratio are orthogonal to
// the selected mode and always applied when set.
type Builder struct {
	state bool

	scene      any // int or string, nil if unset
	hasScene   bool
	rgbww      []int
	rgbw       []int
	r, g, b    *int
	warmWhite  *int
	coldWhite  *int
	colorTemp  *int
	brightness *int
	speed      *int
	ratio      *int
}

// New returns a Builder for a turn-on command. Call Off() for a plain
// {"state": false} command.
func New() *Builder {
	return &Builder{state: true}
}

// Off returns a builder for a plain turn-off command. Any other
// configuration added to that builder is ignored by Build, matching
// the spec's rule that state=false drops every other parameter.
func Off() *Builder {
	return &Builder{state: false}
}

// Scene selects a scene by integer ID or case-insensitive name (int or
// string). Highest-priority mode.
func (b *Builder) Scene(scene any) *Builder {
	b.scene = scene
	b.hasScene = true
	return b
}

// RGBWW selects 5-channel color (r, g, b, warm_white, cold_white). Accepts
// 3 to 5 values; w and c are sent only when their values are given.
func (b *Builder) RGBWW(values ...int) *Builder {
	b.rgbww = values
	return b
}

// RGBW selects 4-channel color (r, g, b, warm_white). Accepts 3 or 4
// values; w is sent only when a fourth value is given.
func (b *Builder) RGBW(values ...int) *Builder {
	b.rgbw = values
	return b
}

// RGB selects plain color. Any of r/g/b triggers color mode; the other two
// default to 0 if unset via this call (call RGB once with all three).
func (b *Builder) RGB(r, g, bl int) *Builder {
	b.r, b.g, b.b = &r, &g, &bl
	return b
}

// WarmWhite sets the `w` channel alongside an RGB call.
func (b *Builder) WarmWhite(v int) *Builder {
	b.warmWhite = &v
	return b
}

// ColdWhite sets the `c` channel alongside an RGB call.
func (b *Builder) ColdWhite(v int) *Builder {
	b.coldWhite = &v
	return b
}

// ColorTemp selects Kelvin color temperature mode. Lowest-priority mode.
func (b *Builder) ColorTemp(kelvin int) *Builder {
	b.colorTemp = &kelvin
	return b
}

// Brightness sets dimming, independent of mode.
func (b *Builder) Brightness(v int) *Builder {
	b.brightness = &v
	return b
}

// Speed sets effect speed, independent of mode.
func (b *Builder) Speed(v int) *Builder {
	b.speed = &v
	return b
}

// Ratio sets the dual-head ratio, independent of mode.
func (b *Builder) Ratio(v int) *Builder {
	b.ratio = &v
	return b
}

// Build validates and clamps the configured parameters, returning the
// params object for a setPilot request. Returns wizerr.InvalidParameter if
// an unknown scene or an undersized rgbw/rgbww tuple was given.
func (b *Builder) Build() (Params, error) {
	if !b.state {
		return Params{"state": false}, nil
	}

	params := Params{"state": true}

	switch {
	case b.hasScene:
		id, err := resolveScene(b.scene)
		if err != nil {
			return nil, err
		}
		params["sceneId"] = id
	case b.rgbww != nil:
		if err := setRGBWW(params, b.rgbww); err != nil {
			return nil, err
		}
	case b.rgbw != nil:
		if err := setRGBW(params, b.rgbw); err != nil {
			return nil, err
		}
	case b.r != nil || b.g != nil || b.b != nil:
		params["r"] = clamp(deref(b.r), 0, 255)
		params["g"] = clamp(deref(b.g), 0, 255)
		params["b"] = clamp(deref(b.b), 0, 255)
		if b.warmWhite != nil {
			params["w"] = clamp(*b.warmWhite, 0, 255)
		}
		if b.coldWhite != nil {
			params["c"] = clamp(*b.coldWhite, 0, 255)
		}
	case b.colorTemp != nil:
		params["temp"] = clamp(*b.colorTemp, 1000, 10000)
	}

	if b.brightness != nil {
		params["dimming"] = clamp(*b.brightness, 10, 255)
	}
	if b.speed != nil {
		params["speed"] = clamp(*b.speed, 1, 200)
	}
	if b.ratio != nil {
		params["ratio"] = clamp(*b.ratio, 0, 100)
	}

	return params, nil
}

func resolveScene(scene any) (int, error) {
	switch v := scene.(type) {
	case int:
		if !scenes.Known(v) {
			return 0, wizerr.Newf(wizerr.InvalidParameter, "unknown scene id %d", v)
		}
		return v, nil
	case string:
		id := scenes.IDFromName(v)
		if id == scenes.NotFound {
			return 0, wizerr.Newf(wizerr.InvalidParameter, "unknown scene name %q", v)
		}
		return id, nil
	default:
		return 0, wizerr.Newf(wizerr.InvalidParameter, "scene must be int or string, got %T", scene)
	}
}

func setRGBW(params Params, v []int) error {
	if len(v) < 3 {
		return wizerr.Newf(wizerr.InvalidParameter, "rgbw must have at least 3 values, got %d", len(v))
	}
	params["r"] = clamp(v[0], 0, 255)
	params["g"] = clamp(v[1], 0, 255)
	params["b"] = clamp(v[2], 0, 255)
	if len(v) > 3 {
		params["w"] = clamp(v[3], 0, 255)
	}
	return nil
}

func setRGBWW(params Params, v []int) error {
	if len(v) < 3 {
		return wizerr.Newf(wizerr.InvalidParameter, "rgbww must have at least 3 values, got %d", len(v))
	}
	params["r"] = clamp(v[0], 0, 255)
	params["g"] = clamp(v[1], 0, 255)
	params["b"] = clamp(v[2], 0, 255)
	if len(v) > 3 {
		params["w"] = clamp(v[3], 0, 255)
	}
	if len(v) > 4 {
		params["c"] = clamp(v[4], 0, 255)
	}
	return nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
