// Package devices detects a WiZ device's capabilities from its opaque
// module-name string, as reported by getSystemConfig's "moduleName" field.
package devices

import (
	"strings"

	"github.com/wizgo/wizgo/scenes"
)

// Class is the closed variant set of WiZ device classes. Its values match
// scenes.DeviceClass so a Class can be converted with scenes.DeviceClass(c).
type Class string

const (
	RGB    Class = "RGB"
	TW     Class = "TW"
	DW     Class = "DW"
	SOCKET Class = "SOCKET"
	FANDIM Class = "FANDIM"
)

// SceneClass converts c to the type scenes.ForClass expects.
func (c Class) SceneClass() scenes.DeviceClass {
	return scenes.DeviceClass(c)
}

// KelvinRange is the color-temperature range a device can produce.
type KelvinRange struct {
	Min int
	Max int
}

// Features bundles the feature flags a device advertises.
type Features struct {
	Color         bool
	Brightness    bool
	ColorTemp     bool
	Effect        bool
	DualHead      bool
	Fan           bool
	FanReverse    bool
	FanBreezeMode bool
}

// Capability is the full descriptor produced by Detect: device class,
// display name, feature flags, optional Kelvin range, firmware version, and
// white-channel count.
//
// Invariants (spec §3): class SOCKET implies all feature flags false; class
// FANDIM implies Fan && FanReverse && FanBreezeMode; class TW/DW implies
// Color == false; a device-reported whiteRange always overrides the
// class-default Kelvin range.
type Capability struct {
	Class       Class
	Name        string
	Features    Features
	KelvinRange *KelvinRange
	FWVersion   string
	WhiteChannels int
	FanSpeedRange *KelvinRange
}

type patternEntry struct {
	pattern  string
	class    Class
	features Features
	kelvin   *KelvinRange
}

// modulePatterns is scanned in order on the uppercased module name; the
// first match wins. Order is load-bearing: FANDIM and SOCKET — the two
// classes with no color/temp overlap — are checked first, and RGBWW must
// precede RGBW must precede RGB. The SHTW/DHTW/SHRGB/DHRGB entries come
// after the bare TW and RGB patterns, which match every name those entries
// would match, so they are never selected.
var modulePatterns = []patternEntry{
	{
		pattern: "FANDIM",
		class:   FANDIM,
		features: Features{
			Brightness: true, Effect: true,
			Fan: true, FanReverse: true, FanBreezeMode: true,
		},
	},
	{
		pattern:  "SOCKET",
		class:    SOCKET,
		features: Features{},
	},
	{
		pattern:  "RGBWW",
		class:    RGB,
		features: Features{Color: true, Brightness: true, ColorTemp: true, Effect: true},
		kelvin:   &KelvinRange{2200, 6500},
	},
	{
		pattern:  "RGBW",
		class:    RGB,
		features: Features{Color: true, Brightness: true, ColorTemp: true, Effect: true},
		kelvin:   &KelvinRange{2200, 6500},
	},
	{
		pattern:  "RGB",
		class:    RGB,
		features: Features{Color: true, Brightness: true, ColorTemp: false, Effect: true},
	},
	{
		pattern:  "TW",
		class:    TW,
		features: Features{Brightness: true, ColorTemp: true, Effect: true},
		kelvin:   &KelvinRange{2700, 6500},
	},
	{
		pattern:  "DW",
		class:    DW,
		features: Features{Brightness: true, Effect: true},
	},
	{
		pattern:  "SHTW",
		class:    TW,
		features: Features{Brightness: true, ColorTemp: true, Effect: true},
		kelvin:   &KelvinRange{2700, 6500},
	},
	{
		pattern:  "DHTW",
		class:    TW,
		features: Features{Brightness: true, ColorTemp: true, Effect: true},
		kelvin:   &KelvinRange{2700, 6500},
	},
	{
		pattern:  "SHRGB",
		class:    RGB,
		features: Features{Color: true, Brightness: true, ColorTemp: true, Effect: true},
		kelvin:   &KelvinRange{2200, 6500},
	},
	{
		pattern:  "DHRGB",
		class:    RGB,
		features: Features{Color: true, Brightness: true, ColorTemp: true, Effect: true},
		kelvin:   &KelvinRange{2200, 6500},
	},
}

// knownModules holds exact module-name matches with known Kelvin ranges,
// checked before the pattern table.
var knownModules = map[string]struct {
	class  Class
	kelvin *KelvinRange
}{
	"ESP01_SHRGB1C_31":    {RGB, &KelvinRange{2200, 6500}},
	"ESP01_SHRGB3_01ABI":  {RGB, &KelvinRange{2200, 6500}},
	"ESP01_SHDW1_31":      {DW, nil},
	"ESP01_SHTW1C_31":     {TW, &KelvinRange{2700, 6500}},
	"ESP03_SHRGB1C_01":    {RGB, &KelvinRange{2200, 6500}},
	"ESP03_SHRGB1W_01ABI": {RGB, &KelvinRange{2200, 6500}},
	"ESP03_SHRGBP_31ABI":  {RGB, &KelvinRange{2200, 6500}},
	"ESP06_SHDW1_01":      {DW, nil},
	"ESP06_SHDW9_01":      {DW, nil},
	"ESP06_SHTW1_01":      {TW, &KelvinRange{2700, 6500}},
	"ESP06_SHTW9_01":      {TW, &KelvinRange{2700, 6500}},
	"ESP14_SHRGB1C_01ABI": {RGB, &KelvinRange{2200, 6500}},
	"ESP15_SHRGB1C_01ABI": {RGB, &KelvinRange{2200, 6500}},
	"ESP17_SHRGB9W_01ABI": {RGB, &KelvinRange{2200, 6500}},
	"ESP20_SHRGB9W_01ABI": {RGB, &KelvinRange{2200, 6500}},
	"ESP21_SHTW9_01":      {TW, &KelvinRange{2700, 6500}},
	"ESP56_SHTW11_01":     {TW, &KelvinRange{2700, 6500}},
}

// WhiteRange is the device-reported "whiteRange" object from
// getSystemConfig, when present, overriding the table-derived Kelvin range.
type WhiteRange struct {
	Min int
	Max int
}

// Detect parses moduleName to produce a Capability. whiteRange, if non-nil,
// overrides the class-derived Kelvin range (step 4 of the spec algorithm).
// Detect is pure: identical inputs always produce identical outputs.
func Detect(moduleName string, whiteRange *WhiteRange) Capability {
	nameUpper := strings.ToUpper(moduleName)

	var result Capability
	if known, ok := knownModules[moduleName]; ok {
		result = Capability{
			Class:       known.class,
			Name:        moduleName,
			Features:    defaultFeatures(known.class),
			KelvinRange: known.kelvin,
		}
	} else if entry, ok := matchPattern(nameUpper); ok {
		result = Capability{
			Class:       entry.class,
			Name:        moduleName,
			Features:    entry.features,
			KelvinRange: entry.kelvin,
		}
	} else {
		result = Capability{
			Class:       RGB,
			Name:        moduleName,
			Features:    Features{Color: true, Brightness: true, ColorTemp: true, Effect: true},
			KelvinRange: &KelvinRange{2200, 6500},
		}
	}

	if whiteRange != nil {
		result.KelvinRange = &KelvinRange{Min: whiteRange.Min, Max: whiteRange.Max}
	}

	switch {
	case strings.Contains(nameUpper, "RGBWW"):
		result.WhiteChannels = 2
	case strings.Contains(nameUpper, "RGBW"):
		result.WhiteChannels = 1
	}

	return result
}

func matchPattern(nameUpper string) (patternEntry, bool) {
	for _, entry := range modulePatterns {
		if strings.Contains(nameUpper, entry.pattern) {
			return entry, true
		}
	}
	return patternEntry{}, false
}

func defaultFeatures(class Class) Features {
	switch class {
	case RGB:
		return Features{Color: true, Brightness: true, ColorTemp: true, Effect: true}
	case TW:
		return Features{Brightness: true, ColorTemp: true, Effect: true}
	case DW:
		return Features{Brightness: true, Effect: true}
	case SOCKET:
		return Features{}
	case FANDIM:
		return Features{Brightness: true, Effect: true, Fan: true, FanReverse: true, FanBreezeMode: true}
	default:
		return Features{}
	}
}
