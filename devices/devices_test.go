package devices_test

import (
	"testing"

	"github.com/wizgo/wizgo/devices"
)

func TestDetect_ExactMatch(t *testing.T) {
	cap := devices.Detect("ESP01_SHRGB3_01ABI", nil)
	if cap.Name != "ESP01_SHRGB3_01ABI" {
		t.Fatalf("Name = %q", cap.Name)
	}
	if cap.Class != devices.RGB {
		t.Fatalf("Class = %v, want RGB", cap.Class)
	}
	if cap.KelvinRange == nil || *cap.KelvinRange != (devices.KelvinRange{Min: 2200, Max: 6500}) {
		t.Fatalf("KelvinRange = %+v", cap.KelvinRange)
	}
}

func TestDetect_ExactMatch_WhiteRangeOverride(t *testing.T) {
	base := devices.Detect("ESP01_SHRGB3_01ABI", nil)
	overridden := devices.Detect("ESP01_SHRGB3_01ABI", &devices.WhiteRange{Min: 2700, Max: 5000})

	if overridden.KelvinRange == nil || *overridden.KelvinRange != (devices.KelvinRange{Min: 2700, Max: 5000}) {
		t.Fatalf("KelvinRange = %+v, want overridden", overridden.KelvinRange)
	}
	// Nothing else changes.
	overridden.KelvinRange = base.KelvinRange
	if overridden != base {
		t.Fatalf("white_range override touched more than KelvinRange: %+v vs %+v", overridden, base)
	}
}

func TestDetect_PatternOrder_RGBWWBeforeRGBW(t *testing.T) {
	cap := devices.Detect("ESP99_RGBWW_01", nil)
	if cap.Class != devices.RGB || cap.WhiteChannels != 2 {
		t.Fatalf("RGBWW detection = %+v", cap)
	}

	cap = devices.Detect("ESP99_RGBW_01", nil)
	if cap.Class != devices.RGB || cap.WhiteChannels != 1 {
		t.Fatalf("RGBW detection = %+v", cap)
	}
}

func TestDetect_FANDIM(t *testing.T) {
	cap := devices.Detect("ESP25_FANDIM_01", nil)
	if cap.Class != devices.FANDIM {
		t.Fatalf("Class = %v, want FANDIM", cap.Class)
	}
	if !cap.Features.Fan || !cap.Features.FanReverse || !cap.Features.FanBreezeMode {
		t.Fatalf("FANDIM features incomplete: %+v", cap.Features)
	}
}

func TestDetect_SOCKET(t *testing.T) {
	cap := devices.Detect("ESP10_SOCKET_01", nil)
	if cap.Class != devices.SOCKET {
		t.Fatalf("Class = %v, want SOCKET", cap.Class)
	}
	if cap.Features != (devices.Features{}) {
		t.Fatalf("SOCKET features should be all-false, got %+v", cap.Features)
	}
}

func TestDetect_Unknown_DefaultsToRGB(t *testing.T) {
	cap := devices.Detect("TOTALLY_UNKNOWN_MODULE", nil)
	if cap.Class != devices.RGB {
		t.Fatalf("Class = %v, want RGB default", cap.Class)
	}
	if cap.KelvinRange == nil || *cap.KelvinRange != (devices.KelvinRange{Min: 2200, Max: 6500}) {
		t.Fatalf("KelvinRange = %+v, want default", cap.KelvinRange)
	}
	if !cap.Features.Color || !cap.Features.ColorTemp || !cap.Features.Effect {
		t.Fatalf("default features incomplete: %+v", cap.Features)
	}
}

func TestDetect_S5_FromSpec(t *testing.T) {
	cap := devices.Detect("ESP01_SHRGB3_01ABI", &devices.WhiteRange{Min: 2700, Max: 5000})
	if cap.Class != devices.RGB {
		t.Fatalf("Class = %v, want RGB", cap.Class)
	}
	if *cap.KelvinRange != (devices.KelvinRange{Min: 2700, Max: 5000}) {
		t.Fatalf("KelvinRange = %+v", cap.KelvinRange)
	}
	if cap.WhiteChannels != 0 {
		t.Fatalf("WhiteChannels = %d, want 0 (no RGBW/RGBWW substring)", cap.WhiteChannels)
	}
	if !cap.Features.Color || !cap.Features.ColorTemp || !cap.Features.Effect {
		t.Fatalf("features incomplete: %+v", cap.Features)
	}
}

func TestDetect_Pure(t *testing.T) {
	a := devices.Detect("ESP56_SHTW11_01", nil)
	b := devices.Detect("ESP56_SHTW11_01", nil)
	if a != b {
		t.Fatalf("Detect not pure: %+v vs %+v", a, b)
	}
}
