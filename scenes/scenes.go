// Package scenes holds the immutable, process-global registry of WiZ scene
// IDs and names, and the per-device-class availability lists.
package scenes

import "sort"

// Class classifies a scene by behaviour.
type Class string

const (
	Dynamic     Class = "dynamic"
	StaticWhite Class = "static_white"
	Music       Class = "music"
)

// NotFound is returned by IDFromName when the name is unknown. Scene IDs are
// always >= 1, so 0 doubles as the not-found sentinel.
const NotFound = 0

// All 36 standard scenes plus Rhythm (1000). Case is preserved on lookup;
// the lookup key is lower-cased.
var names = map[int]string{
	1: "Ocean", 2: "Romance", 3: "Sunset", 4: "Party", 5: "Fireplace",
	6: "Cozy", 7: "Forest", 8: "Pastel colors", 9: "Wake-up", 10: "Bedtime",
	11: "Warm white", 12: "Daylight", 13: "Cool white", 14: "Night light",
	15: "Focus", 16: "Relax", 17: "True colors", 18: "TV time",
	19: "Plantgrowth", 20: "Spring", 21: "Summer", 22: "Fall",
	23: "Deep dive", 24: "Jungle", 25: "Mojito", 26: "Club",
	27: "Christmas", 28: "Halloween", 29: "Candlelight", 30: "Golden white",
	31: "Pulse", 32: "Steampunk", 33: "Diwali", 34: "White", 35: "Alarm",
	36: "Snowy sky", 1000: "Rhythm",
}

var classes = map[int]Class{
	1: Dynamic, 2: Dynamic, 3: Dynamic, 4: Dynamic, 5: Dynamic,
	6: Dynamic, 7: Dynamic, 8: Dynamic, 9: Dynamic, 10: Dynamic,
	11: StaticWhite, 12: StaticWhite, 13: StaticWhite, 14: StaticWhite,
	15: Dynamic, 16: Dynamic, 17: Dynamic, 18: Dynamic, 19: Dynamic,
	20: Dynamic, 21: Dynamic, 22: Dynamic, 23: Dynamic, 24: Dynamic,
	25: Dynamic, 26: Dynamic, 27: Dynamic, 28: Dynamic, 29: Dynamic,
	30: StaticWhite, 31: Dynamic, 32: Dynamic, 33: Dynamic,
	34: StaticWhite, 35: Dynamic, 36: Dynamic, 1000: Music,
}

// rgb sees every scene. Computed once at init from the names map.
var rgbIDs []int

// tw is the curated subset tunable-white devices support.
var twIDs = []int{6, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 30, 34, 35, 1000}

// dw is the curated subset dimmable-white devices support.
var dwIDs = []int{9, 10, 13, 14, 29, 30, 31, 32}

var lowerToID map[string]int

func init() {
	rgbIDs = make([]int, 0, len(names))
	lowerToID = make(map[string]int, len(names))
	for id, name := range names {
		rgbIDs = append(rgbIDs, id)
		lowerToID[lower(name)] = id
	}
	sort.Ints(rgbIDs)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// IDFromName looks up a scene ID by its case-insensitive name. Returns
// NotFound if unrecognized.
func IDFromName(name string) int {
	id, ok := lowerToID[lower(name)]
	if !ok {
		return NotFound
	}
	return id
}

// NameFromID looks up a scene's display name by ID. Returns "" if
// unrecognized.
func NameFromID(id int) string {
	return names[id]
}

// Known reports whether id is a registered scene.
func Known(id int) bool {
	_, ok := names[id]
	return ok
}

// ClassOf reports the behavioural class of a scene. The zero value is
// returned for an unknown id.
func ClassOf(id int) Class {
	return classes[id]
}

// DeviceClass is the closed variant set of WiZ device classes. Defined here
// (rather than imported from package devices) because devices imports
// scenes, so scenes importing devices would create an import cycle; package
// devices declares devices.Class with the same underlying string values and
// converts to this type with Class.SceneClass.
type DeviceClass string

const (
	ClassRGB    DeviceClass = "RGB"
	ClassTW     DeviceClass = "TW"
	ClassDW     DeviceClass = "DW"
	ClassSocket DeviceClass = "SOCKET"
	ClassFandim DeviceClass = "FANDIM"
)

// ForClass returns the scene ID->name map available to a device of the
// given class, sorted by ID when iterated via ForClassIDs. FANDIM is
// treated as RGB.
func ForClass(class DeviceClass) map[int]string {
	var ids []int
	switch class {
	case ClassRGB, ClassFandim:
		ids = rgbIDs
	case ClassTW:
		ids = twIDs
	case ClassDW:
		ids = dwIDs
	case ClassSocket:
		return map[int]string{}
	default:
		ids = rgbIDs
	}
	out := make(map[int]string, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out[id] = name
		}
	}
	return out
}

// ForClassIDs returns the same set as ForClass but as a slice sorted by ID.
func ForClassIDs(class DeviceClass) []int {
	m := ForClass(class)
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
