// Package schedules implements on-device schedule-preset record building and
// parsing for the getSchdPset/setSchdPset methods.
package schedules

// dayNames indexes bit 0 (Monday) through bit 6 (Sunday).
var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// EveryDay is the days bitmask with all seven days set.
const EveryDay = 0b1111111

// Entry is a single on-device schedule slot.
type Entry struct {
	Index     int
	Enabled   bool
	Days      int // bitmask, bit 0 = Monday ... bit 6 = Sunday
	Hour      int
	Minute    int
	SceneID   *int
	Dimming   *int
	ColorTemp *int
}

// DayList returns the human-readable names of the days this entry is
// active on, in Monday-first order.
func (e Entry) DayList() []string {
	var out []string
	for i, name := range dayNames {
		if e.Days&(1<<uint(i)) != 0 {
			out = append(out, name)
		}
	}
	return out
}

// ToProtocolDict converts e to the shape setSchdPset expects.
func (e Entry) ToProtocolDict() map[string]any {
	enabled := 0
	if e.Enabled {
		enabled = 1
	}
	entry := map[string]any{
		"i":  e.Index,
		"en": enabled,
		"d":  e.Days,
		"h":  e.Hour,
		"m":  e.Minute,
	}
	if e.SceneID != nil {
		entry["sceneId"] = *e.SceneID
	}
	if e.Dimming != nil {
		entry["dimming"] = *e.Dimming
	}
	if e.ColorTemp != nil {
		entry["temp"] = *e.ColorTemp
	}
	return entry
}

// FromProtocolDict parses a single getSchdPset list entry.
func FromProtocolDict(data map[string]any) Entry {
	return Entry{
		Index:     intOr(data, "i", 0),
		Enabled:   intOr(data, "en", 1) != 0,
		Days:      intOr(data, "d", EveryDay),
		Hour:      intOr(data, "h", 0),
		Minute:    intOr(data, "m", 0),
		SceneID:   intPtr(data, "sceneId"),
		Dimming:   intPtr(data, "dimming"),
		ColorTemp: intPtr(data, "temp"),
	}
}

// ParseScheduleResponse parses a getSchdPset result's schdPsetList into
// Entry values.
func ParseScheduleResponse(result map[string]any) []Entry {
	raw, _ := result["schdPsetList"].([]any)
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			entries = append(entries, FromProtocolDict(m))
		}
	}
	return entries
}

// BuildScheduleParams builds setSchdPset params from entries.
func BuildScheduleParams(entries []Entry) map[string]any {
	list := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.ToProtocolDict())
	}
	return map[string]any{"schdPsetList": list}
}

func intOr(data map[string]any, key string, fallback int) int {
	if v, ok := intPtrValue(data, key); ok {
		return v
	}
	return fallback
}

func intPtr(data map[string]any, key string) *int {
	if v, ok := intPtrValue(data, key); ok {
		return &v
	}
	return nil
}

func intPtrValue(data map[string]any, key string) (int, bool) {
	switch n := data[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
