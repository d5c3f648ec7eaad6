// Package groups implements WiZ native room/home assignment helpers: plain
// record extraction from and param-building for getSystemConfig/
// setSystemConfig.
package groups

// RoomAssignment is a device's room, home, and group membership.
type RoomAssignment struct {
	HomeID  *int
	RoomID  *int
	GroupID *int
}

// FromSystemConfig extracts a RoomAssignment from a getSystemConfig result.
func FromSystemConfig(config map[string]any) RoomAssignment {
	return RoomAssignment{
		HomeID:  intField(config, "homeId"),
		RoomID:  intField(config, "roomId"),
		GroupID: intField(config, "groupId"),
	}
}

// BuildRoomParams builds setSystemConfig params assigning a device to the
// given home/room/group; nil fields are omitted.
func BuildRoomParams(homeID, roomID, groupID *int) map[string]any {
	params := map[string]any{}
	if homeID != nil {
		params["homeId"] = *homeID
	}
	if roomID != nil {
		params["roomId"] = *roomID
	}
	if groupID != nil {
		params["groupId"] = *groupID
	}
	return params
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
