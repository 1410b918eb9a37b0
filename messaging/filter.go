// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package messaging

import (
	"encoding/json"

	"github.com/heusalagroup/hgmatrix/lib/ref"
)

// SyncFilter configures the inline JSON filter for /sync requests.
// The zero value suppresses nothing: all event types from all rooms.
//
// Presence and account data are always filtered out: nothing in this
// module consumes them, and carrying them would only inflate
// long-poll responses. Callers that do want global presence events
// set IncludePresence.
type SyncFilter struct {
	// Rooms restricts the response to these rooms. Empty means all
	// joined rooms.
	Rooms []ref.RoomID

	// StateTypes restricts state events to these event types. Empty
	// means all state types.
	StateTypes []ref.EventType

	// StateLimit caps the number of state events per room. Zero means
	// no explicit limit (server default).
	StateLimit int

	// TimelineTypes restricts timeline events to these event types.
	// Empty means all timeline types.
	TimelineTypes []ref.EventType

	// TimelineLimit caps the number of timeline events per room per
	// response. Zero means no explicit limit.
	TimelineLimit int

	// ExcludeTimeline suppresses timeline events entirely. Used by
	// snapshot reads, which want current state and no history.
	ExcludeTimeline bool

	// IncludePresence keeps global presence events in the response.
	IncludePresence bool
}

// BuildFilter constructs the inline JSON filter string for /sync.
func BuildFilter(filter SyncFilter) string {
	roomFilter := map[string]any{
		"ephemeral":    map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}

	if len(filter.Rooms) > 0 {
		rooms := make([]string, len(filter.Rooms))
		for i, roomID := range filter.Rooms {
			rooms[i] = roomID.String()
		}
		roomFilter["rooms"] = rooms
	}

	state := map[string]any{}
	if len(filter.StateTypes) > 0 {
		state["types"] = eventTypeStrings(filter.StateTypes)
	}
	if filter.StateLimit > 0 {
		state["limit"] = filter.StateLimit
	}
	if len(state) > 0 {
		roomFilter["state"] = state
	}

	if filter.ExcludeTimeline {
		roomFilter["timeline"] = map[string]any{"types": []string{}, "limit": 0}
	} else {
		timeline := map[string]any{}
		if len(filter.TimelineTypes) > 0 {
			timeline["types"] = eventTypeStrings(filter.TimelineTypes)
		}
		if filter.TimelineLimit > 0 {
			timeline["limit"] = filter.TimelineLimit
		}
		if len(timeline) > 0 {
			roomFilter["timeline"] = timeline
		}
	}

	top := map[string]any{
		"room":         roomFilter,
		"account_data": map[string]any{"types": []string{}},
	}
	if !filter.IncludePresence {
		top["presence"] = map[string]any{"types": []string{}}
	}

	data, _ := json.Marshal(top)
	return string(data)
}

func eventTypeStrings(types []ref.EventType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
