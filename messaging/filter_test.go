// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package messaging

import (
	"encoding/json"
	"testing"

	"github.com/heusalagroup/hgmatrix/lib/ref"
)

func decodeFilter(t *testing.T, raw string) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("filter is not valid JSON: %v\n%s", err, raw)
	}
	return decoded
}

func TestBuildFilterDefaults(t *testing.T) {
	decoded := decodeFilter(t, BuildFilter(SyncFilter{}))

	presence, ok := decoded["presence"].(map[string]any)
	if !ok {
		t.Fatal("presence section missing")
	}
	types, ok := presence["types"].([]any)
	if !ok || len(types) != 0 {
		t.Errorf("presence types = %v, want empty list", presence["types"])
	}

	room, ok := decoded["room"].(map[string]any)
	if !ok {
		t.Fatal("room section missing")
	}
	if _, hasState := room["state"]; hasState {
		t.Error("default filter must not restrict state")
	}
	if _, hasTimeline := room["timeline"]; hasTimeline {
		t.Error("default filter must not restrict timeline")
	}
}

func TestBuildFilterSnapshotShape(t *testing.T) {
	// The repository's snapshot filter: one state event of one type,
	// no timeline history at all.
	raw := BuildFilter(SyncFilter{
		StateTypes:      []ref.EventType{"fi.hg.record"},
		StateLimit:      1,
		ExcludeTimeline: true,
	})
	decoded := decodeFilter(t, raw)

	room := decoded["room"].(map[string]any)

	state, ok := room["state"].(map[string]any)
	if !ok {
		t.Fatal("state section missing")
	}
	if types := state["types"].([]any); len(types) != 1 || types[0] != "fi.hg.record" {
		t.Errorf("state types = %v", state["types"])
	}
	if limit, _ := state["limit"].(float64); limit != 1 {
		t.Errorf("state limit = %v, want 1", state["limit"])
	}

	timeline, ok := room["timeline"].(map[string]any)
	if !ok {
		t.Fatal("timeline section missing")
	}
	if types := timeline["types"].([]any); len(types) != 0 {
		t.Errorf("timeline types = %v, want empty", timeline["types"])
	}
	if limit, _ := timeline["limit"].(float64); limit != 0 {
		t.Errorf("timeline limit = %v, want 0", timeline["limit"])
	}
}

func TestBuildFilterIncludePresence(t *testing.T) {
	decoded := decodeFilter(t, BuildFilter(SyncFilter{IncludePresence: true}))
	if _, hasPresence := decoded["presence"]; hasPresence {
		t.Error("presence must not be suppressed when IncludePresence is set")
	}
}
