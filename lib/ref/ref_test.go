// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package ref

import (
	"encoding/json"
	"testing"
)

func TestParseRoomID(t *testing.T) {
	valid := []string{
		"!abc123:example.com",
		"!x:localhost",
		"!opaque-part:server:8448",
	}
	for _, raw := range valid {
		roomID, err := ParseRoomID(raw)
		if err != nil {
			t.Errorf("ParseRoomID(%q) failed: %v", raw, err)
			continue
		}
		if roomID.String() != raw {
			t.Errorf("ParseRoomID(%q).String() = %q", raw, roomID.String())
		}
		if roomID.IsZero() {
			t.Errorf("ParseRoomID(%q) returned zero value", raw)
		}
	}

	invalid := []string{
		"",
		"abc123:example.com",
		"@abc123:example.com",
		"!abc123",
		"!:example.com",
		"!abc123:",
	}
	for _, raw := range invalid {
		if _, err := ParseRoomID(raw); err == nil {
			t.Errorf("ParseRoomID(%q) succeeded, want error", raw)
		}
	}
}

func TestParseUserID(t *testing.T) {
	userID, err := ParseUserID("@alice:example.com")
	if err != nil {
		t.Fatalf("ParseUserID failed: %v", err)
	}
	if userID.Localpart() != "alice" {
		t.Errorf("Localpart() = %q, want %q", userID.Localpart(), "alice")
	}

	invalid := []string{"", "alice:example.com", "@:example.com", "@alice"}
	for _, raw := range invalid {
		if _, err := ParseUserID(raw); err == nil {
			t.Errorf("ParseUserID(%q) succeeded, want error", raw)
		}
	}
}

func TestRoomIDJSONRoundTrip(t *testing.T) {
	roomID, err := ParseRoomID("!abc:example.com")
	if err != nil {
		t.Fatalf("ParseRoomID failed: %v", err)
	}

	encoded, err := json.Marshal(roomID)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(encoded) != `"!abc:example.com"` {
		t.Errorf("Marshal = %s", encoded)
	}

	var decoded RoomID
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != roomID {
		t.Errorf("round trip mismatch: %v != %v", decoded, roomID)
	}
}

func TestRoomIDAsJSONMapKey(t *testing.T) {
	// /sync responses use room IDs as object keys; decoding must
	// validate them via TextUnmarshaler.
	var byRoom map[RoomID]int
	if err := json.Unmarshal([]byte(`{"!a:server": 1, "!b:server": 2}`), &byRoom); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(byRoom) != 2 {
		t.Errorf("decoded %d entries, want 2", len(byRoom))
	}

	if err := json.Unmarshal([]byte(`{"not-a-room": 1}`), &byRoom); err == nil {
		t.Error("decoding invalid room ID key succeeded, want error")
	}
}
