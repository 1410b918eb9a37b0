// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestStateSnapshotQueryParameters(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		query := request.URL.Query()
		if query.Get("full_state") != "true" {
			t.Errorf("full_state = %q, want true", query.Get("full_state"))
		}
		if query.Get("timeout") != "0" {
			t.Errorf("timeout = %q, want 0", query.Get("timeout"))
		}
		if query.Has("since") {
			t.Error("snapshot read must not carry a since token")
		}
		writeJSON(writer, map[string]any{"next_batch": "s1"})
	}))

	rooms, err := session.StateSnapshot(context.Background(), `{"room":{}}`)
	if err != nil {
		t.Fatalf("StateSnapshot failed: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected no rooms, got %d", len(rooms))
	}
}

func TestStateSnapshotPreservesRoomOrder(t *testing.T) {
	// Hand-built JSON: the room keys must come back in document
	// order, which map-based decoding would destroy.
	var body string
	{
		body = `{"next_batch":"s1","rooms":{"join":{`
		for i := 0; i < 8; i++ {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`"!room%d:local":{"state":{"events":[{"type":"fi.hg.record","state_key":"","content":{"version":%d}}]}}`, i, i+1)
		}
		body += `}}}`
	}

	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(body))
	}))

	rooms, err := session.StateSnapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("StateSnapshot failed: %v", err)
	}
	if len(rooms) != 8 {
		t.Fatalf("got %d rooms, want 8", len(rooms))
	}
	for i, room := range rooms {
		want := fmt.Sprintf("!room%d:local", i)
		if room.RoomID.String() != want {
			t.Errorf("room %d = %s, want %s", i, room.RoomID, want)
		}
		if len(room.State) != 1 {
			t.Errorf("room %d has %d state events, want 1", i, len(room.State))
			continue
		}
		if room.State[0].RoomID != room.RoomID {
			t.Errorf("room %d state event not annotated with room ID", i)
		}
	}
}

func TestStateSnapshotRejectsMalformedRooms(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"next_batch":"s1","rooms":{"join":{"not-a-room-id":{}}}}`))
	}))

	if _, err := session.StateSnapshot(context.Background(), ""); err == nil {
		t.Error("StateSnapshot accepted an invalid room ID key")
	}
}
