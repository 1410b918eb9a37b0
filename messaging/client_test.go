// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/heusalagroup/hgmatrix/lib/ref"
)

func mustRoomID(t *testing.T, raw string) ref.RoomID {
	t.Helper()
	roomID, err := ref.ParseRoomID(raw)
	if err != nil {
		t.Fatalf("ParseRoomID(%q) failed: %v", raw, err)
	}
	return roomID
}

func mustUserID(t *testing.T, raw string) ref.UserID {
	t.Helper()
	userID, err := ref.ParseUserID(raw)
	if err != nil {
		t.Fatalf("ParseUserID(%q) failed: %v", raw, err)
	}
	return userID
}

// newTestSession creates a Client and Session pointing at a test server.
func newTestSession(t *testing.T, handler http.Handler) *Session {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client.SessionFromToken(mustUserID(t, "@test:local"), "test-token")
}

func assertAuth(t *testing.T, request *http.Request, token string) {
	t.Helper()
	if got := request.Header.Get("Authorization"); got != "Bearer "+token {
		t.Errorf("unexpected Authorization header: %q", got)
	}
}

func writeJSON(writer http.ResponseWriter, v any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(v)
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/login" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if request.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", request.Method)
		}

		var body LoginRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Type != "m.login.password" {
			t.Errorf("unexpected login type: %s", body.Type)
		}
		if body.User != "app" || body.Password != "secret" {
			t.Errorf("unexpected credentials: %s/%s", body.User, body.Password)
		}

		writeJSON(writer, map[string]string{
			"user_id":      "@app:local",
			"access_token": "tok-1",
			"device_id":    "DEV1",
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	session, err := client.Login(context.Background(), "app", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.UserID().String() != "@app:local" {
		t.Errorf("unexpected user ID: %s", session.UserID())
	}
	if session.DeviceID() != "DEV1" {
		t.Errorf("unexpected device ID: %s", session.DeviceID())
	}
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusForbidden)
		writeJSON(writer, map[string]string{"errcode": "M_FORBIDDEN", "error": "Invalid password"})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Login(context.Background(), "app", "wrong")
	if !IsMatrixError(err, ErrCodeForbidden) {
		t.Errorf("expected M_FORBIDDEN, got %v", err)
	}
}

func TestWhoAmI(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/account/whoami" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, map[string]string{"user_id": "@test:local", "device_id": "DEV1"})
	}))

	userID, err := session.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if userID.String() != "@test:local" {
		t.Errorf("unexpected user ID: %s", userID)
	}
}

func TestCreateRoom(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/createRoom" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}

		var body CreateRoomRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Preset != PresetPrivateChat {
			t.Errorf("unexpected preset: %s", body.Preset)
		}
		if len(body.InitialState) != 1 || body.InitialState[0].Type != "fi.hg.record" {
			t.Errorf("unexpected initial state: %+v", body.InitialState)
		}

		writeJSON(writer, map[string]string{"room_id": "!room1:local"})
	}))

	response, err := session.CreateRoom(context.Background(), CreateRoomRequest{
		Preset: PresetPrivateChat,
		InitialState: []StateEvent{
			{Type: "fi.hg.record", StateKey: "", Content: map[string]any{"version": 1}},
		},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if response.RoomID.String() != "!room1:local" {
		t.Errorf("unexpected room ID: %s", response.RoomID)
	}
}

func TestSendStateEvent(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPut {
			t.Errorf("unexpected method: %s", request.Method)
		}
		wantPath := "/_matrix/client/v3/rooms/%21room1:local/state/fi.hg.record/"
		if request.URL.EscapedPath() != wantPath {
			t.Errorf("unexpected path: %s", request.URL.EscapedPath())
		}
		writeJSON(writer, map[string]string{"event_id": "$evt1"})
	}))

	eventID, err := session.SendStateEvent(context.Background(),
		mustRoomID(t, "!room1:local"), "fi.hg.record", "",
		map[string]any{"data": map[string]any{}, "version": 1})
	if err != nil {
		t.Fatalf("SendStateEvent failed: %v", err)
	}
	if eventID != "$evt1" {
		t.Errorf("unexpected event ID: %s", eventID)
	}
}

func TestGetStateEventNotFound(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		writeJSON(writer, map[string]string{"errcode": "M_NOT_FOUND", "error": "No state"})
	}))

	_, err := session.GetStateEvent(context.Background(), mustRoomID(t, "!room1:local"), "fi.hg.record", "")
	if !IsMatrixError(err, ErrCodeNotFound) {
		t.Errorf("expected M_NOT_FOUND, got %v", err)
	}

	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) || matrixErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 status in error, got %v", err)
	}
}

func TestJoinRoom(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", request.Method)
		}
		if got := request.URL.EscapedPath(); got != "/_matrix/client/v3/join/%21room1:local" {
			t.Errorf("unexpected path: %s", got)
		}
		writeJSON(writer, map[string]string{"room_id": "!room1:local"})
	}))

	roomID, err := session.JoinRoom(context.Background(), mustRoomID(t, "!room1:local"))
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if roomID.String() != "!room1:local" {
		t.Errorf("unexpected room ID: %s", roomID)
	}
}

func TestInviteUser(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if got := request.URL.EscapedPath(); got != "/_matrix/client/v3/rooms/%21room1:local/invite" {
			t.Errorf("unexpected path: %s", got)
		}

		var body InviteRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.UserID.String() != "@friend:local" {
			t.Errorf("unexpected user ID in body: %s", body.UserID)
		}
		writeJSON(writer, map[string]any{})
	}))

	err := session.InviteUser(context.Background(), mustRoomID(t, "!room1:local"), mustUserID(t, "@friend:local"))
	if err != nil {
		t.Fatalf("InviteUser failed: %v", err)
	}
}

func TestLeaveThenForgetRoom(t *testing.T) {
	var paths []string
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", request.Method)
		}
		paths = append(paths, request.URL.EscapedPath())
		writeJSON(writer, map[string]any{})
	}))

	roomID := mustRoomID(t, "!room1:local")
	if err := session.LeaveRoom(context.Background(), roomID); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}
	if err := session.ForgetRoom(context.Background(), roomID); err != nil {
		t.Fatalf("ForgetRoom failed: %v", err)
	}

	want := []string{
		"/_matrix/client/v3/rooms/%21room1:local/leave",
		"/_matrix/client/v3/rooms/%21room1:local/forget",
	}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("unexpected request paths: %v", paths)
	}
}

func TestJoinedRooms(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", request.Method)
		}
		if request.URL.Path != "/_matrix/client/v3/joined_rooms" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, map[string]any{"joined_rooms": []string{"!a:local", "!b:local"}})
	}))

	rooms, err := session.JoinedRooms(context.Background())
	if err != nil {
		t.Fatalf("JoinedRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].String() != "!a:local" || rooms[1].String() != "!b:local" {
		t.Errorf("unexpected rooms: %v", rooms)
	}
}

func TestSendMessage(t *testing.T) {
	var path string
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPut {
			t.Errorf("unexpected method: %s", request.Method)
		}
		path = request.URL.EscapedPath()

		var body MessageContent
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.MsgType != "m.text" || body.Body != "hello" {
			t.Errorf("unexpected message content: %+v", body)
		}
		writeJSON(writer, map[string]string{"event_id": "$msg1"})
	}))

	eventID, err := session.SendMessage(context.Background(), mustRoomID(t, "!room1:local"), NewTextMessage("hello"))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if eventID != "$msg1" {
		t.Errorf("unexpected event ID: %s", eventID)
	}

	// PUT to the send endpoint with a transaction ID suffix keeps
	// retried sends idempotent.
	wantPrefix := "/_matrix/client/v3/rooms/%21room1:local/send/m.room.message/hgmatrix-"
	if !strings.HasPrefix(path, wantPrefix) {
		t.Errorf("unexpected send path: %s", path)
	}
}

func TestGetRoomState(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if got := request.URL.EscapedPath(); got != "/_matrix/client/v3/rooms/%21room1:local/state" {
			t.Errorf("unexpected path: %s", got)
		}
		writeJSON(writer, []map[string]any{
			{"type": "m.room.name", "state_key": "", "content": map[string]any{"name": "Ops"}},
			{"type": "fi.hg.record", "state_key": "", "content": map[string]any{"version": 2}},
		})
	}))

	events, err := session.GetRoomState(context.Background(), mustRoomID(t, "!room1:local"))
	if err != nil {
		t.Fatalf("GetRoomState failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	if events[0].Type != "m.room.name" || events[1].Type != "fi.hg.record" {
		t.Errorf("unexpected event types: %s, %s", events[0].Type, events[1].Type)
	}
	if !events[1].IsState() {
		t.Error("state event not recognized as state")
	}
}

func TestSyncQueryParameters(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		if query.Get("since") != "s42" {
			t.Errorf("since = %q", query.Get("since"))
		}
		if query.Get("timeout") != "30000" {
			t.Errorf("timeout = %q", query.Get("timeout"))
		}
		if query.Get("filter") == "" {
			t.Error("filter missing")
		}
		if query.Has("full_state") {
			t.Error("full_state sent on incremental sync")
		}
		writeJSON(writer, map[string]any{"next_batch": "s43"})
	}))

	response, err := session.Sync(context.Background(), SyncOptions{
		Since:      "s42",
		Timeout:    30000,
		SetTimeout: true,
		Filter:     `{"room":{}}`,
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if response.NextBatch != "s43" {
		t.Errorf("next_batch = %q", response.NextBatch)
	}
}

func TestSyncDecodesRoomSections(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writeJSON(writer, map[string]any{
			"next_batch": "s2",
			"rooms": map[string]any{
				"join": map[string]any{
					"!a:local": map[string]any{
						"state": map[string]any{
							"events": []map[string]any{
								{"type": "fi.hg.record", "state_key": "", "content": map[string]any{"version": 1}},
							},
						},
						"timeline": map[string]any{
							"events": []map[string]any{
								{"type": "m.room.message", "content": map[string]any{"body": "hi"}},
							},
						},
					},
				},
				"invite": map[string]any{
					"!b:local": map[string]any{"invite_state": map[string]any{"events": []any{}}},
				},
			},
		})
	}))

	response, err := session.Sync(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	joined, ok := response.Rooms.Join[mustRoomID(t, "!a:local")]
	if !ok {
		t.Fatal("joined room missing from response")
	}
	if len(joined.State.Events) != 1 || len(joined.Timeline.Events) != 1 {
		t.Errorf("unexpected event counts: state=%d timeline=%d",
			len(joined.State.Events), len(joined.Timeline.Events))
	}
	stateEvent := joined.State.Events[0]
	if !stateEvent.IsState() {
		t.Error("state event not recognized as state")
	}
	if joined.Timeline.Events[0].IsState() {
		t.Error("timeline message recognized as state")
	}
	if len(response.Rooms.Invite) != 1 {
		t.Errorf("invite count = %d", len(response.Rooms.Invite))
	}
}

func TestNonJSONErrorFailsLoud(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		writer.Write([]byte("upstream exploded"))
	}))

	_, err := session.WhoAmI(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		t.Errorf("non-JSON error decoded as MatrixError: %v", matrixErr)
	}
}
