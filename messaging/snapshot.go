// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/heusalagroup/hgmatrix/lib/ref"
)

// SnapshotRoom holds the current state events of one joined room from
// a full-state snapshot, in the order the server returned them.
type SnapshotRoom struct {
	RoomID ref.RoomID
	State  []Event
}

// StateSnapshot performs a point-in-time full-state /sync read: no
// since token, zero timeout, full_state=true, with the given filter
// restricting what the server includes. It is the read path for
// snapshot-oriented consumers (the record repository), not part of
// the incremental sync chain; the returned next_batch token is
// deliberately not exposed so it cannot be mistaken for a poll
// cursor.
//
// Rooms are returned in the server's insertion order. The generic
// SyncResponse decodes rooms.join into a Go map, which randomizes
// that order, so this path walks the JSON object with a token decoder
// instead.
func (s *Session) StateSnapshot(ctx context.Context, filter string) ([]SnapshotRoom, error) {
	query := url.Values{}
	query.Set("timeout", "0")
	query.Set("full_state", "true")
	if filter != "" {
		query.Set("filter", filter)
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, "/_matrix/client/v3/sync", s.accessToken, nil, query)
	if err != nil {
		return nil, fmt.Errorf("messaging: state snapshot failed: %w", err)
	}

	var envelope struct {
		Rooms struct {
			Join json.RawMessage `json:"join"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse snapshot response: %w", err)
	}

	rooms, err := decodeJoinedRoomsOrdered(envelope.Rooms.Join)
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to parse snapshot rooms: %w", err)
	}
	return rooms, nil
}

// decodeJoinedRoomsOrdered decodes a rooms.join JSON object while
// preserving the key order of the document.
func decodeJoinedRoomsOrdered(raw json.RawMessage) ([]SnapshotRoom, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))

	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("reading rooms.join: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("rooms.join is not a JSON object")
	}

	var rooms []SnapshotRoom
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("reading rooms.join key: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("rooms.join key is not a string: %v", keyToken)
		}
		roomID, err := ref.ParseRoomID(key)
		if err != nil {
			return nil, fmt.Errorf("rooms.join key: %w", err)
		}

		var room JoinedRoom
		if err := decoder.Decode(&room); err != nil {
			return nil, fmt.Errorf("decoding room %s: %w", roomID, err)
		}

		state := make([]Event, 0, len(room.State.Events))
		for _, event := range room.State.Events {
			event.RoomID = roomID
			state = append(state, event)
		}
		rooms = append(rooms, SnapshotRoom{RoomID: roomID, State: state})
	}

	// Consume the closing '}'.
	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("reading rooms.join end: %w", err)
	}

	return rooms, nil
}
