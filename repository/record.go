// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/heusalagroup/hgmatrix/lib/ref"
	"github.com/heusalagroup/hgmatrix/messaging"
)

// decodeEnvelope validates a record state event's content and returns
// the raw payload and its version. The data field must be a JSON
// object and the version a positive integer; anything else is a
// validation error, never a zero value.
func decodeEnvelope(content json.RawMessage) (json.RawMessage, int64, error) {
	var envelope struct {
		Data    json.RawMessage `json:"data"`
		Version json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if !isJSONObject(envelope.Data) {
		return nil, 0, fmt.Errorf("%w: data field is not a JSON object", ErrMalformedRecord)
	}
	version, err := parseVersion(envelope.Version)
	if err != nil {
		return nil, 0, err
	}
	return envelope.Data, version, nil
}

// parseVersion accepts only a bare positive JSON integer. Floats,
// strings, null, and absence all fail: a record whose version cannot
// be trusted cannot be safely incremented.
func parseVersion(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: version field missing", ErrBadVersion)
	}
	// json.Number happily decodes a quoted numeric string ("5"), so
	// require a bare number token before handing off to the decoder.
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || (trimmed[0] != '-' && (trimmed[0] < '0' || trimmed[0] > '9')) {
		return 0, fmt.Errorf("%w: version %s is not a number", ErrBadVersion, raw)
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var number json.Number
	if err := decoder.Decode(&number); err != nil {
		return 0, fmt.Errorf("%w: version %s is not a number", ErrBadVersion, raw)
	}
	version, err := number.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: version %s is not an integer", ErrBadVersion, number)
	}
	if version <= 0 {
		return 0, fmt.Errorf("%w: version %d is not positive", ErrBadVersion, version)
	}
	return version, nil
}

// encodeEnvelope serializes a payload into the record wire shape at
// the given version. Payload types that do not serialize to a JSON
// object are rejected up front so that a malformed record can never
// be written.
func encodeEnvelope(data any, version int64) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("repository: encoding record payload: %w", err)
	}
	if !isJSONObject(raw) {
		return nil, fmt.Errorf("%w: payload must serialize to a JSON object", ErrMalformedRecord)
	}
	return map[string]any{
		"data":    json.RawMessage(raw),
		"version": version,
	}, nil
}

func isJSONObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b == '{'
		}
	}
	return false
}

// RecordRoomRequest builds the createRoom request that seeds a new
// private record room with its initial state event. Exposed so that
// provisioning tools can create record rooms without going through a
// Repository.
func RecordRoomRequest(eventType ref.EventType, stateKey string, content any) messaging.CreateRoomRequest {
	return messaging.CreateRoomRequest{
		Visibility: "private",
		Preset:     messaging.PresetPrivateChat,
		InitialState: []messaging.StateEvent{{
			Type:     eventType,
			StateKey: stateKey,
			Content:  content,
		}},
	}
}
