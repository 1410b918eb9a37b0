// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package repository

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEnvelopeVersionTokens(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
		wantErr error
	}{
		{"bare integer", `{"data": {"a": 1}, "version": 7}`, 7, nil},
		{"leading whitespace", `{"data": {}, "version":   12}`, 12, nil},
		{"quoted integer", `{"data": {}, "version": "5"}`, 0, ErrBadVersion},
		{"quoted with spaces", `{"data": {}, "version": " 5 "}`, 0, ErrBadVersion},
		{"boolean", `{"data": {}, "version": true}`, 0, ErrBadVersion},
		{"null", `{"data": {}, "version": null}`, 0, ErrBadVersion},
		{"object", `{"data": {}, "version": {"n": 5}}`, 0, ErrBadVersion},
		{"float", `{"data": {}, "version": 1.5}`, 0, ErrBadVersion},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, version, err := decodeEnvelope(json.RawMessage(test.content))
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("decodeEnvelope(%s) = version %d, err %v, want %v",
						test.content, version, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeEnvelope(%s): %v", test.content, err)
			}
			if version != test.want {
				t.Errorf("decodeEnvelope(%s) version = %d, want %d", test.content, version, test.want)
			}
		})
	}
}
