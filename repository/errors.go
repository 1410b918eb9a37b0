// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package repository

import "errors"

var (
	// ErrNotFound is returned by Find when the room exists but carries
	// no record state event, or the room itself is unknown.
	ErrNotFound = errors.New("repository: record not found")

	// ErrMalformedRecord is returned when a record's data field is
	// missing or not a JSON object.
	ErrMalformedRecord = errors.New("repository: malformed record payload")

	// ErrBadVersion is returned when a record's version field is
	// missing, not an integer, or not positive.
	ErrBadVersion = errors.New("repository: invalid record version")

	// ErrUnsupported is returned by operations the Matrix state
	// backend cannot express, currently Delete and FindByIndex.
	ErrUnsupported = errors.New("repository: operation not supported")
)
