// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// Package repository stores versioned records in Matrix room state.
//
// Each record lives in its own private room, serialized as a single
// state event under a configurable (event type, state key) pair. The
// event content has a fixed envelope:
//
//	{"data": <JSON object>, "version": <positive integer>}
//
// The room ID doubles as the record identity, so records are created
// by creating a room (with the initial envelope at version 1) and
// updated by overwriting the state event with the version incremented.
// The homeserver keeps the full event history; the repository only
// ever reads current state.
//
// Repository is generic over the record payload type. List reads a
// full-state snapshot and preserves the server's room order; Find
// targets a single room. Records whose envelope fails validation
// surface as ErrMalformedRecord or ErrBadVersion rather than being
// silently skipped on targeted reads.
//
// Deletion is not supported: Matrix rooms cannot be destroyed by a
// regular client, only left, so Delete returns ErrUnsupported without
// touching the network. Secondary-index lookups are likewise
// unsupported.
package repository
