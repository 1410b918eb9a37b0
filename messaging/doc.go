// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// Package messaging wraps the Matrix client-server HTTP API.
//
// The package provides two core types. [Client] is an unauthenticated
// client holding the homeserver URL and HTTP transport; its Login
// method performs the m.login.password exchange and returns an
// authenticated [Session]. Sessions are lightweight (a pointer to the
// parent Client plus an access token) and share the Client's
// connection pool.
//
// [Session] covers the protocol surface the rest of this module
// builds on: room lifecycle (create, join, invite, leave, forget),
// event sending (idempotent PUT with transaction IDs), state events
// (get/set individual events, full room state), incremental /sync
// with long-polling, and the full-state snapshot read used by the
// record repository ([Session.StateSnapshot]), which preserves the
// server's room ordering.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status
// code. [IsMatrixError] tests for a specific error code. Request URLs
// are built by string concatenation rather than url.URL to avoid
// double-encoding of path segments that contain URL-encoded
// characters.
//
// Event content is carried as json.RawMessage: this layer moves
// payloads, it does not interpret them. Typed decoding happens in the
// consumers (the repository's record codec, application subscribers).
package messaging
