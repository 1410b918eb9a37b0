// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// Package ref provides strongly typed, immutable identifiers for the
// Matrix client-server API: room IDs, user IDs, and event types.
//
// Identifier strings arriving from the homeserver are parsed into
// these types at the protocol boundary. All constructors validate
// their inputs and return errors for invalid identifiers; once
// constructed, a ref is immutable.
//
// JSON marshaling uses the canonical Matrix identifier form via
// encoding.TextMarshaler, so identifiers used as JSON object keys
// (such as the room IDs in a /sync response) validate automatically
// on decode.
package ref
