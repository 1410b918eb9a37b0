// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// Package syncer maintains a continuous, resumable view of homeserver
// state through the Matrix /sync long-poll endpoint.
//
// A [Client] owns one sync cursor (the opaque next_batch continuation
// token), one pending timer, and an in-flight flag. Start performs a
// zero-timeout initial sync to anchor the cursor, then schedules
// incremental polls at a fixed wait interval. Each successful poll
// advances the cursor; the next poll's since parameter is exactly the
// previous poll's next_batch, forming a strictly sequential chain.
//
// At most one poll is ever in flight per Client: if the timer fires
// while a poll is still outstanding, the cycle is logged and skipped,
// and the outstanding poll reschedules on completion. Transport
// failures are logged and absorbed: the cursor is left unchanged and
// the loop retries at the same fixed interval indefinitely, so
// delivery is at-least-once and subscribers must tolerate
// re-received events. The loop ends only when the Start context is
// cancelled or Close is called.
//
// Decoded events are flattened into (event, room) pairs, global
// presence events first, then per-room state and timeline in server
// order, and fanned out synchronously to OnEvent subscribers.
// Cross-room ordering follows Go map iteration and is deliberately
// unspecified, matching the protocol.
package syncer
