// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// Package service holds the shared-session gate that the rest of the
// process authenticates through.
//
// A [Gate] owns the login lifecycle for one homeserver identity.
// Exactly one login may run at a time; a second Login while one is in
// flight fails fast with [ErrLoginInProgress] instead of queuing.
// Components that need an authenticated session call Session, which
// returns immediately once the gate is initialized and otherwise
// blocks on a one-shot notification until initialization completes or
// the caller's context is done. Any number of goroutines may wait
// concurrently; a single successful Initialize resumes them all.
package service
