// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// Package clock provides an injectable time abstraction for
// testability.
//
// Production code accepts a Clock interface parameter instead of
// calling time.Now, time.After, time.AfterFunc, or time.Sleep
// directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a deterministic clock that
// advances only when Advance is called, which lets tests drive the
// sync poll loop without real sleeps.
package clock
