// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

// Package dispatch provides a topic-keyed subscriber registry with
// broadcast-on-fire semantics.
//
// A Registry fans a fired value out to every callback subscribed to
// the topic at fire time. Subscriptions are removed through the cancel
// function returned by Subscribe, or automatically after the first
// delivery for SubscribeOnce. Close drops every subscription so no
// callback fires after teardown.
//
// The sync engine uses a Registry to deliver decoded protocol events
// to live subscribers; the session gate uses SubscribeOnce for its
// one-shot readiness notification, where arbitrarily many waiters
// must all resume on a single Fire.
package dispatch

import "sync"

// Registry fans out values to subscribers keyed by topic. The zero
// value is not usable; create with NewRegistry. Safe for concurrent
// use.
type Registry[T any] struct {
	mu     sync.Mutex
	closed bool
	nextID int
	topics map[string]map[int]*subscriber[T]
}

type subscriber[T any] struct {
	fn   func(T)
	once bool
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		topics: make(map[string]map[int]*subscriber[T]),
	}
}

// Subscribe registers fn for every Fire on topic. The returned cancel
// function removes the subscription; it is idempotent and safe to
// call after Close.
func (r *Registry[T]) Subscribe(topic string, fn func(T)) (cancel func()) {
	return r.add(topic, fn, false)
}

// SubscribeOnce registers fn for the next Fire on topic only. The
// subscription is removed before fn runs, so a re-entrant Fire cannot
// deliver twice. The returned cancel function removes the
// subscription if it has not fired yet.
func (r *Registry[T]) SubscribeOnce(topic string, fn func(T)) (cancel func()) {
	return r.add(topic, fn, true)
}

func (r *Registry[T]) add(topic string, fn func(T), once bool) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return func() {}
	}

	id := r.nextID
	r.nextID++

	subs := r.topics[topic]
	if subs == nil {
		subs = make(map[int]*subscriber[T])
		r.topics[topic] = subs
	}
	subs[id] = &subscriber[T]{fn: fn, once: once}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if subs, ok := r.topics[topic]; ok {
			delete(subs, id)
		}
	}
}

// Fire delivers value to every subscriber of topic. One-shot
// subscribers are removed before their callback runs. Callbacks are
// invoked synchronously in the caller's goroutine, outside the
// registry lock, so a callback may subscribe or cancel without
// deadlocking. Delivery order across subscribers is unspecified.
func (r *Registry[T]) Fire(topic string, value T) {
	r.mu.Lock()
	subs := r.topics[topic]
	toCall := make([]func(T), 0, len(subs))
	for id, sub := range subs {
		toCall = append(toCall, sub.fn)
		if sub.once {
			delete(subs, id)
		}
	}
	r.mu.Unlock()

	for _, fn := range toCall {
		fn(value)
	}
}

// SubscriberCount returns the number of active subscriptions on
// topic. Diagnostic only.
func (r *Registry[T]) SubscriberCount(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics[topic])
}

// Close removes all subscriptions and rejects new ones. Fire becomes
// a no-op. Idempotent.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.topics = make(map[string]map[int]*subscriber[T])
}
