// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/heusalagroup/hgmatrix/lib/clock"
	"github.com/heusalagroup/hgmatrix/lib/dispatch"
	"github.com/heusalagroup/hgmatrix/messaging"
)

// ErrClosed is returned by Start after Close has been called.
var ErrClosed = errors.New("syncer: client is closed")

// topicEvent is the single dispatch topic all decoded events fan out on.
const topicEvent = "event"

// Session is the slice of the messaging session the sync loop needs.
// *messaging.Session satisfies it; tests substitute fakes.
type Session interface {
	Sync(ctx context.Context, options messaging.SyncOptions) (*messaging.SyncResponse, error)
}

// Config carries the tunables for a sync [Client]. The zero value is
// usable: every field has a default.
type Config struct {
	// Filter is an inline JSON filter (or server-side filter ID)
	// passed on every sync request. Empty means no filter.
	Filter string

	// Timeout is the server-side long-poll hold for incremental
	// syncs. Defaults to 30 seconds.
	Timeout time.Duration

	// WaitInterval is the fixed pause between the completion of one
	// poll cycle and the start of the next. Defaults to one second.
	WaitInterval time.Duration

	// Clock supplies timers. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives poll lifecycle events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Client runs the long-poll sync loop against one session and fans the
// decoded events out to subscribers. Create with [New], start with
// [Start], and stop with [Close]. All methods are safe for concurrent
// use.
type Client struct {
	session      Session
	filter       string
	timeout      time.Duration
	waitInterval time.Duration
	clock        clock.Clock
	logger       *slog.Logger
	events       *dispatch.Registry[messaging.Event]

	mu      sync.Mutex
	ctx     context.Context
	cursor  string
	timer   *clock.Timer
	syncing bool
	closed  bool
}

// New builds a Client around the session. The loop does not run until
// Start is called.
func New(session Session, config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.WaitInterval <= 0 {
		config.WaitInterval = time.Second
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		session:      session,
		filter:       config.Filter,
		timeout:      config.Timeout,
		waitInterval: config.WaitInterval,
		clock:        config.Clock,
		logger:       config.Logger,
		events:       dispatch.NewRegistry[messaging.Event](),
	}
}

// OnEvent registers fn for every event decoded from future poll
// cycles. The returned function cancels the subscription and is
// idempotent. Callbacks run synchronously on the poll goroutine, so
// slow handlers delay the loop.
func (c *Client) OnEvent(fn func(messaging.Event)) func() {
	return c.events.Subscribe(topicEvent, fn)
}

// Cursor returns the current continuation token. Empty until the
// initial sync completes.
func (c *Client) Cursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Syncing reports whether a poll request is in flight right now.
func (c *Client) Syncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

// Start anchors the cursor with a zero-timeout initial sync and
// schedules the first incremental poll. The initial response is used
// only for its next_batch; its events are not dispatched. Start is
// idempotent: calling it again discards any pending timer, re-anchors
// the cursor, and resumes the loop. ctx bounds the initial sync and
// every poll the loop issues afterwards; cancelling it stops the loop
// once the in-flight poll returns.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopTimerLocked()
	c.mu.Unlock()

	response, err := c.session.Sync(ctx, messaging.SyncOptions{
		Filter:     c.filter,
		SetTimeout: true,
		Timeout:    0,
	})
	if err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.ctx = ctx
	c.cursor = response.NextBatch
	c.scheduleLocked()
	c.logger.Info("sync loop started",
		"cursor", c.cursor,
		"wait_interval", c.waitInterval)
	return nil
}

// Close stops the timer, drops all subscribers, and makes the Client
// permanently inert. An in-flight poll finishes but its result is not
// dispatched and no further poll is scheduled.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.mu.Unlock()
	c.events.Close()
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) scheduleLocked() {
	c.stopTimerLocked()
	c.timer = c.clock.AfterFunc(c.waitInterval, c.pollOnce)
}

// pollOnce is one timer-driven cycle: long-poll from the current
// cursor, advance it on success, dispatch the batch, and schedule the
// next cycle. If a previous cycle is still in flight the cycle is
// skipped entirely; the in-flight cycle owns rescheduling, so the
// chain never forks.
func (c *Client) pollOnce() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.syncing {
		c.logger.Warn("poll cycle skipped, previous poll still in flight",
			"cursor", c.cursor)
		c.mu.Unlock()
		return
	}
	c.syncing = true
	since := c.cursor
	ctx := c.ctx
	c.mu.Unlock()

	response, err := c.session.Sync(ctx, messaging.SyncOptions{
		Since:      since,
		Filter:     c.filter,
		SetTimeout: true,
		Timeout:    int(c.timeout / time.Millisecond),
	})
	if err != nil {
		if ctx.Err() != nil {
			// The Start context is gone, so every further poll would
			// fail the same way. Stop the loop; a later Start resumes
			// it with a fresh context.
			c.logger.Info("sync loop stopped",
				"cause", ctx.Err(),
				"cursor", since)
			c.mu.Lock()
			c.syncing = false
			c.mu.Unlock()
			return
		}
		// Cursor stays put; the next cycle retries from the last
		// batch the server acknowledged.
		c.logger.Error("sync poll failed",
			"error", err,
			"since", since)
	} else {
		c.mu.Lock()
		closed := c.closed
		if !closed {
			c.cursor = response.NextBatch
		}
		c.mu.Unlock()
		if !closed {
			c.dispatch(response)
		}
	}

	c.mu.Lock()
	c.syncing = false
	if !c.closed {
		c.scheduleLocked()
	}
	c.mu.Unlock()
}

// dispatch flattens one sync response into individual events and fires
// them at subscribers. Presence events carry a zero room ID. Within a
// room, state precedes timeline; room-to-room order is unspecified.
func (c *Client) dispatch(response *messaging.SyncResponse) {
	for _, event := range response.Presence.Events {
		c.events.Fire(topicEvent, event)
	}
	for roomID, room := range response.Rooms.Join {
		for _, event := range room.State.Events {
			event.RoomID = roomID
			c.events.Fire(topicEvent, event)
		}
		for _, event := range room.Timeline.Events {
			event.RoomID = roomID
			c.events.Fire(topicEvent, event)
		}
	}
	for roomID, room := range response.Rooms.Invite {
		for _, event := range room.InviteState.Events {
			event.RoomID = roomID
			c.events.Fire(topicEvent, event)
		}
	}
	for roomID, room := range response.Rooms.Leave {
		for _, event := range room.State.Events {
			event.RoomID = roomID
			c.events.Fire(topicEvent, event)
		}
		for _, event := range room.Timeline.Events {
			event.RoomID = roomID
			c.events.Fire(topicEvent, event)
		}
	}
}
