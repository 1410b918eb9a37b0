// Copyright 2026 Heusala Group Oy
// SPDX-License-Identifier: MIT

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/heusalagroup/hgmatrix/lib/ref"
	"github.com/heusalagroup/hgmatrix/messaging"
)

// SessionSource supplies the authenticated session for each
// operation. *service.Gate satisfies it; operations block in
// Session until the source is ready.
type SessionSource interface {
	Session(ctx context.Context) (*messaging.Session, error)
}

// SessionSourceFunc adapts a function to the SessionSource interface.
type SessionSourceFunc func(ctx context.Context) (*messaging.Session, error)

// Session calls f.
func (f SessionSourceFunc) Session(ctx context.Context) (*messaging.Session, error) {
	return f(ctx)
}

// Options configures a Repository.
type Options struct {
	// EventType is the state event type records are stored under.
	// Required; use an application-namespaced type, not m.*.
	EventType ref.EventType

	// StateKey is the state key records are stored under. The empty
	// string is a valid (and the conventional) choice.
	StateKey string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Entry is one stored record: its identity (the backing room), its
// version, and its decoded payload.
type Entry[T any] struct {
	ID      ref.RoomID
	Version int64
	Data    T
}

// Repository stores records of type T, one private room per record.
// Versions are assigned by the repository: 1 on create, incremented
// by one on every update. All methods are safe for concurrent use;
// Update offers no cross-process compare-and-swap, so concurrent
// writers to the same record follow last-write-wins on the data and
// may coalesce version increments.
type Repository[T any] struct {
	source    SessionSource
	eventType ref.EventType
	stateKey  string
	logger    *slog.Logger
}

// New builds a Repository over the given session source.
func New[T any](source SessionSource, options Options) (*Repository[T], error) {
	if source == nil {
		return nil, fmt.Errorf("repository: session source is required")
	}
	if options.EventType == "" {
		return nil, fmt.Errorf("repository: event type is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository[T]{
		source:    source,
		eventType: options.EventType,
		stateKey:  options.StateKey,
		logger:    logger,
	}, nil
}

// List returns every readable record, in the order the server listed
// the backing rooms. Rooms without a record event, and records that
// fail envelope validation, are skipped with a warning; a single bad
// record must not take down enumeration of the rest. If the same
// record ID somehow appears more than once, the entry with the
// highest version wins and keeps the first occurrence's position.
func (r *Repository[T]) List(ctx context.Context) ([]Entry[T], error) {
	session, err := r.source.Session(ctx)
	if err != nil {
		return nil, err
	}

	filter := messaging.BuildFilter(messaging.SyncFilter{
		StateTypes:      []ref.EventType{r.eventType},
		StateLimit:      1,
		ExcludeTimeline: true,
	})
	rooms, err := session.StateSnapshot(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("repository: listing records: %w", err)
	}

	var entries []Entry[T]
	position := make(map[ref.RoomID]int)
	for _, room := range rooms {
		entry, ok := r.decodeRoom(room)
		if !ok {
			continue
		}
		if i, seen := position[entry.ID]; seen {
			if entry.Version > entries[i].Version {
				entries[i] = entry
			}
			continue
		}
		position[entry.ID] = len(entries)
		entries = append(entries, entry)
	}
	return entries, nil
}

// decodeRoom extracts the record entry from one snapshot room.
// Returns false when the room carries no readable record event.
// Should the room hold several matching candidates, the highest
// version wins.
func (r *Repository[T]) decodeRoom(room messaging.SnapshotRoom) (Entry[T], bool) {
	var best Entry[T]
	found := false
	for _, event := range room.State {
		if event.Type != r.eventType {
			continue
		}
		if event.StateKey == nil || *event.StateKey != r.stateKey {
			continue
		}
		entry, err := r.decodeEntry(room.RoomID, event.Content)
		if err != nil {
			r.logger.Warn("skipping unreadable record",
				"room_id", room.RoomID,
				"error", err)
			continue
		}
		if !found || entry.Version > best.Version {
			best = entry
			found = true
		}
	}
	return best, found
}

// Find returns the record stored in the given room. A room without
// the record event (or an unknown room) yields ErrNotFound; envelope
// validation failures yield ErrMalformedRecord or ErrBadVersion.
func (r *Repository[T]) Find(ctx context.Context, id ref.RoomID) (Entry[T], error) {
	session, err := r.source.Session(ctx)
	if err != nil {
		return Entry[T]{}, err
	}
	return r.find(ctx, session, id)
}

func (r *Repository[T]) find(ctx context.Context, session *messaging.Session, id ref.RoomID) (Entry[T], error) {
	content, err := session.GetStateEvent(ctx, id, r.eventType, r.stateKey)
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) ||
			messaging.IsMatrixError(err, messaging.ErrCodeForbidden) {
			return Entry[T]{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Entry[T]{}, fmt.Errorf("repository: reading record %s: %w", id, err)
	}
	return r.decodeEntry(id, content)
}

func (r *Repository[T]) decodeEntry(id ref.RoomID, content json.RawMessage) (Entry[T], error) {
	data, version, err := decodeEnvelope(content)
	if err != nil {
		return Entry[T]{}, fmt.Errorf("record %s: %w", id, err)
	}
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return Entry[T]{}, fmt.Errorf("record %s: %w: %v", id, ErrMalformedRecord, err)
	}
	return Entry[T]{ID: id, Version: version, Data: payload}, nil
}

// Create stores a new record at version 1 and returns its entry. The
// backing room is private and carries the record event in its initial
// state, so the record is never observable in a versionless form.
func (r *Repository[T]) Create(ctx context.Context, data T) (Entry[T], error) {
	session, err := r.source.Session(ctx)
	if err != nil {
		return Entry[T]{}, err
	}

	content, err := encodeEnvelope(data, 1)
	if err != nil {
		return Entry[T]{}, err
	}
	response, err := session.CreateRoom(ctx, RecordRoomRequest(r.eventType, r.stateKey, content))
	if err != nil {
		return Entry[T]{}, fmt.Errorf("repository: creating record room: %w", err)
	}

	r.logger.Info("record created",
		"room_id", response.RoomID,
		"event_type", r.eventType)
	return Entry[T]{ID: response.RoomID, Version: 1, Data: data}, nil
}

// Update replaces the record's payload and bumps its version by one.
// The current version is read first, so updating a missing or
// unreadable record fails with the corresponding validation error
// instead of writing a guess. There is no compare-and-swap between
// the read and the write; two racing updaters both succeed and the
// later write wins.
func (r *Repository[T]) Update(ctx context.Context, id ref.RoomID, data T) (Entry[T], error) {
	session, err := r.source.Session(ctx)
	if err != nil {
		return Entry[T]{}, err
	}

	current, err := r.find(ctx, session, id)
	if err != nil {
		return Entry[T]{}, err
	}
	next := current.Version + 1

	content, err := encodeEnvelope(data, next)
	if err != nil {
		return Entry[T]{}, err
	}
	if _, err := session.SendStateEvent(ctx, id, r.eventType, r.stateKey, content); err != nil {
		return Entry[T]{}, fmt.Errorf("repository: updating record %s: %w", id, err)
	}

	r.logger.Info("record updated",
		"room_id", id,
		"version", next)
	return Entry[T]{ID: id, Version: next, Data: data}, nil
}

// Delete is not supported: a Matrix room cannot be destroyed by a
// regular client. Returns ErrUnsupported without performing any
// network call, so callers probing for capability pay nothing.
func (r *Repository[T]) Delete(ctx context.Context, id ref.RoomID) error {
	return fmt.Errorf("%w: delete record %s", ErrUnsupported, id)
}

// FindByIndex is not supported: room state offers no secondary
// indexes. Returns ErrUnsupported without performing any network
// call.
func (r *Repository[T]) FindByIndex(ctx context.Context, key string) (Entry[T], error) {
	return Entry[T]{}, fmt.Errorf("%w: find by index %q", ErrUnsupported, key)
}
