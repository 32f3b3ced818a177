// Package timeline resolves the current version of a message: the original
// event or its most recent valid m.replace edit.
package timeline

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/matrixevents"
)

// Source is the homeserver side of the timeline.
type Source interface {
	GetEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error)
	GetRelations(ctx context.Context, roomID id.RoomID, eventID id.EventID, relType event.RelationType) ([]*event.Event, error)
}

type Timeline struct {
	store  *Store
	source Source
}

// New creates a timeline. store may be nil to disable caching.
func New(store *Store, source Source) *Timeline {
	return &Timeline{store: store, source: source}
}

// Original returns the event itself, from the cache when possible.
func (t *Timeline) Original(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error) {
	log := zerolog.Ctx(ctx)
	if t.store != nil {
		evt, err := t.store.Get(ctx, roomID, eventID)
		if err == nil {
			return evt, nil
		} else if !errors.Is(err, ErrEventNotFound) {
			log.Warn().Err(err).Msg("Failed to read cached event")
		}
	}
	if t.source == nil {
		return nil, ErrEventNotFound
	}
	evt, err := t.source.GetEvent(ctx, roomID, eventID)
	if err != nil {
		return nil, err
	} else if evt == nil {
		return nil, ErrEventNotFound
	}
	if evt.RoomID == "" {
		evt.RoomID = roomID
	}
	t.remember(ctx, evt)
	return evt, nil
}

// LatestEdit returns the most recent valid edit of original, or nil when it
// was never edited. Edits are fetched from the homeserver; if that fails the
// cached edits are used instead.
func (t *Timeline) LatestEdit(ctx context.Context, original *event.Event) (*event.Event, error) {
	if original == nil {
		return nil, nil
	}
	log := zerolog.Ctx(ctx)
	var candidates []*event.Event
	var remoteErr error
	if t.source != nil {
		candidates, remoteErr = t.source.GetRelations(ctx, original.RoomID, original.ID, matrixevents.RelReplace)
		if remoteErr == nil {
			for _, evt := range candidates {
				if evt.RoomID == "" {
					evt.RoomID = original.RoomID
				}
				t.remember(ctx, evt)
			}
		} else {
			log.Warn().Err(remoteErr).Msg("Failed to fetch edits from homeserver, using cache")
		}
	}
	if t.store != nil {
		cached, err := t.store.Replacements(ctx, original.RoomID, original.ID)
		if err != nil {
			if remoteErr != nil {
				return nil, errors.Join(remoteErr, err)
			}
			log.Warn().Err(err).Msg("Failed to read cached edits")
		}
		candidates = append(candidates, cached...)
	} else if remoteErr != nil {
		return nil, remoteErr
	}
	return LatestReplacement(original, candidates), nil
}

// Latest returns the latest edit of the event, or the event itself when it
// has none.
func (t *Timeline) Latest(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error) {
	original, err := t.Original(ctx, roomID, eventID)
	if err != nil {
		return nil, err
	}
	edit, err := t.LatestEdit(ctx, original)
	if err != nil {
		return nil, err
	} else if edit != nil {
		return edit, nil
	}
	return original, nil
}

// Observe records an event seen or sent by this client, such as the echo of
// a saved edit.
func (t *Timeline) Observe(ctx context.Context, evt *event.Event) error {
	if t.store == nil {
		return nil
	}
	return t.store.Put(ctx, evt)
}

func (t *Timeline) remember(ctx context.Context, evt *event.Event) {
	if t.store == nil {
		return
	}
	if err := t.store.Put(ctx, evt); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Stringer("event_id", evt.ID).Msg("Failed to cache event")
	}
}

// LatestReplacement picks the newest valid edit of original among
// candidates: an m.room.message from the original sender replacing the
// original. Ties on timestamp go to the greater event ID so every client
// picks the same one.
func LatestReplacement(original *event.Event, candidates []*event.Event) *event.Event {
	if original == nil {
		return nil
	}
	var latest *event.Event
	for _, evt := range candidates {
		if evt == nil || evt.ID == original.ID || evt.Sender != original.Sender {
			continue
		}
		if evt.Type.Type != event.EventMessage.Type || !matrixevents.IsReplacement(evt, original.ID) {
			continue
		}
		if latest == nil || evt.Timestamp > latest.Timestamp ||
			(evt.Timestamp == latest.Timestamp && strings.Compare(string(evt.ID), string(latest.ID)) > 0) {
			latest = evt
		}
	}
	return latest
}
