package editsession

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/richtext"
)

// LatestSource returns the newest version of a message: its latest valid
// edit, or the message itself.
type LatestSource interface {
	Latest(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error)
}

// Hydrator fills an editor document with the current content of the target
// message. Each target is applied at most once, so re-running hydration
// never overwrites what the user typed since.
type Hydrator struct {
	source LatestSource

	mu      sync.Mutex
	applied map[string]struct{}
}

func NewHydrator(source LatestSource) *Hydrator {
	return &Hydrator{source: source, applied: make(map[string]struct{})}
}

// Load fetches the latest version of the target. Failures are logged and
// produce an empty body.
func (h *Hydrator) Load(ctx context.Context, target Target) Body {
	log := zerolog.Ctx(ctx).With().
		Stringer("room_id", target.RoomID).
		Stringer("event_id", target.EventID).
		Logger()
	if h.source == nil {
		return Body{}
	}
	evt, err := h.source.Latest(ctx, target.RoomID, target.EventID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to find latest version of message, starting empty")
		return Body{}
	} else if evt == nil {
		return Body{}
	}
	body := ExtractBody(&evt.Content)
	if body.Plain == "" && body.HTML == "" {
		log.Warn().Stringer("version_event_id", evt.ID).Msg("Message has no usable body, starting empty")
	} else {
		log.Debug().Stringer("version_event_id", evt.ID).Bool("html", body.HTML != "").Msg("Loaded message for editing")
	}
	return body
}

// Apply replaces the whole document with the loaded body and moves the
// cursor to the end. It returns false without touching doc when target was
// already hydrated.
func (h *Hydrator) Apply(target Target, doc *richtext.Document, body Body) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := target.Key()
	if _, ok := h.applied[key]; ok {
		return false
	}
	h.applied[key] = struct{}{}
	doc.ReplaceAll(body.Document())
	doc.MoveToEnd()
	return true
}

// Hydrated reports whether target was already applied.
func (h *Hydrator) Hydrated(target Target) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.applied[target.Key()]
	return ok
}

// Hydrate loads and applies the target in one step. The lookup is skipped
// entirely when the target was already hydrated.
func (h *Hydrator) Hydrate(ctx context.Context, target Target, doc *richtext.Document) bool {
	if h.Hydrated(target) {
		return false
	}
	return h.Apply(target, doc, h.Load(ctx, target))
}
