package editsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/matrixevents"
	"github.com/beeper/msgedit/pkg/richtext"
)

type SaveStatus uint8

const (
	SaveIdle SaveStatus = iota
	SaveLoading
	SaveSuccess
	SaveError
)

func (s SaveStatus) String() string {
	switch s {
	case SaveIdle:
		return "idle"
	case SaveLoading:
		return "loading"
	case SaveSuccess:
		return "success"
	case SaveError:
		return "error"
	default:
		return "unknown"
	}
}

// SaveState is the state of the most recent save attempt.
type SaveState struct {
	Status  SaveStatus
	Attempt uint64
	// EventID is the edit event sent by a successful attempt.
	EventID id.EventID
	// Content is the payload sent by a successful attempt.
	Content *event.MessageEventContent
	Err     error
}

// Sender submits message events to a room.
type Sender interface {
	SendMessage(ctx context.Context, roomID id.RoomID, eventType event.Type, content *event.Content, txnID string) (id.EventID, error)
}

// Submission is a prepared save attempt.
type Submission struct {
	Attempt uint64
	TxnID   string
	Content *event.MessageEventContent
}

// SaveController runs save attempts for one target. At most one attempt is
// in flight, and completions arriving after Close are dropped.
type SaveController struct {
	sender    Sender
	target    Target
	sessionID string

	mu       sync.Mutex
	state    SaveState
	attempts uint64
	closed   bool
	observer func(SaveState)
}

func NewSaveController(sender Sender, target Target, sessionID string) *SaveController {
	return &SaveController{sender: sender, target: target, sessionID: sessionID}
}

// OnStateChange sets the function called after each completed attempt. It
// runs on the goroutine that called Submit, outside the controller lock.
func (c *SaveController) OnStateChange(fn func(SaveState)) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

func (c *SaveController) State() SaveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanSave reports whether a new attempt would be accepted.
func (c *SaveController) CanSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkCanSave() == nil
}

func (c *SaveController) checkCanSave() error {
	switch {
	case c.closed:
		return ErrSessionClosed
	case c.state.Status == SaveLoading:
		return ErrSaveInFlight
	case c.state.Status == SaveSuccess:
		return ErrAlreadySaved
	}
	return nil
}

// Prepare serializes doc and moves the controller to Loading. It returns a
// nil submission without changing state when the document is blank.
func (c *SaveController) Prepare(doc *richtext.Document, markdown bool) (*Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkCanSave(); err != nil {
		return nil, err
	}
	serialized := SerializeDocument(doc, markdown)
	if serialized.Empty() {
		return nil, nil
	}
	c.attempts++
	c.state = SaveState{Status: SaveLoading, Attempt: c.attempts}
	return &Submission{
		Attempt: c.attempts,
		TxnID:   matrixevents.BuildEditTxnID(c.sessionID, c.attempts, xid.New().String()),
		Content: BuildEditPayload(c.target, serialized),
	}, nil
}

// Submit sends a prepared attempt and records its result. The returned bool
// is false when the result was discarded because the controller was closed
// in the meantime.
func (c *SaveController) Submit(ctx context.Context, sub *Submission) (SaveState, bool) {
	log := zerolog.Ctx(ctx).With().
		Stringer("room_id", c.target.RoomID).
		Stringer("event_id", c.target.EventID).
		Str("txn_id", sub.TxnID).
		Uint64("attempt", sub.Attempt).
		Logger()
	eventID, err := c.sender.SendMessage(ctx, c.target.RoomID, event.EventMessage, &event.Content{Parsed: sub.Content}, sub.TxnID)
	if err != nil {
		err = fmt.Errorf("failed to send edit: %w", err)
	}

	c.mu.Lock()
	if c.closed || c.state.Status != SaveLoading || c.state.Attempt != sub.Attempt {
		c.mu.Unlock()
		log.Debug().Err(err).Msg("Dropping save result for closed session")
		return SaveState{}, false
	}
	if err != nil {
		c.state = SaveState{Status: SaveError, Attempt: sub.Attempt, Err: err}
	} else {
		c.state = SaveState{Status: SaveSuccess, Attempt: sub.Attempt, EventID: eventID, Content: sub.Content}
	}
	state, observer := c.state, c.observer
	c.mu.Unlock()

	if err != nil {
		log.Err(err).Msg("Failed to save edit")
	} else {
		log.Info().Stringer("edit_event_id", eventID).Msg("Saved edit")
	}
	if observer != nil {
		observer(state)
	}
	return state, true
}

// Save prepares and submits an attempt synchronously.
func (c *SaveController) Save(ctx context.Context, doc *richtext.Document, markdown bool) (SaveState, error) {
	sub, err := c.Prepare(doc, markdown)
	if err != nil {
		return c.State(), err
	} else if sub == nil {
		return c.State(), nil
	}
	state, ok := c.Submit(ctx, sub)
	if !ok {
		return state, ErrSessionClosed
	}
	return state, nil
}

// Close stops the controller from accepting attempts or recording results.
func (c *SaveController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
