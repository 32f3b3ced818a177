// Package editsession implements editing a previously sent Matrix message:
// hydrating the editor from the latest version of the message and saving
// the result as an m.replace edit.
package editsession

import (
	"context"
	"errors"
	"fmt"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/matrixevents"
)

var (
	ErrSaveInFlight  = errors.New("a save is already in progress")
	ErrSessionClosed = errors.New("edit session is closed")
	ErrAlreadySaved  = errors.New("edit was already saved")

	ErrNotOwnMessage = errors.New("only your own messages can be edited")
	ErrNotEditable   = errors.New("event is not an editable message")
)

// Target identifies the message being edited. It is fixed for the lifetime
// of a session.
type Target struct {
	RoomID  id.RoomID
	EventID id.EventID
	Sender  id.UserID
	MsgType event.MessageType
}

// Key is the hydration identity of the target.
func (t Target) Key() string {
	return string(t.RoomID) + "|" + string(t.EventID)
}

// OriginalSource fetches the event being edited.
type OriginalSource interface {
	Original(ctx context.Context, roomID id.RoomID, eventID id.EventID) (*event.Event, error)
}

// LoadTarget looks up the original event and checks that self may edit it.
func LoadTarget(ctx context.Context, source OriginalSource, roomID id.RoomID, eventID id.EventID, self id.UserID) (Target, error) {
	evt, err := source.Original(ctx, roomID, eventID)
	if err != nil {
		return Target{}, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return TargetFromEvent(evt, self)
}

// TargetFromEvent validates evt as an edit target for self.
func TargetFromEvent(evt *event.Event, self id.UserID) (Target, error) {
	if evt == nil || evt.Type.Type != event.EventMessage.Type || evt.StateKey != nil {
		return Target{}, ErrNotEditable
	}
	if evt.Sender != self {
		return Target{}, ErrNotOwnMessage
	}
	relType, _ := matrixevents.Relation(&evt.Content)
	if relType == matrixevents.RelReplace {
		return Target{}, fmt.Errorf("%w: %s is itself an edit", ErrNotEditable, evt.ID)
	}
	msgType := messageType(&evt.Content)
	switch msgType {
	case event.MsgText, event.MsgNotice, event.MsgEmote:
	default:
		return Target{}, fmt.Errorf("%w: unsupported msgtype %q", ErrNotEditable, msgType)
	}
	return Target{RoomID: evt.RoomID, EventID: evt.ID, Sender: evt.Sender, MsgType: msgType}, nil
}

func messageType(content *event.Content) event.MessageType {
	if msg, ok := content.Parsed.(*event.MessageEventContent); ok && msg.MsgType != "" {
		return msg.MsgType
	}
	if raw, ok := content.Raw[matrixevents.MsgTypeKey].(string); ok && raw != "" {
		return event.MessageType(raw)
	}
	return event.MsgText
}
