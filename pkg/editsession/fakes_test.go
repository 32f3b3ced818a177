package editsession

import (
	"context"
	"errors"
	"sync"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/matrixtransport"
)

type sentMessage struct {
	RoomID  id.RoomID
	Type    event.Type
	Content *event.MessageEventContent
	TxnID   string
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
	// release, when set, blocks SendMessage until it is closed.
	release chan struct{}
	entered chan struct{}

	members    []matrixtransport.Member
	membersErr error
	rooms      []matrixtransport.RoomSummary
}

var _ matrixtransport.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) SendMessage(_ context.Context, roomID id.RoomID, eventType event.Type, content *event.Content, txnID string) (id.EventID, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{RoomID: roomID, Type: eventType, Content: content.AsMessage(), TxnID: txnID})
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return id.EventID("$edit" + string(rune('0'+len(f.sent)))), nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) GetEvent(context.Context, id.RoomID, id.EventID) (*event.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) GetRelations(context.Context, id.RoomID, id.EventID, event.RelationType) ([]*event.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) GetMembers(context.Context, id.RoomID) ([]matrixtransport.Member, error) {
	return f.members, f.membersErr
}

func (f *fakeTransport) JoinedRooms(context.Context) ([]matrixtransport.RoomSummary, error) {
	return f.rooms, nil
}

type fakeLatest struct {
	evt   *event.Event
	err   error
	calls int
}

func (f *fakeLatest) Latest(context.Context, id.RoomID, id.EventID) (*event.Event, error) {
	f.calls++
	return f.evt, f.err
}

type fakeRecorder struct {
	events []*event.Event
}

func (f *fakeRecorder) Observe(_ context.Context, evt *event.Event) error {
	f.events = append(f.events, evt)
	return nil
}

var testTarget = Target{
	RoomID:  "!room:example.org",
	EventID: "$orig",
	Sender:  "@alice:example.org",
	MsgType: event.MsgText,
}

func rawEvent(eventID id.EventID, raw map[string]any) *event.Event {
	return &event.Event{
		ID:      eventID,
		RoomID:  testTarget.RoomID,
		Sender:  testTarget.Sender,
		Type:    event.EventMessage,
		Content: event.Content{Raw: raw},
	}
}
