package editpanel

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/autocomplete"
	"github.com/beeper/msgedit/pkg/editsession"
	"github.com/beeper/msgedit/pkg/matrixtransport"
	"github.com/beeper/msgedit/pkg/richtext"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []*event.MessageEventContent
	sendErr error
	members []matrixtransport.Member
	rooms   []matrixtransport.RoomSummary
}

func (f *fakeTransport) SendMessage(_ context.Context, _ id.RoomID, _ event.Type, content *event.Content, _ string) (id.EventID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content.AsMessage())
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "$edit", nil
}

func (f *fakeTransport) GetEvent(context.Context, id.RoomID, id.EventID) (*event.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) GetRelations(context.Context, id.RoomID, id.EventID, event.RelationType) ([]*event.Event, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) GetMembers(context.Context, id.RoomID) ([]matrixtransport.Member, error) {
	return f.members, nil
}

func (f *fakeTransport) JoinedRooms(context.Context) ([]matrixtransport.RoomSummary, error) {
	return f.rooms, nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeLatest struct {
	evt *event.Event
}

func (f *fakeLatest) Latest(context.Context, id.RoomID, id.EventID) (*event.Event, error) {
	if f.evt == nil {
		return nil, errors.New("not found")
	}
	return f.evt, nil
}

var testTarget = editsession.Target{
	RoomID:  "!room:example.org",
	EventID: "$orig",
	Sender:  "@alice:example.org",
	MsgType: event.MsgText,
}

type harness struct {
	model     *Model
	transport *fakeTransport
	closed    int
}

func newHarness(t *testing.T, body string) *harness {
	t.Helper()
	h := &harness{transport: &fakeTransport{
		members: []matrixtransport.Member{
			{UserID: "@alice:example.org", DisplayName: "Alice"},
			{UserID: "@bob:example.org", DisplayName: "Bob"},
		},
		rooms: []matrixtransport.RoomSummary{{ID: "!other:example.org", Alias: "#general:example.org", Name: "General"}},
	}}
	latest := &fakeLatest{evt: &event.Event{
		ID:      testTarget.EventID,
		RoomID:  testTarget.RoomID,
		Sender:  testTarget.Sender,
		Type:    event.EventMessage,
		Content: event.Content{Raw: map[string]any{"msgtype": "m.text", "body": body}},
	}}
	session := editsession.New(context.Background(), testTarget, editsession.Settings{Markdown: true}, editsession.Deps{
		Transport: h.transport,
		Latest:    latest,
	}, func() { h.closed++ })
	h.model = New(context.Background(), session, Options{})
	return h
}

func (h *harness) hydrate() {
	h.model.Update(h.model.loadCmd())
	h.model.Update(h.model.providersCmd())
}

func (h *harness) press(keys ...tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = h.model.Update(k)
	}
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.press(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func (h *harness) plain() string {
	return h.model.session.Doc.Plain()
}

// runCmd executes cmd and any batched commands, returning the produced messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findMsg[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if typed, ok := msg.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

var (
	keyEnter      = tea.KeyPressMsg{Code: tea.KeyEnter}
	keyShiftEnter = tea.KeyPressMsg{Code: tea.KeyEnter, Mod: tea.ModShift}
	keyEsc        = tea.KeyPressMsg{Code: tea.KeyEscape}
	keyTab        = tea.KeyPressMsg{Code: tea.KeyTab}
	keyDismiss    = tea.KeyPressMsg{Code: 'x', Mod: tea.ModCtrl}
	keyDown       = tea.KeyPressMsg{Code: tea.KeyDown}
	keyBackspace  = tea.KeyPressMsg{Code: tea.KeyBackspace}
	keyToolbar    = tea.KeyPressMsg{Code: 't', Mod: tea.ModCtrl}
	keyBold       = tea.KeyPressMsg{Code: 'b', Mod: tea.ModAlt}
)

func TestHydrationFillsDocument(t *testing.T) {
	h := newHarness(t, "hello world")
	h.typeText("ignored")
	assert.Empty(t, h.plain())

	h.hydrate()
	assert.Equal(t, "hello world", h.plain())
	assert.Equal(t, len("hello world"), h.model.session.Doc.Cursor())
	assert.Equal(t, "hello world", h.model.preview)

	h.typeText("!")
	assert.Equal(t, "hello world!", h.plain())
}

func TestEnterSavesAndQuits(t *testing.T) {
	h := newHarness(t, "hello")
	h.hydrate()
	h.typeText(" there")

	msgs := runCmd(h.press(keyEnter))
	done, ok := findMsg[saveDoneMsg](msgs)
	require.True(t, ok)
	assert.True(t, done.applied)
	require.Len(t, h.transport.sent, 1)
	assert.Equal(t, "hello there", h.transport.sent[0].NewContent.Body)
	assert.Equal(t, "* hello there", h.transport.sent[0].Body)
	assert.Equal(t, "hello there", h.plain(), "enter must not insert a newline")

	_, cmd := h.model.Update(done)
	_, quit := findMsg[tea.QuitMsg](runCmd(cmd))
	assert.True(t, quit)
	assert.Equal(t, OutcomeSaved, h.model.Result().Outcome)
	assert.Equal(t, id.EventID("$edit"), h.model.Result().EventID)
	assert.Equal(t, 1, h.closed)
}

func TestEnterOnEmptyDocumentDoesNothing(t *testing.T) {
	h := newHarness(t, "x")
	h.hydrate()
	h.press(keyBackspace)
	require.Empty(t, h.plain())

	cmd := h.press(keyEnter)
	assert.Nil(t, cmd)
	assert.Zero(t, h.transport.sentCount())
	assert.Equal(t, editsession.SaveIdle, h.model.session.SaveState().Status)
}

func TestSaveErrorKeepsPanelOpen(t *testing.T) {
	h := newHarness(t, "hello")
	h.transport.sendErr = errors.New("boom")
	h.hydrate()

	done, ok := findMsg[saveDoneMsg](runCmd(h.press(keyEnter)))
	require.True(t, ok)
	_, cmd := h.model.Update(done)
	assert.Nil(t, cmd)
	assert.Equal(t, OutcomeOpen, h.model.Result().Outcome)
	assert.Contains(t, h.model.status, "boom")
	assert.True(t, h.model.session.CanSave())
	assert.Zero(t, h.closed)
	assert.Contains(t, h.model.View().Content, "boom")
}

func TestEscCancelsWithoutSending(t *testing.T) {
	h := newHarness(t, "hello")
	h.hydrate()

	_, quit := findMsg[tea.QuitMsg](runCmd(h.press(keyEsc)))
	assert.True(t, quit)
	assert.Equal(t, OutcomeCancelled, h.model.Result().Outcome)
	assert.Equal(t, 1, h.closed)
	assert.Zero(t, h.transport.sentCount())
}

func TestEscBeforeHydrationCancels(t *testing.T) {
	h := newHarness(t, "hello")
	h.press(keyEsc)
	assert.Equal(t, OutcomeCancelled, h.model.Result().Outcome)
	assert.Equal(t, 1, h.closed)
}

func TestNewlineKeys(t *testing.T) {
	h := newHarness(t, "a")
	h.hydrate()
	h.press(keyShiftEnter)
	h.typeText("b")
	h.press(tea.KeyPressMsg{Code: tea.KeyEnter, Mod: tea.ModAlt})
	h.press(tea.KeyPressMsg{Code: 'j', Mod: tea.ModCtrl})
	assert.Equal(t, "a\nb\n\n", h.plain())
	assert.Zero(t, h.transport.sentCount())
}

func TestUserMentionPopup(t *testing.T) {
	h := newHarness(t, "")
	h.hydrate()
	h.typeText("hi @ali")

	require.True(t, h.model.popupOpen())
	assert.Equal(t, autocomplete.UserMention, h.model.ac.Kind)
	assert.Equal(t, "Alice", h.model.popup.items[0].Title)
	assert.Contains(t, h.model.View().Content, "People")

	h.press(keyTab)
	assert.False(t, h.model.popupOpen())
	nodes := h.model.session.Doc.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, richtext.UserPill("@alice:example.org", "Alice"), nodes[1])
	assert.Equal(t, "hi Alice ", h.plain())
}

func TestPopupEnterSelectsInsteadOfSaving(t *testing.T) {
	h := newHarness(t, "")
	h.hydrate()
	h.typeText("#gen")
	require.True(t, h.model.popupOpen())
	assert.Equal(t, autocomplete.RoomMention, h.model.ac.Kind)

	cmd := h.press(keyEnter)
	assert.Nil(t, cmd)
	assert.Zero(t, h.transport.sentCount())
	assert.Equal(t, richtext.KindRoomPill, h.model.session.Doc.Nodes()[0].Kind)
	assert.Equal(t, "#general:example.org", h.model.session.Doc.Nodes()[0].Target)
}

func TestPopupNavigationWraps(t *testing.T) {
	h := newHarness(t, "")
	h.hydrate()
	h.typeText("@")
	require.True(t, h.model.popupOpen())
	count := len(h.model.popup.items)
	require.Greater(t, count, 1)

	for range count {
		h.press(keyDown)
	}
	assert.Equal(t, 0, h.model.popup.selected)
	h.press(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, count-1, h.model.popup.selected)
}

func TestEscCancelsWithPopupOpen(t *testing.T) {
	h := newHarness(t, "")
	h.hydrate()
	h.typeText(":smil")
	require.True(t, h.model.popupOpen())

	_, quit := findMsg[tea.QuitMsg](runCmd(h.press(keyEsc)))
	assert.True(t, quit)
	assert.Equal(t, 1, h.closed)
	assert.Equal(t, OutcomeCancelled, h.model.Result().Outcome)
	assert.Zero(t, h.transport.sentCount())
}

func TestDismissPopup(t *testing.T) {
	h := newHarness(t, "")
	h.hydrate()
	h.typeText(":smil")
	require.True(t, h.model.popupOpen())
	assert.Equal(t, autocomplete.Emoticon, h.model.ac.Kind)

	h.press(keyDismiss)
	assert.False(t, h.model.popupOpen())
	assert.Zero(t, h.closed)

	h.typeText("e")
	assert.True(t, h.model.popupOpen(), "typing more reopens the popup")
}

func TestLoneColonDoesNotOpenPopup(t *testing.T) {
	h := newHarness(t, "")
	h.hydrate()
	h.typeText("time: ")
	assert.False(t, h.model.popupOpen())
	h.typeText(":")
	assert.False(t, h.model.popupOpen())
}

func TestToolbarToggleAndFormatting(t *testing.T) {
	h := newHarness(t, "word")
	h.hydrate()
	assert.False(t, h.model.showToolbar)

	h.press(keyToolbar)
	assert.True(t, h.model.showToolbar)
	assert.Contains(t, h.model.View().Content, "alt+b")

	h.press(keyBold)
	assert.Equal(t, "**word**", h.plain())

	h.press(keyToolbar)
	assert.False(t, h.model.showToolbar)
}

func TestVerticalMovementKeepsColumn(t *testing.T) {
	h := newHarness(t, "abcd\nxy\nlonger")
	h.hydrate()
	doc := h.model.session.Doc
	doc.SetCursor(3)

	h.press(keyDown)
	assert.Equal(t, 7, doc.Cursor(), "clamped to the end of the short line")
	h.press(keyDown)
	assert.Equal(t, 10, doc.Cursor())
	h.press(tea.KeyPressMsg{Code: tea.KeyUp}, tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 2, doc.Cursor())
}
