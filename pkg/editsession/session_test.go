package editsession

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"

	"github.com/beeper/msgedit/pkg/autocomplete"
	"github.com/beeper/msgedit/pkg/matrixtransport"
)

func newTestSession(t *testing.T, transport *fakeTransport, recorder Recorder) (*Session, *int) {
	t.Helper()
	closed := 0
	deps := Deps{
		Transport: transport,
		Latest:    &fakeLatest{evt: rawEvent("$orig", map[string]any{"body": "hello"})},
		Recorder:  recorder,
	}
	s := New(context.Background(), testTarget, Settings{Markdown: true}, deps, func() { closed++ })
	return s, &closed
}

func TestSessionSuccessClosesOnce(t *testing.T) {
	transport := &fakeTransport{}
	recorder := &fakeRecorder{}
	s, closed := newTestSession(t, transport, recorder)
	ctx := context.Background()
	require.True(t, s.Hydrate(ctx))
	s.Doc.InsertText(" **world**")

	state, err := s.Save(ctx)

	require.NoError(t, err)
	assert.Equal(t, SaveSuccess, state.Status)
	assert.Equal(t, 1, *closed)
	assert.Equal(t, "hello **world**", transport.sent[0].Content.NewContent.Body)
	assert.Equal(t, "hello <strong>world</strong>", transport.sent[0].Content.NewContent.FormattedBody)

	require.Len(t, recorder.events, 1)
	recorded := recorder.events[0]
	assert.Equal(t, state.EventID, recorded.ID)
	assert.Equal(t, testTarget.Sender, recorded.Sender)
	assert.Equal(t, event.EventMessage, recorded.Type)

	s.Cancel()
	s.Close()
	assert.Equal(t, 1, *closed)
}

func TestSessionFailureDoesNotClose(t *testing.T) {
	transport := &fakeTransport{sendErr: errors.New("timeout")}
	s, closed := newTestSession(t, transport, nil)
	s.Hydrate(context.Background())

	state, err := s.Save(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SaveError, state.Status)
	assert.Zero(t, *closed)
	assert.True(t, s.CanSave())
	assert.Equal(t, state, s.SaveState())
}

func TestSessionCancelSendsNothing(t *testing.T) {
	transport := &fakeTransport{}
	s, closed := newTestSession(t, transport, nil)
	s.Hydrate(context.Background())
	s.Doc.InsertText(" unsaved")

	s.Cancel()

	assert.Equal(t, 1, *closed)
	assert.Zero(t, transport.sentCount())
	_, err := s.PrepareSave()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionLoadApply(t *testing.T) {
	s, _ := newTestSession(t, &fakeTransport{}, nil)

	body := s.Load(context.Background())
	assert.False(t, s.Hydrated())
	require.True(t, s.Apply(body))
	assert.True(t, s.Hydrated())
	assert.False(t, s.Apply(Body{Plain: "again"}))
	assert.Equal(t, "hello", s.Doc.Plain())
	assert.NotEmpty(t, s.ID)
}

func TestSessionProviders(t *testing.T) {
	transport := &fakeTransport{
		members: []matrixtransport.Member{{UserID: "@bob:example.org", DisplayName: "Bob"}},
		rooms:   []matrixtransport.RoomSummary{{ID: "!r:example.org", Alias: "#general:example.org", Name: "General"}},
	}
	s, _ := newTestSession(t, transport, nil)
	ctx := context.Background()

	providers := s.Providers(ctx)

	users, err := providers.For(autocomplete.UserMention).Candidates(ctx, "bo", 5)
	require.NoError(t, err)
	require.NotEmpty(t, users)
	assert.Equal(t, "Bob", users[0].Title)

	rooms, err := providers.For(autocomplete.RoomMention).Candidates(ctx, "gen", 5)
	require.NoError(t, err)
	require.NotEmpty(t, rooms)
	assert.Equal(t, "#general:example.org", rooms[0].Node.Target)

	transport.membersErr = errors.New("forbidden")
	users, err = s.Providers(ctx).For(autocomplete.UserMention).Candidates(ctx, "bo", 5)
	require.NoError(t, err)
	assert.Empty(t, users)
}
