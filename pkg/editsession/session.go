package editsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"maunium.net/go/mautrix/event"

	"github.com/beeper/msgedit/pkg/autocomplete"
	"github.com/beeper/msgedit/pkg/logutil"
	"github.com/beeper/msgedit/pkg/matrixtransport"
	"github.com/beeper/msgedit/pkg/richtext"
)

// Settings are read once when the session starts.
type Settings struct {
	Markdown    bool
	ShowToolbar bool
}

// Recorder stores events sent by the session so later lookups see them
// without waiting for the homeserver.
type Recorder interface {
	Observe(ctx context.Context, evt *event.Event) error
}

// Deps are the collaborators of a session. Recorder may be nil.
type Deps struct {
	Transport matrixtransport.Transport
	Latest    LatestSource
	Recorder  Recorder
	Log       *zerolog.Logger
}

// Session is one open edit panel: the target, its document and the save
// lifecycle. The close callback runs at most once, on cancel or after a
// successful save.
type Session struct {
	ID       string
	Target   Target
	Settings Settings
	Doc      *richtext.Document

	hydrator *Hydrator
	saver    *SaveController
	deps     Deps
	log      zerolog.Logger

	onClose   func()
	closeOnce sync.Once
}

// New creates a session. The logger is taken from ctx, falling back to
// deps.Log.
func New(ctx context.Context, target Target, settings Settings, deps Deps, onClose func()) *Session {
	sessionID := uuid.NewString()
	log := logutil.LoggerFromContext(ctx, deps.Log).With().
		Str("session_id", sessionID).
		Stringer("room_id", target.RoomID).
		Stringer("event_id", target.EventID).
		Logger()
	s := &Session{
		ID:       sessionID,
		Target:   target,
		Settings: settings,
		Doc:      richtext.New(),
		hydrator: NewHydrator(deps.Latest),
		saver:    NewSaveController(deps.Transport, target, sessionID),
		deps:     deps,
		log:      log,
		onClose:  onClose,
	}
	s.saver.OnStateChange(s.observeSave)
	return s
}

// Context returns ctx carrying the session logger.
func (s *Session) Context(ctx context.Context) context.Context {
	return s.log.WithContext(ctx)
}

func (s *Session) Log() *zerolog.Logger {
	return &s.log
}

// Load fetches the current content of the target without touching the
// document. Safe to call off the UI goroutine.
func (s *Session) Load(ctx context.Context) Body {
	return s.hydrator.Load(s.Context(ctx), s.Target)
}

// Apply hydrates the document with body once.
func (s *Session) Apply(body Body) bool {
	return s.hydrator.Apply(s.Target, s.Doc, body)
}

// Hydrate loads and applies the target content once.
func (s *Session) Hydrate(ctx context.Context) bool {
	return s.hydrator.Hydrate(s.Context(ctx), s.Target, s.Doc)
}

func (s *Session) Hydrated() bool {
	return s.hydrator.Hydrated(s.Target)
}

// PrepareSave snapshots the document for sending. See SaveController.Prepare.
func (s *Session) PrepareSave() (*Submission, error) {
	return s.saver.Prepare(s.Doc, s.Settings.Markdown)
}

func (s *Session) Submit(ctx context.Context, sub *Submission) (SaveState, bool) {
	return s.saver.Submit(s.Context(ctx), sub)
}

// Save prepares and submits synchronously.
func (s *Session) Save(ctx context.Context) (SaveState, error) {
	return s.saver.Save(s.Context(ctx), s.Doc, s.Settings.Markdown)
}

func (s *Session) SaveState() SaveState {
	return s.saver.State()
}

func (s *Session) CanSave() bool {
	return s.saver.CanSave()
}

// Cancel closes the session without sending anything.
func (s *Session) Cancel() {
	s.log.Debug().Msg("Edit cancelled")
	s.Close()
}

// Close drops any in-flight save result and runs the close callback once.
func (s *Session) Close() {
	s.saver.Close()
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Session) observeSave(state SaveState) {
	if state.Status != SaveSuccess {
		return
	}
	s.record(state)
	s.Close()
}

func (s *Session) record(state SaveState) {
	if s.deps.Recorder == nil || state.Content == nil {
		return
	}
	evt := &event.Event{
		ID:        state.EventID,
		RoomID:    s.Target.RoomID,
		Sender:    s.Target.Sender,
		Type:      event.EventMessage,
		Timestamp: time.Now().UnixMilli(),
		Content:   event.Content{Parsed: state.Content},
	}
	if err := s.deps.Recorder.Observe(s.Context(context.Background()), evt); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record sent edit")
	}
}

// Providers loads autocomplete sources for the target room. Lookup failures
// are logged and leave that popup empty.
func (s *Session) Providers(ctx context.Context) autocomplete.Providers {
	ctx = s.Context(ctx)
	providers := autocomplete.Providers{
		Users:  autocomplete.NewUserProvider(nil, true),
		Rooms:  autocomplete.NewRoomProvider(nil),
		Emojis: autocomplete.NewEmojiProvider(),
	}
	if s.deps.Transport == nil {
		return providers
	}
	members, err := s.deps.Transport.GetMembers(ctx, s.Target.RoomID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load room members for autocomplete")
	} else {
		users := make([]autocomplete.User, len(members))
		for i, m := range members {
			users[i] = autocomplete.User{ID: m.UserID, DisplayName: m.DisplayName}
		}
		providers.Users = autocomplete.NewUserProvider(users, true)
	}
	rooms, err := s.deps.Transport.JoinedRooms(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load joined rooms for autocomplete")
	} else {
		summaries := make([]autocomplete.Room, len(rooms))
		for i, r := range rooms {
			summaries[i] = autocomplete.Room{ID: r.ID, Alias: r.Alias, Name: r.Name}
		}
		providers.Rooms = autocomplete.NewRoomProvider(summaries)
	}
	return providers
}
