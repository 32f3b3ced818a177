// Package editpanel is the terminal edit panel: it hydrates the target
// message into a document, routes key presses to editing, autocomplete,
// toolbar and save actions, and renders the result.
package editpanel

import (
	"context"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/autocomplete"
	"github.com/beeper/msgedit/pkg/editsession"
	"github.com/beeper/msgedit/pkg/tui/styles"
)

// Outcome is how the panel was closed.
type Outcome uint8

const (
	OutcomeOpen Outcome = iota
	OutcomeCancelled
	OutcomeSaved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeSaved:
		return "saved"
	default:
		return "open"
	}
}

// Result is available once the program has exited.
type Result struct {
	Outcome Outcome
	EventID id.EventID
}

// Options tune the panel. Zero values fall back to defaults.
type Options struct {
	CandidateLimit int
	PreviewLength  int
	Title          string
}

type (
	hydratedMsg struct {
		body editsession.Body
	}
	providersMsg struct {
		providers autocomplete.Providers
	}
	saveDoneMsg struct {
		state   editsession.SaveState
		applied bool
	}
)

type popup struct {
	items    []autocomplete.Candidate
	selected int
}

type Model struct {
	ctx     context.Context
	session *editsession.Session
	opts    Options

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	providers   autocomplete.Providers
	showToolbar bool
	hydrated    bool
	preview     string

	ac        autocomplete.Context
	dismissed autocomplete.Context
	popup     popup

	status string
	result Result
	width  int
}

var _ tea.Model = (*Model)(nil)

// New creates a panel for an already started session.
func New(ctx context.Context, session *editsession.Session, opts Options) *Model {
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = autocomplete.DefaultLimit
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = 80
	}
	return &Model{
		ctx:         ctx,
		session:     session,
		opts:        opts,
		keys:        defaultKeyMap(),
		help:        help.New(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.SpinnerStyle)),
		showToolbar: session.Settings.ShowToolbar,
		providers: autocomplete.Providers{
			Users:  autocomplete.NewUserProvider(nil, true),
			Rooms:  autocomplete.NewRoomProvider(nil),
			Emojis: autocomplete.NewEmojiProvider(),
		},
	}
}

// Result reports how the panel closed.
func (m *Model) Result() Result {
	return m.result
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd, m.providersCmd, m.spinner.Tick)
}

func (m *Model) loadCmd() tea.Msg {
	return hydratedMsg{body: m.session.Load(m.ctx)}
}

func (m *Model) providersCmd() tea.Msg {
	return providersMsg{providers: m.session.Providers(m.ctx)}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case hydratedMsg:
		m.session.Apply(msg.body)
		m.preview = msg.body.Preview(m.opts.PreviewLength)
		m.hydrated = true
		return m, nil
	case providersMsg:
		m.providers = msg.providers
		if m.hydrated {
			m.refreshAutocomplete()
		}
		return m, nil
	case saveDoneMsg:
		return m.handleSaveDone(msg)
	case spinner.TickMsg:
		if m.hydrated && m.session.SaveState().Status != editsession.SaveLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if !m.hydrated {
		if key.Matches(msg, m.keys.Cancel) {
			return m.cancel()
		}
		return m, nil
	}
	if m.popupOpen() {
		switch {
		case key.Matches(msg, m.keys.PopupUp):
			m.popup.selected = (m.popup.selected - 1 + len(m.popup.items)) % len(m.popup.items)
			return m, nil
		case key.Matches(msg, m.keys.PopupDown):
			m.popup.selected = (m.popup.selected + 1) % len(m.popup.items)
			return m, nil
		case key.Matches(msg, m.keys.PopupSelect):
			autocomplete.Apply(m.session.Doc, m.ac, m.popup.items[m.popup.selected])
			m.refreshAutocomplete()
			return m, nil
		case key.Matches(msg, m.keys.PopupClose):
			m.dismissed = m.ac
			m.closePopup()
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Save):
		return m, m.save()
	case key.Matches(msg, m.keys.Cancel):
		return m.cancel()
	case key.Matches(msg, m.keys.Toolbar):
		m.showToolbar = !m.showToolbar
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if !m.edit(msg) {
		return m, nil
	}
	m.refreshAutocomplete()
	return m, nil
}

// edit applies an editing key to the document and reports whether the key
// was consumed.
func (m *Model) edit(msg tea.KeyPressMsg) bool {
	doc := m.session.Doc
	for _, button := range toolbarButtons {
		if key.Matches(msg, button.binding(m.keys)) {
			button.apply(doc)
			return true
		}
	}
	switch {
	case key.Matches(msg, m.keys.Newline):
		doc.InsertText("\n")
	case key.Matches(msg, m.keys.Backspace):
		doc.DeleteBackward()
	case key.Matches(msg, m.keys.Delete):
		doc.DeleteForward()
	case key.Matches(msg, m.keys.Left):
		doc.MoveLeft()
	case key.Matches(msg, m.keys.Right):
		doc.MoveRight()
	case key.Matches(msg, m.keys.Up):
		m.moveLine(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveLine(1)
	case key.Matches(msg, m.keys.LineStart):
		doc.MoveToLineStart()
	case key.Matches(msg, m.keys.LineEnd):
		doc.MoveToLineEnd()
	case msg.Text != "":
		doc.InsertText(msg.Text)
	default:
		return false
	}
	return true
}

// moveLine moves the cursor to the same column of the previous or next line.
func (m *Model) moveLine(dir int) {
	doc := m.session.Doc
	cursor := doc.Cursor()
	lineStart := doc.LineStart(cursor)
	column := cursor - lineStart
	var target int
	if dir < 0 {
		if lineStart == 0 {
			doc.MoveToStart()
			return
		}
		target = doc.LineStart(lineStart - 1)
	} else {
		lineEnd := doc.LineEnd(cursor)
		if lineEnd == doc.Len() {
			doc.MoveToEnd()
			return
		}
		target = lineEnd + 1
	}
	doc.SetCursor(min(target+column, doc.LineEnd(target)))
}

func (m *Model) popupOpen() bool {
	return m.ac.Active() && len(m.popup.items) > 0
}

func (m *Model) closePopup() {
	m.ac = autocomplete.Context{}
	m.popup = popup{}
}

// refreshAutocomplete recomputes the query before the cursor and reloads the
// popup for it.
func (m *Model) refreshAutocomplete() {
	doc := m.session.Doc
	ac := autocomplete.Resolve(doc.WordBefore(doc.Cursor()))
	if ac != m.dismissed {
		m.dismissed = autocomplete.Context{}
	}
	if !ac.Active() || ac == m.dismissed {
		m.closePopup()
		return
	}
	provider := m.providers.For(ac.Kind)
	if provider == nil {
		m.closePopup()
		return
	}
	items, err := provider.Candidates(m.ctx, ac.Query, m.opts.CandidateLimit)
	if err != nil {
		m.session.Log().Warn().Err(err).Stringer("kind", ac.Kind).Msg("Failed to list autocomplete candidates")
		m.closePopup()
		return
	}
	if ac.Query != m.ac.Query || ac.Kind != m.ac.Kind {
		m.popup.selected = 0
	}
	m.ac = ac
	m.popup.items = items
	if m.popup.selected >= len(items) {
		m.popup.selected = 0
	}
}

func (m *Model) save() tea.Cmd {
	sub, err := m.session.PrepareSave()
	if err != nil {
		m.status = err.Error()
		return nil
	}
	if sub == nil {
		return nil
	}
	m.status = ""
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		state, applied := m.session.Submit(m.ctx, sub)
		return saveDoneMsg{state: state, applied: applied}
	})
}

func (m *Model) handleSaveDone(msg saveDoneMsg) (tea.Model, tea.Cmd) {
	if !msg.applied {
		return m, nil
	}
	switch msg.state.Status {
	case editsession.SaveSuccess:
		m.result = Result{Outcome: OutcomeSaved, EventID: msg.state.EventID}
		return m, tea.Quit
	case editsession.SaveError:
		m.status = msg.state.Err.Error()
	}
	return m, nil
}

func (m *Model) cancel() (tea.Model, tea.Cmd) {
	m.session.Cancel()
	m.result = Result{Outcome: OutcomeCancelled}
	return m, tea.Quit
}
