package editpanel

import (
	"strings"

	"charm.land/bubbles/v2/help"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/beeper/msgedit/pkg/autocomplete"
	"github.com/beeper/msgedit/pkg/editsession"
	"github.com/beeper/msgedit/pkg/richtext"
	"github.com/beeper/msgedit/pkg/tui/styles"
)

func (m *Model) View() tea.View {
	title := m.opts.Title
	if title == "" {
		title = "Edit message"
	}
	sections := []string{styles.TitleStyle.Render(title)}
	if m.preview != "" {
		sections = append(sections, styles.PreviewStyle.Render(m.preview))
	}
	if m.showToolbar {
		sections = append(sections, m.renderToolbar())
	}
	editor := styles.EditorStyle
	if m.width > 0 {
		editor = editor.Width(m.width)
	}
	sections = append(sections, editor.Render(m.renderDocument()))
	if popupView := m.renderPopup(); popupView != "" {
		sections = append(sections, popupView)
	}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, status)
	}
	var keys help.KeyMap = m.keys
	if m.popupOpen() {
		keys = popupKeys(m.keys)
	}
	sections = append(sections, m.help.View(keys))
	return tea.NewView(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderDocument() string {
	if !m.hydrated {
		return m.spinner.View() + styles.PlaceholderStyle.Render(" Loading message…")
	}
	doc := m.session.Doc
	cursor := doc.Cursor()
	var sb strings.Builder
	pos := 0
	cursorDrawn := false
	drawCursor := func() {
		sb.WriteString(styles.CursorStyle.Render(" "))
		cursorDrawn = true
	}
	for _, n := range doc.Nodes() {
		if !cursorDrawn && pos == cursor {
			drawCursor()
		}
		switch n.Kind {
		case richtext.KindText:
			runes := []rune(n.Text)
			if !cursorDrawn && cursor > pos && cursor < pos+len(runes) {
				split := cursor - pos
				sb.WriteString(string(runes[:split]))
				drawCursor()
				sb.WriteString(string(runes[split:]))
			} else {
				sb.WriteString(n.Text)
			}
		case richtext.KindNewline:
			sb.WriteString("\n")
		case richtext.KindUserPill:
			sb.WriteString(styles.UserPillStyle.Render(n.Text))
		case richtext.KindRoomPill:
			sb.WriteString(styles.RoomPillStyle.Render(n.Text))
		case richtext.KindAtRoom:
			sb.WriteString(styles.AtRoomStyle.Render(n.Text))
		default:
			sb.WriteString(n.Text)
		}
		pos += n.Len()
	}
	if !cursorDrawn {
		drawCursor()
	}
	return sb.String()
}

func (m *Model) renderToolbar() string {
	buttons := make([]string, 0, len(toolbarButtons))
	for _, button := range toolbarButtons {
		binding := button.binding(m.keys).Help()
		buttons = append(buttons, styles.ToolbarButtonStyle.Render(button.label)+styles.ToolbarKeyStyle.Render(binding.Key))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

// renderPopup draws the popup for the active autocomplete kind.
func (m *Model) renderPopup() string {
	if !m.popupOpen() {
		return ""
	}
	var title string
	var line func(autocomplete.Candidate) string
	switch m.ac.Kind {
	case autocomplete.RoomMention:
		title = "Rooms"
		line = func(c autocomplete.Candidate) string {
			return c.Title + "  " + styles.PopupDetailStyle.Render(c.Detail)
		}
	case autocomplete.UserMention:
		title = "People"
		line = func(c autocomplete.Candidate) string {
			return c.Title + "  " + styles.PopupDetailStyle.Render(c.Detail)
		}
	case autocomplete.Emoticon:
		title = "Emoji"
		line = func(c autocomplete.Candidate) string {
			return c.Title + " " + styles.PopupDetailStyle.Render(c.Detail)
		}
	default:
		return ""
	}
	lines := []string{styles.PopupTitleStyle.Render(title)}
	for i, c := range m.popup.items {
		style := styles.PopupItemStyle
		if i == m.popup.selected {
			style = styles.PopupSelectedStyle
		}
		lines = append(lines, style.Render(line(c)))
	}
	return styles.PopupStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderStatus() string {
	switch state := m.session.SaveState(); {
	case state.Status == editsession.SaveLoading:
		return m.spinner.View() + styles.StatusMutedStyle.Render(" Saving…")
	case m.status != "":
		return styles.StatusErrorStyle.Render(m.status)
	case state.Status == editsession.SaveSuccess:
		return styles.StatusSuccessStyle.Render("Saved")
	default:
		return ""
	}
}
