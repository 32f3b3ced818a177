package styles

import (
	"charm.land/lipgloss/v2"
)

// Color hex values
const (
	ColorAccentBlue    = "#7AA2F7"
	ColorMutedBlue     = "#565F89"
	ColorBorder        = "#414868"
	ColorTextPrimary   = "#C0CAF5"
	ColorTextSecondary = "#9AA5CE"
	ColorSuccessGreen  = "#9ECE6A"
	ColorErrorRed      = "#F7768E"
	ColorWarningYellow = "#E0AF68"
	ColorPillUser      = "#BB9AF7"
	ColorPillRoom      = "#7DCFFF"
	ColorSelected      = "#364A82"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorAccentBlue))

	PreviewStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color(ColorMutedBlue))

	EditorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Foreground(lipgloss.Color(ColorTextPrimary)).
			Padding(0, 1)

	CursorStyle = lipgloss.NewStyle().Reverse(true)

	PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMutedBlue))

	UserPillStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPillUser))

	RoomPillStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPillRoom))

	AtRoomStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorWarningYellow))
)

// Toolbar
var (
	ToolbarButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorTextSecondary)).
				Padding(0, 1)

	ToolbarKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMutedBlue))
)

// Autocomplete popup
var (
	PopupStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1)

	PopupTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorTextSecondary))

	PopupItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTextPrimary))

	PopupSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorTextPrimary)).
				Background(lipgloss.Color(ColorSelected))

	PopupDetailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMutedBlue))
)

// Status line
var (
	StatusMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMutedBlue))
	StatusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorErrorRed))
	StatusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccessGreen))
	SpinnerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBlue))
)
