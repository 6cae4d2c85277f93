package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/hassist/internal/tui/theme"
)

// Styles holds all lipgloss styles for the TUI, derived from a theme.
type Styles struct {
	palette *theme.Palette

	TitleStyle lipgloss.Style

	// Stats bar
	StatLabelStyle lipgloss.Style
	StatValueStyle lipgloss.Style
	StatusOKStyle  lipgloss.Style
	StatusBadStyle lipgloss.Style

	// Transcript
	UserLabelStyle      lipgloss.Style
	AssistantLabelStyle lipgloss.Style
	UserMessageStyle    lipgloss.Style
	AssistantMsgStyle   lipgloss.Style
	TimeStyle           lipgloss.Style
	ErrorStyle          lipgloss.Style
	PlaceholderStyle    lipgloss.Style

	// Footer
	SpinnerStyle lipgloss.Style
	StatusStyle  lipgloss.Style
	HelpStyle    lipgloss.Style
	InputStyle   lipgloss.Style

	// Modal
	ModalTitleStyle    lipgloss.Style
	ModalTextStyle     lipgloss.Style
	ModalMutedStyle    lipgloss.Style
	ModalSelectedStyle lipgloss.Style
	ModalWarningStyle  lipgloss.Style
	ModalBackdropColor lipgloss.Color
}

// NewStyles creates the styles for t.
func NewStyles(t *theme.Theme) *Styles {
	p := theme.NewPalette(t)

	return &Styles{
		palette: p,

		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.TextOnAccent).
			Background(p.Accent).
			Padding(0, 1),

		StatLabelStyle: lipgloss.NewStyle().Foreground(p.FgMuted),
		StatValueStyle: lipgloss.NewStyle().Foreground(p.Fg).Bold(true),
		StatusOKStyle:  lipgloss.NewStyle().Foreground(p.Success),
		StatusBadStyle: lipgloss.NewStyle().Foreground(p.Error),

		UserLabelStyle:      lipgloss.NewStyle().Foreground(p.User).Bold(true),
		AssistantLabelStyle: lipgloss.NewStyle().Foreground(p.Assistant).Bold(true),
		UserMessageStyle:    lipgloss.NewStyle().Foreground(p.Fg).Background(p.UserBg).Padding(0, 1),
		AssistantMsgStyle:   lipgloss.NewStyle().Foreground(p.Fg).Background(p.AssistantBg).Padding(0, 1),
		TimeStyle:           lipgloss.NewStyle().Foreground(p.FgMuted),
		ErrorStyle:          lipgloss.NewStyle().Foreground(p.Error),
		PlaceholderStyle:    lipgloss.NewStyle().Foreground(p.FgMuted).Italic(true),

		SpinnerStyle: lipgloss.NewStyle().Foreground(p.Accent),
		StatusStyle:  lipgloss.NewStyle().Foreground(p.Fg),
		HelpStyle:    lipgloss.NewStyle().Foreground(p.FgMuted),
		InputStyle: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(p.Accent),

		ModalTitleStyle:    lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		ModalTextStyle:     lipgloss.NewStyle().Foreground(p.Fg),
		ModalMutedStyle:    lipgloss.NewStyle().Foreground(p.FgMuted),
		ModalSelectedStyle: lipgloss.NewStyle().Foreground(p.TextOnAccent).Background(p.Accent),
		ModalWarningStyle:  lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		ModalBackdropColor: p.Backdrop,
	}
}
