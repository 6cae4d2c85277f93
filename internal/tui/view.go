package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/hassist/internal/sensor"
	"github.com/javiermolinar/hassist/internal/session"
)

const (
	inputHeight  = 3
	headerHeight = 2                   // title and stats
	footerHeight = inputHeight + 1 + 1 // input, its border and the status line
)

// View renders the chat panel.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Loading..."
	}
	base := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderStatus(),
		m.styles.InputStyle.Width(m.width).Render(m.input.View()),
	)
	if m.mode != ModeModal || m.modalType == ModalNone {
		return base
	}
	m.overlay.SetBackground(m.styles.ModalBackdropColor)
	return m.overlay.Render(base, m.width, m.height, m.renderModal())
}

func (m Model) renderHeader() string {
	title := m.styles.TitleStyle.Render(m.title)
	return title + "\n" + m.renderStats()
}

func (m Model) renderStats() string {
	s := m.styles
	stat := func(label string, value int) string {
		return s.StatLabelStyle.Render(label+" ") + s.StatValueStyle.Render(fmt.Sprint(value))
	}
	sep := s.StatLabelStyle.Render("  │  ")

	status := s.StatLabelStyle.Render(sensor.StateUnknown)
	today, total, suggestions := 0, 0, 0
	if m.hasStats {
		today = sensor.ConversationsToday(m.stats, m.now())
		total = m.stats.ConversationsCount
		suggestions = m.stats.SuggestionsCount
		status = s.StatusOKStyle.Render(m.stats.Status)
	}
	if m.statsFailed {
		status = s.StatusBadStyle.Render(sensor.StateUnavailable)
	}

	line := strings.Join([]string{
		stat("Today", today),
		stat("Total", total),
		stat("Suggestions", suggestions),
		status,
	}, sep)
	return ansi.Truncate(line, m.width, "…")
}

func (m Model) renderStatus() string {
	switch {
	case m.thinking:
		return m.spinner.View() + m.styles.StatusStyle.Render(" Thinking...")
	case m.statusMsg != "":
		return ansi.Truncate(m.styles.StatusStyle.Render(m.statusMsg), m.width, "…")
	default:
		help := "enter send • alt+enter newline • F1 analyze • F2 optimize • F3 security • F4 suggestions • ctrl+y copy • ctrl+c quit"
		return m.styles.HelpStyle.Render(ansi.Truncate(help, m.width, "…"))
	}
}

// renderTranscript renders every entry for a viewport of the given width.
func (m Model) renderTranscript(width int) string {
	s := m.styles
	if len(m.transcript) == 0 {
		return s.PlaceholderStyle.Render("Ready to analyze your Home Assistant!")
	}
	textWidth := max(width-2, 10)

	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		stamp := s.TimeStyle.Render(" · " + formatTime(e.at))
		switch e.kind {
		case entryTurn:
			b.WriteString(s.UserLabelStyle.Render("You") + stamp + "\n")
			b.WriteString(s.UserMessageStyle.Render(wrap(e.user, textWidth)) + "\n")
			b.WriteString(s.AssistantLabelStyle.Render("Assistant") + stamp + "\n")
			b.WriteString(s.AssistantMsgStyle.Render(wrap(e.assistant, textWidth)) + "\n")
		case entryError:
			b.WriteString(s.ErrorStyle.Render(wrap("Error: "+e.text, width)) + stamp + "\n")
		case entryInfo:
			b.WriteString(s.TimeStyle.Render(wrap(e.text, width)) + stamp + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderModal() string {
	s := m.styles
	inner := m.overlay.BoxWidth(m.width)

	switch m.modalType {
	case ModalSuggestions:
		lines := []string{s.ModalTitleStyle.Render("Suggestions"), ""}
		for i, sg := range m.suggestions {
			line := suggestionLine(i, sg)
			if i == m.selected {
				line = s.ModalSelectedStyle.Render(ansi.Truncate(line, inner, "…"))
			} else {
				line = s.ModalTextStyle.Render(line)
			}
			lines = append(lines, line)
		}
		lines = append(lines, "", s.ModalMutedStyle.Render("↑/↓ select • enter execute • esc close"))
		return strings.Join(lines, "\n")

	case ModalConfirm:
		sg := m.suggestions[m.selected]
		lines := []string{
			s.ModalWarningStyle.Render("Execute this suggestion?"),
			"",
			s.ModalTextStyle.Render(suggestionLine(m.selected, sg)),
		}
		if desc, ok := sg.Payload["description"].(string); ok && desc != "" {
			lines = append(lines, s.ModalMutedStyle.Render(wrap(desc, inner)))
		}
		lines = append(lines, "", s.ModalMutedStyle.Render("y confirm • n cancel"))
		return strings.Join(lines, "\n")

	case ModalHelp:
		return strings.Join([]string{
			s.ModalTitleStyle.Render("Commands"),
			"",
			s.ModalTextStyle.Render("/analyze [focus]  full system analysis"),
			s.ModalTextStyle.Render("/optimize         optimization ideas"),
			s.ModalTextStyle.Render("/security         security review"),
			s.ModalTextStyle.Render("/suggestions      list suggestions"),
			s.ModalTextStyle.Render("/execute <n>      execute suggestion n"),
			s.ModalTextStyle.Render("/copy             copy the last reply"),
			s.ModalTextStyle.Render("/quit             leave"),
			"",
			s.ModalMutedStyle.Render("press any key to close"),
		}, "\n")
	}
	return ""
}

func suggestionLine(i int, sg session.Suggestion) string {
	state := "pending"
	if sg.Executed {
		state = "executed"
	}
	service, _ := sg.Payload["service"].(string)
	if service == "" {
		service = "-"
	}
	return fmt.Sprintf("%d. %-13s %-18s %s", i+1, sg.Type, service, state)
}

func wrap(s string, width int) string {
	return ansi.Wordwrap(s, width, "")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}
