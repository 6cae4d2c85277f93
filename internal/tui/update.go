package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/tui/commands"
)

const statusDuration = 3 * time.Second

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case commands.EventMsg:
		m = m.handleEvent(msg.Event)
		return m, m.listen()

	case commands.StatsMsg:
		if msg.Err != nil {
			m.statsFailed = true
		} else {
			m.stats, m.hasStats, m.statsFailed = msg.Snapshot, true, false
		}
		return m, m.listen()

	case commands.ExecutedMsg:
		if msg.Err != nil {
			return m.setStatus(fmt.Sprintf("Execution failed: %v", msg.Err))
		}
		return m.setStatus("Executed suggestion " + shortID(msg.ID))

	case commands.ErrMsg:
		m.thinking = false
		m = m.appendEntry(entry{kind: entryError, text: msg.Err.Error(), at: m.now()})
		return m, nil

	case commands.StatusMsg:
		return m.setStatus(msg.Msg)

	case commands.ClearStatusMsg:
		if !m.now().Before(m.statusTime) {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleEvent applies an assistant event to the transcript.
func (m Model) handleEvent(e events.Event) Model {
	switch e.Type {
	case events.ResponseProduced:
		m.thinking = false
		user, _ := e.Data["message"].(string)
		reply, _ := e.Data["response"].(string)
		m = m.appendEntry(entry{
			kind:      entryTurn,
			user:      user,
			assistant: reply,
			at:        eventTime(e),
		})
		if n := len(m.history.Suggestions()); n > 0 {
			m.statusMsg = fmt.Sprintf("%d suggestion(s) available: /suggestions", n)
			m.statusTime = m.now().Add(statusDuration)
		}
	case events.ErrorOccurred:
		m.thinking = false
		text, _ := e.Data["error"].(string)
		m = m.appendEntry(entry{kind: entryError, text: text, at: eventTime(e)})
	case events.SuggestionExecuted:
		id, _ := e.Data["suggestion_id"].(string)
		m = m.appendEntry(entry{kind: entryInfo, text: "Suggestion " + shortID(id) + " executed", at: eventTime(e)})
	}
	return m
}

func eventTime(e events.Event) time.Time {
	if s, ok := e.Data["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return e.Time
}

func (m Model) appendEntry(e entry) Model {
	m.transcript = append(m.transcript, e)
	m.refreshTranscript()
	return m
}

func (m Model) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return commands.Listen(m.updates)
}

func (m Model) setStatus(text string) (Model, tea.Cmd) {
	m.statusMsg = text
	m.statusTime = m.now().Add(statusDuration)
	return m, tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return commands.ClearStatusMsg{}
	})
}

// resize lays out the components for the current terminal size.
func (m *Model) resize() {
	m.input.SetWidth(max(m.width, 10))
	m.viewport.Width = max(m.width, 10)
	m.viewport.Height = max(m.height-headerHeight-footerHeight, 1)
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript(m.viewport.Width))
	m.viewport.GotoBottom()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
