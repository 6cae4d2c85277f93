// Package tui provides the chat panel of the assistant.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hassist/internal/assistant"
	"github.com/javiermolinar/hassist/internal/coordinator"
	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/session"
	"github.com/javiermolinar/hassist/internal/tui/commands"
	"github.com/javiermolinar/hassist/internal/tui/theme"
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeChat Mode = iota
	ModeModal
)

// ModalType identifies the type of modal.
type ModalType int

const (
	ModalNone        ModalType = iota
	ModalSuggestions           // Pick a suggestion to execute
	ModalConfirm               // Confirm one execution
	ModalHelp
)

// History is the stored state shown by the panel.
type History interface {
	Turns() []session.Turn
	Suggestions() []session.Suggestion
}

type entryKind int

const (
	entryTurn entryKind = iota
	entryError
	entryInfo
)

// entry is one block of the transcript.
type entry struct {
	kind      entryKind
	user      string
	assistant string
	text      string
	at        time.Time
}

// Model is the main TUI model.
type Model struct {
	// Dependencies
	service commands.Service
	history History
	updates <-chan tea.Msg
	title   string

	styles *Styles

	// State
	mode        Mode
	modalType   ModalType
	thinking    bool
	transcript  []entry
	stats       coordinator.Snapshot
	hasStats    bool
	statsFailed bool

	// Suggestion modal state
	suggestions []session.Suggestion
	selected    int

	overlay OverlayModel

	// Components
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int

	// Messages
	statusMsg  string
	statusTime time.Time

	now func() time.Time
}

// ModelOption configures optional model behavior.
type ModelOption func(*Model)

// WithUpdates sets the channel the model listens on for events and refreshes.
func WithUpdates(ch <-chan tea.Msg) ModelOption {
	return func(m *Model) { m.updates = ch }
}

// WithTheme selects the color theme.
func WithTheme(name string) ModelOption {
	return func(m *Model) {
		t, err := theme.Load(name)
		if err == nil {
			m.styles = NewStyles(t)
		}
	}
}

// WithTitle sets the panel title.
func WithTitle(title string) ModelOption {
	return func(m *Model) { m.title = title }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) { m.now = now }
}

// New creates a new TUI model.
func New(svc commands.Service, history History, opts ...ModelOption) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your Home Assistant... (/help for commands)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	t, _ := theme.Load(theme.DefaultName)
	m := Model{
		service:  svc,
		history:  history,
		title:    "OpenAI Assistant",
		styles:   NewStyles(t),
		input:    ta,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		overlay:  NewOverlayModel(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.spinner.Style = m.styles.SpinnerStyle

	for _, turn := range history.Turns() {
		m.transcript = append(m.transcript, entry{
			kind:      entryTurn,
			user:      turn.User,
			assistant: turn.Assistant,
			at:        turn.Timestamp,
		})
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.updates != nil {
		cmds = append(cmds, commands.Listen(m.updates))
	}
	return tea.Batch(cmds...)
}

// Run starts the chat panel for inst until the user quits.
func Run(inst *assistant.Installation, bus *events.Bus, themeName string) error {
	updates, unsubscribe := commands.Subscribe(bus, inst.Entry().ID, inst.Coordinator())
	defer unsubscribe()

	model := New(inst.Service(), inst.Store(),
		WithUpdates(updates),
		WithTheme(themeName),
		WithTitle(inst.Entry().Name),
	)
	if snap, ok := inst.Coordinator().Data(); ok {
		model.stats, model.hasStats = snap, true
	}
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
