package tui

import (
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hassist/internal/assistant"
	"github.com/javiermolinar/hassist/internal/tui/commands"
)

// Quick action prompts.
const (
	QuickAnalyze  = "Complete analysis of my Home Assistant system with optimization recommendations"
	QuickOptimize = "What are the best optimizations I can apply to my installation?"
	QuickSecurity = "Check the security of my Home Assistant configuration and suggest improvements"
)

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.mode == ModeModal {
		return m.handleModalKeys(msg)
	}
	return m.handleChatKeys(msg)
}

func (m Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+d":
		return m, tea.Quit
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		if strings.HasPrefix(text, "/") {
			return m.runCommand(text)
		}
		return m.send(text)
	case "f1":
		return m.send(QuickAnalyze)
	case "f2":
		return m.send(QuickOptimize)
	case "f3":
		return m.send(QuickSecurity)
	case "f4":
		return m.openSuggestions()
	case "ctrl+y":
		return m.copyLastReply()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send asks the assistant unless a request is already in flight.
func (m Model) send(text string) (tea.Model, tea.Cmd) {
	if m.thinking {
		return m.setStatus("Still waiting for the previous reply")
	}
	m.thinking = true
	return m, tea.Batch(commands.Ask(m.service, text), m.spinner.Tick)
}

// parseCommand splits "/name args" into its parts.
func parseCommand(text string) (name, arg string) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "/")
	name, arg, _ = strings.Cut(text, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	name, arg := parseCommand(text)
	switch name {
	case "analyze", "analyse":
		if arg == "" {
			return m.send(QuickAnalyze)
		}
		return m.send(assistant.AnalysisPrompt(arg))
	case "optimize":
		return m.send(QuickOptimize)
	case "security":
		return m.send(QuickSecurity)
	case "suggestions":
		return m.openSuggestions()
	case "execute":
		n, err := strconv.Atoi(arg)
		sgs := m.history.Suggestions()
		if err != nil || n < 1 || n > len(sgs) {
			return m.setStatus("Usage: /execute <number> (see /suggestions)")
		}
		m.suggestions = sgs
		m.selected = n - 1
		m.mode, m.modalType = ModeModal, ModalConfirm
		return m, nil
	case "copy":
		return m.copyLastReply()
	case "help":
		m.mode, m.modalType = ModeModal, ModalHelp
		return m, nil
	case "quit", "exit":
		return m, tea.Quit
	default:
		return m.setStatus("Unknown command /" + name + ", try /help")
	}
}

func (m Model) openSuggestions() (tea.Model, tea.Cmd) {
	m.suggestions = m.history.Suggestions()
	if len(m.suggestions) == 0 {
		return m.setStatus("No suggestions yet")
	}
	m.selected = 0
	m.mode, m.modalType = ModeModal, ModalSuggestions
	return m, nil
}

func (m Model) closeModal() Model {
	m.mode, m.modalType = ModeChat, ModalNone
	return m
}

func (m Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.modalType {
	case ModalSuggestions:
		switch key {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.suggestions)-1 {
				m.selected++
			}
		case "enter", "x":
			if m.suggestions[m.selected].Executed {
				return m.setStatus("Suggestion already executed")
			}
			m.modalType = ModalConfirm
		case "esc", "q":
			return m.closeModal(), nil
		}
		return m, nil

	case ModalConfirm:
		switch key {
		case "y", "Y", "enter":
			id := m.suggestions[m.selected].ID
			return m.closeModal(), commands.Execute(m.service, id)
		case "n", "N", "esc", "q":
			return m.closeModal(), nil
		}
		return m, nil

	default:
		return m.closeModal(), nil
	}
}

func (m Model) lastReply() string {
	for i := len(m.transcript) - 1; i >= 0; i-- {
		if m.transcript[i].kind == entryTurn {
			return m.transcript[i].assistant
		}
	}
	return ""
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	reply := m.lastReply()
	if reply == "" {
		return m.setStatus("Nothing to copy")
	}
	if err := clipboard.WriteAll(reply); err != nil {
		return m.setStatus("Copy failed: " + err.Error())
	}
	return m.setStatus("Reply copied to clipboard")
}
