// Package commands provides TUI command constructors and message types.
package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hassist/internal/coordinator"
	"github.com/javiermolinar/hassist/internal/events"
)

// Service is the part of the assistant service driven by the TUI.
type Service interface {
	Ask(ctx context.Context, message string, includeContext bool) error
	Execute(ctx context.Context, id string, confirmed bool) error
}

// EventMsg carries an assistant event for the displayed entry.
type EventMsg struct {
	Event events.Event
}

// StatsMsg is sent after every status refresh.
type StatsMsg struct {
	Snapshot coordinator.Snapshot
	Err      error
}

// ExecutedMsg is sent when a suggestion execution finishes.
type ExecutedMsg struct {
	ID  string
	Err error
}

// ErrMsg is sent when an error occurs.
type ErrMsg struct {
	Err error
}

// StatusMsg is sent for temporary status messages.
type StatusMsg struct {
	Msg string
}

// ClearStatusMsg is sent to clear the status message.
type ClearStatusMsg struct{}

// Ask sends message with the system summary. The reply, or the failure,
// arrives as an EventMsg.
func Ask(svc Service, message string) tea.Cmd {
	return func() tea.Msg {
		if err := svc.Ask(context.Background(), message, true); err != nil {
			return ErrMsg{Err: err}
		}
		return nil
	}
}

// Execute runs a confirmed suggestion.
func Execute(svc Service, id string) tea.Cmd {
	return func() tea.Msg {
		err := svc.Execute(context.Background(), id, true)
		return ExecutedMsg{ID: id, Err: err}
	}
}

// Listen waits for the next update on ch.
func Listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// Subscribe forwards the events of entryID and the refreshes of coord to
// the returned channel. Updates are dropped while the channel is full.
func Subscribe(bus *events.Bus, entryID string, coord *coordinator.Coordinator) (<-chan tea.Msg, func()) {
	ch := make(chan tea.Msg, 32)
	send := func(msg tea.Msg) {
		select {
		case ch <- msg:
		default:
		}
	}

	unsubscribe := bus.Subscribe(func(e events.Event) {
		if e.EntryID == entryID {
			send(EventMsg{Event: e})
		}
	}, events.ResponseProduced, events.ErrorOccurred, events.SuggestionExecuted)

	if coord != nil {
		coord.AddListener(coordinator.ListenerFunc(func(snap coordinator.Snapshot, err error) {
			send(StatsMsg{Snapshot: snap, Err: err})
		}))
	}
	return ch, unsubscribe
}
