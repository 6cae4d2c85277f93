package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/coordinator"
	"github.com/javiermolinar/hassist/internal/session"
)

var testEntry = Entry{ID: "main", Slug: "openai_assistant", Name: "OpenAI Assistant", Model: "gpt-4"}

func TestBuild_BeforeFirstRefresh(t *testing.T) {
	sensors := Build(testEntry, coordinator.Snapshot{}, false, time.Now())

	if len(sensors) != 3 {
		t.Fatalf("expected 3 sensors, got %d", len(sensors))
	}
	if sensors[0].State != StateUnknown {
		t.Errorf("status state = %q, want %q", sensors[0].State, StateUnknown)
	}
	if sensors[0].Attributes["last_interaction"] != nil {
		t.Errorf("expected nil last_interaction, got %v", sensors[0].Attributes["last_interaction"])
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)
	today := session.Turn{User: "a", Assistant: "b", Timestamp: now.Add(-time.Hour)}
	yesterday := session.Turn{User: "c", Assistant: "d", Timestamp: now.Add(-24 * time.Hour)}
	snap := coordinator.Snapshot{
		ConversationsCount: 2,
		SuggestionsCount:   4,
		LastConversation:   &today,
		Conversations:      []session.Turn{yesterday, today},
		Status:             coordinator.StatusReady,
	}

	sensors := Build(testEntry, snap, true, now)

	status, conversations, suggestions := sensors[0], sensors[1], sensors[2]
	if status.EntityID != "sensor.openai_assistant_status" || status.State != "ready" {
		t.Errorf("unexpected status sensor %+v", status)
	}
	if conversations.State != "2" || conversations.Icon != "mdi:chat" {
		t.Errorf("unexpected conversations sensor %+v", conversations)
	}
	if suggestions.State != "4" || suggestions.Icon != "mdi:lightbulb-on" {
		t.Errorf("unexpected suggestions sensor %+v", suggestions)
	}

	attrs := status.Attributes
	if attrs["model"] != "gpt-4" {
		t.Errorf("model = %v", attrs["model"])
	}
	if attrs["conversations_today"] != 1 {
		t.Errorf("conversations_today = %v, want 1", attrs["conversations_today"])
	}
	if attrs["total_conversations"] != 2 || attrs["total_suggestions"] != 4 {
		t.Errorf("unexpected totals %v", attrs)
	}
	if attrs["last_interaction"] != session.FormatTime(today.Timestamp) {
		t.Errorf("last_interaction = %v", attrs["last_interaction"])
	}
}

type pushed struct {
	entityID string
	state    string
	attrs    map[string]any
}

type fakePusher struct {
	calls []pushed
	err   error
}

func (f *fakePusher) SetState(_ context.Context, entityID, state string, attrs map[string]any) error {
	f.calls = append(f.calls, pushed{entityID, state, attrs})
	return f.err
}

func TestPublisher_OnRefresh(t *testing.T) {
	pusher := &fakePusher{}
	p := NewPublisher(testEntry, pusher, zerolog.Nop())

	p.OnRefresh(coordinator.Snapshot{ConversationsCount: 3, Status: coordinator.StatusReady}, nil)

	if len(pusher.calls) != 3 {
		t.Fatalf("expected 3 pushes, got %d", len(pusher.calls))
	}
	if pusher.calls[1].state != "3" {
		t.Errorf("conversations state = %q, want 3", pusher.calls[1].state)
	}
	if pusher.calls[1].attrs["icon"] != "mdi:chat" {
		t.Errorf("expected icon attribute, got %v", pusher.calls[1].attrs)
	}
	if pusher.calls[0].attrs["friendly_name"] != "OpenAI Assistant Status" {
		t.Errorf("unexpected friendly name %v", pusher.calls[0].attrs["friendly_name"])
	}
}

func TestPublisher_FailedRefresh(t *testing.T) {
	pusher := &fakePusher{err: errors.New("offline")}
	p := NewPublisher(testEntry, pusher, zerolog.Nop())

	p.OnRefresh(coordinator.Snapshot{}, errors.New("store gone"))

	if len(pusher.calls) != 3 {
		t.Fatalf("expected 3 pushes despite push errors, got %d", len(pusher.calls))
	}
	for _, c := range pusher.calls {
		if c.state != StateUnavailable {
			t.Errorf("%s state = %q, want %q", c.entityID, c.state, StateUnavailable)
		}
	}
}
