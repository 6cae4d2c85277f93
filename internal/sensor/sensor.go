// Package sensor derives the published sensor values of an entry from the
// latest coordinator snapshot and pushes them to Home Assistant.
package sensor

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/coordinator"
	"github.com/javiermolinar/hassist/internal/session"
)

// State values used when no snapshot is available.
const (
	StateUnknown     = "unknown"
	StateUnavailable = "unavailable"
)

const (
	iconConversations = "mdi:chat"
	iconSuggestions   = "mdi:lightbulb-on"
	pushTimeout       = 10 * time.Second
)

// Entry identifies the installation the sensors belong to.
type Entry struct {
	ID    string
	Slug  string
	Name  string
	Model string
}

// Sensor is one published value.
type Sensor struct {
	EntityID   string         `json:"entity_id"`
	UniqueID   string         `json:"unique_id"`
	Name       string         `json:"name"`
	Icon       string         `json:"icon,omitempty"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Build returns the status, conversations and suggestions sensors for snap.
// ok is false before the first successful refresh.
func Build(e Entry, snap coordinator.Snapshot, ok bool, now time.Time) []Sensor {
	status := Sensor{
		EntityID: "sensor." + e.Slug + "_status",
		UniqueID: e.ID + "_status",
		Name:     e.Name + " Status",
		State:    StateUnknown,
	}
	conversations := Sensor{
		EntityID: "sensor." + e.Slug + "_conversations",
		UniqueID: e.ID + "_conversations",
		Name:     e.Name + " Conversations",
		Icon:     iconConversations,
		State:    "0",
	}
	suggestions := Sensor{
		EntityID: "sensor." + e.Slug + "_suggestions",
		UniqueID: e.ID + "_suggestions",
		Name:     e.Name + " Suggestions",
		Icon:     iconSuggestions,
		State:    "0",
	}

	if ok {
		if snap.Status != "" {
			status.State = snap.Status
		}
		conversations.State = strconv.Itoa(snap.ConversationsCount)
		suggestions.State = strconv.Itoa(snap.SuggestionsCount)
	}

	var lastInteraction any
	if snap.LastConversation != nil {
		lastInteraction = session.FormatTime(snap.LastConversation.Timestamp)
	}
	status.Attributes = map[string]any{
		"model":               e.Model,
		"conversations_today": ConversationsToday(snap, now),
		"total_conversations": snap.ConversationsCount,
		"total_suggestions":   snap.SuggestionsCount,
		"last_interaction":    lastInteraction,
	}

	return []Sensor{status, conversations, suggestions}
}

// ConversationsToday counts the turns whose timestamp starts with the local
// date of now.
func ConversationsToday(snap coordinator.Snapshot, now time.Time) int {
	prefix := now.Local().Format(time.DateOnly)
	n := 0
	for _, t := range snap.Conversations {
		if strings.HasPrefix(session.FormatTime(t.Timestamp), prefix) {
			n++
		}
	}
	return n
}

// StatePusher writes an entity state to Home Assistant.
type StatePusher interface {
	SetState(ctx context.Context, entityID, state string, attributes map[string]any) error
}

// Publisher pushes the sensors after every coordinator refresh.
type Publisher struct {
	entry  Entry
	pusher StatePusher
	log    zerolog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher for entry.
func NewPublisher(entry Entry, pusher StatePusher, log zerolog.Logger) *Publisher {
	return &Publisher{
		entry:  entry,
		pusher: pusher,
		log:    log.With().Str("component", "sensor").Str("entry", entry.ID).Logger(),
		now:    time.Now,
	}
}

// OnRefresh implements coordinator.Listener. A failed refresh marks every
// sensor unavailable.
func (p *Publisher) OnRefresh(snap coordinator.Snapshot, err error) {
	sensors := Build(p.entry, snap, err == nil, p.now())
	if err != nil {
		for i := range sensors {
			sensors[i].State = StateUnavailable
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	for _, s := range sensors {
		if perr := p.pusher.SetState(ctx, s.EntityID, s.State, s.haAttributes()); perr != nil {
			p.log.Warn().Err(perr).Str("entity_id", s.EntityID).Msg("failed to publish sensor")
		}
	}
}

func (s Sensor) haAttributes() map[string]any {
	attrs := make(map[string]any, len(s.Attributes)+2)
	for k, v := range s.Attributes {
		attrs[k] = v
	}
	attrs["friendly_name"] = s.Name
	if s.Icon != "" {
		attrs["icon"] = s.Icon
	}
	return attrs
}
