// Package session holds the in-memory conversation and suggestion state of
// one installed assistant.
package session

import (
	"errors"
	"fmt"
	"time"
)

// DefaultHistoryLimit is the number of turns retained when no limit is given.
const DefaultHistoryLimit = 100

// Domain errors.
var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrDuplicateID        = errors.New("suggestion id already exists")
	ErrEmptyID            = errors.New("suggestion id cannot be empty")
	ErrInvalidType        = errors.New("suggestion type must be automation, script or configuration")
)

// Turn is one user message and the assistant reply to it.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}

// SuggestionType identifies which handler applies a suggestion.
type SuggestionType string

const (
	TypeAutomation    SuggestionType = "automation"
	TypeScript        SuggestionType = "script"
	TypeConfiguration SuggestionType = "configuration"
)

// Valid returns true if the type is one of the known suggestion types.
func (t SuggestionType) Valid() bool {
	switch t {
	case TypeAutomation, TypeScript, TypeConfiguration:
		return true
	}
	return false
}

// Suggestion is a proposed action awaiting confirmed execution.
type Suggestion struct {
	ID         string         `json:"id"`
	Type       SuggestionType `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
	Executed   bool           `json:"executed"`
	ExecutedAt *time.Time     `json:"executed_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks the fields required to register a suggestion.
func (s Suggestion) Validate() error {
	if s.ID == "" {
		return ErrEmptyID
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidType, s.Type)
	}
	return nil
}

func (s Suggestion) clone() Suggestion {
	c := s
	c.Payload = clonePayload(s.Payload)
	if s.ExecutedAt != nil {
		at := *s.ExecutedAt
		c.ExecutedAt = &at
	}
	return c
}

func clonePayload(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types produced by JSON decoding and by
// callers building payloads by hand. Other values are immutable or copied
// by assignment.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return clonePayload(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}

// Stats is a consistent view of the store counters.
type Stats struct {
	Conversations int
	Suggestions   int
	Last          *Turn
	Turns         []Turn // oldest first
}

// FormatTime formats t the way turn timestamps are published: RFC 3339 in
// local time, so the date prefix is the local date.
func FormatTime(t time.Time) string {
	return t.Local().Format(time.RFC3339)
}
