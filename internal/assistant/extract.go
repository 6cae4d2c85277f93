package assistant

import (
	"encoding/json"
	"strings"

	"github.com/javiermolinar/hassist/internal/llm"
	"github.com/javiermolinar/hassist/internal/session"
)

type suggestionJSON struct {
	Type    session.SuggestionType `json:"type"`
	Payload map[string]any         `json:"payload"`
}

// ExtractSuggestions returns the suggestions embedded as JSON in a reply. It
// accepts a single object, an array, or an object with a "suggestions" array.
// Items with an unknown type are dropped. Ids are left empty.
func ExtractSuggestions(reply string) []session.Suggestion {
	raw := strings.TrimSpace(llm.ExtractJSON(reply))
	if raw == "" {
		return nil
	}

	var items []suggestionJSON
	if raw[0] == '[' {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil
		}
	} else {
		var wrapped struct {
			suggestionJSON
			Suggestions []suggestionJSON `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil
		}
		if len(wrapped.Suggestions) > 0 {
			items = wrapped.Suggestions
		} else {
			items = []suggestionJSON{wrapped.suggestionJSON}
		}
	}

	var out []session.Suggestion
	for _, it := range items {
		if !it.Type.Valid() {
			continue
		}
		out = append(out, session.Suggestion{Type: it.Type, Payload: it.Payload})
	}
	return out
}
