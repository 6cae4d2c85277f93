package assistant

import (
	"fmt"

	"github.com/javiermolinar/hassist/internal/llm"
	"github.com/javiermolinar/hassist/internal/session"
)

// HistoryTurns is the number of recent turns replayed into each prompt.
const HistoryTurns = 5

// DefaultFocusArea is used by Analyze when no focus is given.
const DefaultFocusArea = "general"

const systemPromptTemplate = `You are an expert Home Assistant assistant. You can analyze and optimize Home Assistant configurations.

Home Assistant system context:
%s

Important rules:
- Always propose concrete and safe solutions
- Clearly explain your recommendations
- Use JSON for actionable suggestions, as {"type": "automation" | "script" | "configuration", "payload": {...}}
- Never propose destructive actions without confirmation
- Stay within the Home Assistant context`

const analysisPromptTemplate = `Complete analysis of the Home Assistant system with focus on: %s

Analyze the following points:
1. Entity configuration and usage
2. Performance and possible optimizations
3. Security and best practices
4. Automations and their effectiveness
5. Integrations and compatibility
6. Concrete improvement suggestions

Provide a detailed report with specific action suggestions.`

// SystemPrompt returns the system instruction with the system snapshot embedded.
func SystemPrompt(snapshot string) string {
	return fmt.Sprintf(systemPromptTemplate, snapshot)
}

// AnalysisPrompt returns the analysis request for focusArea.
func AnalysisPrompt(focusArea string) string {
	if focusArea == "" {
		focusArea = DefaultFocusArea
	}
	return fmt.Sprintf(analysisPromptTemplate, focusArea)
}

// BuildMessages assembles the system instruction, the history turns in order
// and the new user message, which appears exactly once and last.
func BuildMessages(snapshot string, history []session.Turn, message string) []llm.Message {
	msgs := make([]llm.Message, 0, 2+2*len(history))
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(snapshot)})
	for _, t := range history {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: t.User},
			llm.Message{Role: llm.RoleAssistant, Content: t.Assistant},
		)
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: message})
}
