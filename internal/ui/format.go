package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/javiermolinar/hassist/internal/sensor"
	"github.com/javiermolinar/hassist/internal/session"
)

// MaskKey hides all but the first characters of an API key.
func MaskKey(key string) string {
	const visible = 6
	if key == "" {
		return "(not set)"
	}
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return key[:visible] + strings.Repeat("*", min(len(key)-visible, 12))
}

// Wrap breaks s into lines of at most width runes on word boundaries.
// Existing line breaks are kept.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len([]rune(line))+1+len([]rune(w)) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// PrintTurn writes one exchange.
func PrintTurn(w io.Writer, t session.Turn, width int) {
	fmt.Fprintf(w, "%s %s\n", formatUser("You:"), t.User)
	fmt.Fprintf(w, "%s\n%s\n", formatHeader("Assistant:"), formatAssistant(Wrap(t.Assistant, width)))
	fmt.Fprintf(w, "%s\n", formatMuted(t.Timestamp.Local().Format(time.DateTime)))
}

// PrintSuggestions writes the numbered suggestion list.
func PrintSuggestions(w io.Writer, sgs []session.Suggestion) {
	if len(sgs) == 0 {
		fmt.Fprintln(w, formatMuted("No suggestions."))
		return
	}
	for i, sg := range sgs {
		state := formatMuted("pending")
		if sg.Executed {
			state = formatOK("executed")
		}
		service, _ := sg.Payload["service"].(string)
		if service == "" {
			service = "-"
		}
		fmt.Fprintf(w, "  %2d. %-36s  %-13s  %-18s  %s\n", i+1, sg.ID, sg.Type, service, state)
	}
}

// PrintSensors writes the sensor states.
func PrintSensors(w io.Writer, sensors []sensor.Sensor) {
	for _, s := range sensors {
		fmt.Fprintf(w, "  %-45s  %s\n", s.EntityID, formatOK(s.State))
	}
}
