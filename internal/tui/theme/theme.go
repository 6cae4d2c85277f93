// Package theme provides color themes for the TUI.
package theme

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "mocha"

//go:embed embedded/*.toml
var embeddedThemes embed.FS

// Theme holds all colors for a TUI theme.
type Theme struct {
	Name      string `toml:"name"`
	Bg        string `toml:"bg"`
	Surface   string `toml:"surface"` // Stat cards, input box
	Fg        string `toml:"fg"`
	FgMuted   string `toml:"fg_muted"` // Timestamps, hints
	Accent    string `toml:"accent"`   // Title, borders
	User      string `toml:"user"`
	Assistant string `toml:"assistant"`
	Error     string `toml:"error"`
	Success   string `toml:"success"`
	Warning   string `toml:"warning"` // Confirmation prompts
}

// Color returns a lipgloss.Color for the given hex string.
func Color(hex string) lipgloss.Color {
	return lipgloss.Color(hex)
}

// Load loads a theme by name from embedded files.
// Unknown names fall back to DefaultName.
func Load(name string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}
	name = strings.ToLower(name)

	data, err := embeddedThemes.ReadFile("embedded/" + name + ".toml")
	if err != nil {
		if name != DefaultName {
			return Load(DefaultName)
		}
		return nil, fmt.Errorf("loading theme %q: %w", name, err)
	}

	var t Theme
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing theme %q: %w", name, err)
	}
	t.applyDefaults()
	return &t, nil
}

func (t *Theme) applyDefaults() {
	if t.Surface == "" {
		t.Surface = t.Bg
	}
	if t.Assistant == "" {
		t.Assistant = t.Fg
	}
	if t.Warning == "" {
		t.Warning = t.Accent
	}
}

// Available returns the names of the embedded themes.
func Available() []string {
	return []string{"mocha", "latte", "mono"}
}

// IsAvailable reports whether name is an embedded theme, ignoring case.
func IsAvailable(name string) bool {
	return slices.Contains(Available(), strings.ToLower(name))
}
