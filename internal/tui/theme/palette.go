package theme

import (
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds colors derived from a Theme.
type Palette struct {
	Bg        lipgloss.Color
	Surface   lipgloss.Color
	Fg        lipgloss.Color
	FgMuted   lipgloss.Color
	Accent    lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color

	// Message backgrounds, tinted towards the speaker color.
	UserBg      lipgloss.Color
	AssistantBg lipgloss.Color

	TextOnAccent  lipgloss.Color
	TextOnWarning lipgloss.Color

	// Backdrop is the modal overlay background.
	Backdrop lipgloss.Color
}

// NewPalette derives a Palette from t. A nil theme uses DefaultName.
func NewPalette(t *Theme) *Palette {
	if t == nil {
		t, _ = Load(DefaultName)
	}
	light := isLight(t.Bg)

	return &Palette{
		Bg:        lipgloss.Color(t.Bg),
		Surface:   lipgloss.Color(t.Surface),
		Fg:        lipgloss.Color(t.Fg),
		FgMuted:   lipgloss.Color(t.FgMuted),
		Accent:    lipgloss.Color(t.Accent),
		User:      lipgloss.Color(t.User),
		Assistant: lipgloss.Color(t.Assistant),
		Error:     lipgloss.Color(t.Error),
		Success:   lipgloss.Color(t.Success),
		Warning:   lipgloss.Color(t.Warning),

		UserBg:      lipgloss.Color(tint(t.User, t.Bg, light)),
		AssistantBg: lipgloss.Color(tint(t.Assistant, t.Bg, light)),

		TextOnAccent:  lipgloss.Color(chooseText(t.Accent, t.Bg, t.Fg)),
		TextOnWarning: lipgloss.Color(chooseText(t.Warning, t.Bg, t.Fg)),

		Backdrop: lipgloss.Color(t.Surface),
	}
}

func isLight(bg string) bool {
	return luminance(bg) > 0.55
}

// tint mixes a speaker color into the background so text stays readable.
func tint(color, bg string, light bool) string {
	if light {
		return blend(color, bg, 0.85)
	}
	return blend(color, bg, 0.80)
}

func chooseText(bg, a, b string) string {
	if contrast(bg, a) >= contrast(bg, b) {
		return a
	}
	return b
}

func contrast(a, b string) float64 {
	l1, l2 := luminance(a), luminance(b)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}

func luminance(hex string) float64 {
	r, g, b, ok := rgb(hex)
	if !ok {
		return 0
	}
	return 0.2126*linear(r) + 0.7152*linear(g) + 0.0722*linear(b)
}

func linear(c int) float64 {
	v := float64(c) / 255.0
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// blend moves a towards b by ratio (0 keeps a, 1 yields b).
func blend(a, b string, ratio float64) string {
	ar, ag, ab, ok1 := rgb(a)
	br, bg, bb, ok2 := rgb(b)
	if !ok1 || !ok2 {
		return a
	}
	ratio = max(0, min(1, ratio))
	mix := func(x, y int) int {
		return int(math.Round(float64(x)*(1-ratio) + float64(y)*ratio))
	}
	return hexColor(mix(ar, br), mix(ag, bg), mix(ab, bb))
}

func rgb(hex string) (r, g, b int, ok bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func hexColor(r, g, b int) string {
	const digits = "0123456789abcdef"
	return string([]byte{'#',
		digits[r>>4], digits[r&0xf],
		digits[g>>4], digits[g&0xf],
		digits[b>>4], digits[b&0xf],
	})
}
