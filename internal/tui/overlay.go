package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	overlayPadding  = 2
	overlayMinWidth = 30
	overlayMaxWidth = 72
)

// OverlayModel draws a centered opaque box over the chat.
type OverlayModel struct {
	bgColor lipgloss.Color
}

// NewOverlayModel initializes an overlay model.
func NewOverlayModel() OverlayModel {
	return OverlayModel{}
}

// SetBackground updates the overlay background color.
func (o *OverlayModel) SetBackground(color lipgloss.Color) {
	o.bgColor = color
}

// BoxWidth returns the inner width available to content for a terminal of
// the given width.
func (o OverlayModel) BoxWidth(width int) int {
	w := min(max(width*2/3, overlayMinWidth), overlayMaxWidth, width)
	return max(w-2*overlayPadding, 1)
}

// Render draws content centered on top of base.
func (o OverlayModel) Render(base string, width, height int, content string) string {
	if width <= 0 || height <= 0 || content == "" {
		return base
	}

	box := o.box(content, width)
	boxW, boxH := lipgloss.Width(box[0]), len(box)
	if boxH > height {
		box = box[:height]
		boxH = height
	}
	top := max((height-boxH)/2, 0)
	left := max((width-boxW)/2, 0)

	lines := normalize(base, width, height)
	for i, line := range box {
		row := top + i
		lines[row] = ansi.Cut(lines[row], 0, left) + line + ansi.Cut(lines[row], left+boxW, width)
	}
	return strings.Join(lines, "\n")
}

// box pads content lines to a uniform width on the overlay background.
func (o OverlayModel) box(content string, width int) []string {
	inner := o.BoxWidth(width)
	bg := o.bgSeq()
	pad := strings.Repeat(" ", overlayPadding)
	blank := bg + strings.Repeat(" ", inner+2*overlayPadding) + ansi.ResetStyle

	lines := []string{blank}
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if w := lipgloss.Width(line); w > inner {
			line = ansi.Truncate(line, inner, "…")
		}
		fill := strings.Repeat(" ", inner-lipgloss.Width(line))
		line = o.keepBackground(line, bg)
		lines = append(lines, bg+pad+line+bg+fill+pad+ansi.ResetStyle)
	}
	return append(lines, blank)
}

func (o OverlayModel) bgSeq() string {
	if o.bgColor == "" {
		return ""
	}
	return ansi.Style{}.BackgroundColor(ansi.HexColor(string(o.bgColor))).String()
}

// keepBackground re-applies the overlay background after every reset in line.
func (o OverlayModel) keepBackground(line, bg string) string {
	if bg == "" {
		return line
	}
	line = strings.ReplaceAll(line, ansi.ResetStyle, ansi.ResetStyle+bg)
	line = strings.ReplaceAll(line, "\x1b[0m", "\x1b[0m"+bg)
	return strings.ReplaceAll(line, "\x1b[49m", "\x1b[49m"+bg)
}

// normalize returns exactly height lines of exactly width cells.
func normalize(base string, width, height int) []string {
	lines := strings.Split(base, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, line := range lines {
		w := lipgloss.Width(line)
		switch {
		case w > width:
			lines[i] = ansi.Cut(line, 0, width)
		case w < width:
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	return lines
}
