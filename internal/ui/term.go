package ui

import (
	"bufio"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Color definitions for consistent styling across the UI.
var (
	// User messages: bold cyan
	colorUser = color.New(color.FgCyan, color.Bold)

	// Assistant replies: default foreground
	colorAssistant = color.New(color.FgWhite)

	// Errors: red
	colorError = color.New(color.FgRed, color.Bold)

	// Headers: bold
	colorHeader = color.New(color.Bold)

	// Success and counters: green
	colorOK = color.New(color.FgGreen)

	// Muted: for secondary information
	colorMuted = color.New(color.FgWhite, color.Faint)
)

// stdin is shared by every prompt so buffered input is never lost between
// readers.
var stdin = bufio.NewReader(os.Stdin)

// termWidth returns the terminal width, or a default if detection fails.
func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// stdinIsTerminal reports whether input comes from an interactive terminal.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DisableColor disables all color output.
func DisableColor() {
	color.NoColor = true
}

// EnableColor enables color output (if terminal supports it).
func EnableColor() {
	color.NoColor = false
}

func formatUser(s string) string      { return colorUser.Sprint(s) }
func formatAssistant(s string) string { return colorAssistant.Sprint(s) }
func formatError(s string) string     { return colorError.Sprint(s) }
func formatHeader(s string) string    { return colorHeader.Sprint(s) }
func formatOK(s string) string        { return colorOK.Sprint(s) }
func formatMuted(s string) string     { return colorMuted.Sprint(s) }
