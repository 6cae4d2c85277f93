package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hassist/internal/config"
	"github.com/javiermolinar/hassist/internal/tui/theme"
)

func (a *App) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and allows editing.
Assistant entries are added with "hassist setup".

Example:
  hassist config`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runConfigInteractive()
		},
	}
}

func (a *App) runConfigInteractive() error {
	fmt.Printf("Config file: %s\n\n", a.configPath)

	_, fileErr := os.Stat(a.configPath)
	if os.IsNotExist(fileErr) {
		fmt.Println("No config file found. Creating with default values...")
		if err := a.save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Created %s\n\n", a.configPath)
	}

	printConfig(os.Stdout, a.config)

	if !promptYesNo("\nWould you like to edit the configuration?") {
		return nil
	}

	reader := stdin
	cfg := *a.config

	cfg.Server.Addr = promptValue(reader, "Listen address", cfg.Server.Addr)
	cfg.HomeAssistant.URL = promptValue(reader, "Home Assistant URL", cfg.HomeAssistant.URL)
	if promptYesNo("  Change Home Assistant token?") {
		fmt.Print("  Token: ")
		token, err := readLine(reader)
		if err != nil {
			return err
		}
		cfg.HomeAssistant.Token = token
	}
	cfg.Coordinator.Interval = promptValue(reader, "Status refresh interval", cfg.Coordinator.Interval)
	cfg.Log.Level = promptValue(reader, "Log level", cfg.Log.Level)
	cfg.Log.Format = promptValue(reader, "Log format (console, json)", cfg.Log.Format)
	cfg.UI.Theme = promptTheme(reader, cfg.UI.Theme)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	*a.config = cfg
	if err := a.save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("\nConfiguration saved!")
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintln(w, "──────────────────────")
	fmt.Fprintln(w, "[server]")
	fmt.Fprintf(w, "  addr             = %s\n", cfg.Server.Addr)
	fmt.Fprintf(w, "  shutdown_timeout = %s\n", cfg.Server.ShutdownTimeout)
	fmt.Fprintln(w, "\n[homeassistant]")
	fmt.Fprintf(w, "  url              = %s\n", cfg.HomeAssistant.URL)
	fmt.Fprintf(w, "  token            = %s\n", MaskKey(cfg.HomeAssistant.Token))
	fmt.Fprintln(w, "\n[coordinator]")
	fmt.Fprintf(w, "  interval         = %s\n", cfg.Coordinator.Interval)
	fmt.Fprintln(w, "\n[log]")
	fmt.Fprintf(w, "  level            = %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "  format           = %s\n", cfg.Log.Format)
	fmt.Fprintln(w, "\n[ui]")
	fmt.Fprintf(w, "  theme            = %s\n", cfg.UI.Theme)
	for _, e := range cfg.Entries {
		fmt.Fprintln(w, "\n[[entries]]")
		fmt.Fprintf(w, "  id               = %s\n", e.ID)
		fmt.Fprintf(w, "  name             = %s\n", e.Name)
		fmt.Fprintf(w, "  provider         = %s\n", e.Provider)
		fmt.Fprintf(w, "  model            = %s\n", e.Model)
		fmt.Fprintf(w, "  api_key          = %s\n", MaskKey(e.APIKey))
		fmt.Fprintf(w, "  max_tokens       = %d\n", e.MaxTokens)
		fmt.Fprintf(w, "  temperature      = %.1f\n", e.Temperature)
		if e.BaseURL != "" {
			fmt.Fprintf(w, "  base_url         = %s\n", e.BaseURL)
		}
	}
}

func promptYesNo(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	input, _ := stdin.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(reader *bufio.Reader, label, current string) string {
	if current == "" {
		fmt.Printf("  %s: ", label)
	} else {
		fmt.Printf("  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func promptTheme(reader *bufio.Reader, current string) string {
	options := strings.Join(theme.Available(), ", ")
	label := fmt.Sprintf("UI theme (%s)", options)
	for {
		value := strings.ToLower(promptValue(reader, label, current))
		if theme.IsAvailable(value) {
			return value
		}
		fmt.Printf("  Invalid theme %q. Available: %s\n", value, options)
	}
}

// readLine reads a secret without echo on terminals.
func readLine(reader *bufio.Reader) (string, error) {
	if stdinIsTerminal() {
		s, err := readSecret()
		fmt.Println()
		return strings.TrimSpace(s), err
	}
	s, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(s), nil
}
