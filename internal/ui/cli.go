package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hassist/internal/config"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config     *config.Config
	configPath string
	root       *cobra.Command
	entryID    string // --entry
	noColor    bool
}

// NewApp creates a new CLI application for the config loaded from configPath.
func NewApp(cfg *config.Config, configPath string) *App {
	a := &App{config: cfg, configPath: configPath}

	a.root = &cobra.Command{
		Use:   "hassist",
		Short: "An OpenAI assistant for Home Assistant",
		Long: `hassist connects Home Assistant to an OpenAI compatible chat model.

It answers questions about your installation, analyzes its configuration,
executes confirmed suggestions and publishes status sensors back to
Home Assistant.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.noColor {
				DisableColor()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	a.root.PersistentFlags().StringVar(&a.entryID, "entry", "", "Entry id to use when several are configured")
	a.root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.setupCmd())
	a.root.AddCommand(a.entriesCmd())
	a.root.AddCommand(a.serveCmd())
	a.root.AddCommand(a.askCmd())
	a.root.AddCommand(a.analyzeCmd())
	a.root.AddCommand(a.chatCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("hassist %s (commit: %s)\n", Version, Commit)
		},
	}
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

func (a *App) save() error {
	return a.config.SaveTo(a.configPath)
}
