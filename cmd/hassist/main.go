package main

import (
	"fmt"
	"os"

	"github.com/javiermolinar/hassist/internal/config"
	"github.com/javiermolinar/hassist/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("HASSIST_CONFIG")
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	return ui.NewApp(cfg, path).Execute()
}
