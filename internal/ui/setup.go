package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hassist/internal/config"
	"github.com/javiermolinar/hassist/internal/logger"
	"github.com/javiermolinar/hassist/internal/setup"
)

// formMessages are the user facing texts of the form error codes.
var formMessages = map[string]string{
	setup.ErrCodeInvalidAuth:   "The API key was rejected. Get one at " + setup.DocsURL,
	setup.ErrCodeRateLimit:     "The API key is rate limited. Try again later.",
	setup.ErrCodeCannotConnect: "Could not connect to the model provider.",
}

func (a *App) setupCmd() *cobra.Command {
	form := setup.DefaultForm()
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Add an assistant entry",
		Long: `Add an assistant entry.

The API key is checked with a short test request before the entry is saved.
Only one entry per API key is allowed.

Examples:
  hassist setup
  hassist setup --api-key sk-... --model gpt-4 --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !nonInteractive {
				if err := promptForm(cmd, &form); err != nil {
					return err
				}
			}
			return a.runSetup(cmd.Context(), form)
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", form.Name, "Entry name")
	cmd.Flags().StringVar(&form.APIKey, "api-key", "", "OpenAI API key")
	cmd.Flags().StringVar(&form.Model, "model", form.Model, "Model ("+strings.Join(config.Models, ", ")+")")
	cmd.Flags().IntVar(&form.MaxTokens, "max-tokens", form.MaxTokens, "Maximum tokens per reply (100-4000)")
	cmd.Flags().Float64Var(&form.Temperature, "temperature", form.Temperature, "Sampling temperature (0-2)")
	cmd.Flags().StringVar(&form.Provider, "provider", form.Provider, "Model provider (openai, ollama)")
	cmd.Flags().StringVar(&form.BaseURL, "base-url", "", "Override the provider API URL")
	cmd.Flags().BoolVarP(&nonInteractive, "yes", "y", false, "Use flag values without prompting")

	return cmd
}

func (a *App) runSetup(ctx context.Context, form setup.Form) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logger.New(a.config.Log.Level, a.config.Log.Format)
	if err != nil {
		return err
	}

	fmt.Println(formatMuted("Checking API key..."))
	entry, err := setup.NewFlow(a.config, nil, log).Submit(ctx, form)
	var fe setup.FormErrors
	switch {
	case errors.As(err, &fe):
		printFormErrors(fe)
		return errors.New("setup failed")
	case errors.Is(err, config.ErrAlreadyConfigured):
		fmt.Println(formatError("An entry with this API key is already configured."))
		return err
	case err != nil:
		return err
	}

	if err := a.save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("%s %s (%s) using %s\n", formatOK("Configured"), entry.Name, entry.ID, entry.Model)
	return nil
}

func printFormErrors(fe setup.FormErrors) {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		msg := fe[f]
		if f == setup.BaseField {
			if m, ok := formMessages[msg]; ok {
				msg = m
			}
			fmt.Println(formatError(msg))
			continue
		}
		fmt.Printf("%s %s\n", formatError(f+":"), msg)
	}
}

func promptForm(cmd *cobra.Command, form *setup.Form) error {
	reader := stdin
	flags := cmd.Flags()

	if !flags.Changed("name") {
		form.Name = promptValue(reader, "Name", form.Name)
	}
	if form.APIKey == "" {
		fmt.Print("  API key: ")
		key, err := readLine(reader)
		if err != nil {
			return fmt.Errorf("reading api key: %w", err)
		}
		form.APIKey = key
	}
	if !flags.Changed("model") {
		form.Model = promptValue(reader, "Model ("+strings.Join(config.Models, ", ")+")", form.Model)
	}
	if !flags.Changed("max-tokens") {
		form.MaxTokens = promptInt(reader, "Max tokens", form.MaxTokens)
	}
	if !flags.Changed("temperature") {
		form.Temperature = promptFloat(reader, "Temperature", form.Temperature)
	}
	return nil
}

func promptInt(reader *bufio.Reader, label string, current int) int {
	for {
		v := promptValue(reader, label, strconv.Itoa(current))
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		fmt.Printf("  Invalid number %q\n", v)
	}
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	for {
		v := promptValue(reader, label, strconv.FormatFloat(current, 'f', -1, 64))
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
		fmt.Printf("  Invalid number %q\n", v)
	}
}
