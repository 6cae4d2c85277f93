package ui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hassist/internal/assistant"
	"github.com/javiermolinar/hassist/internal/session"
)

func (a *App) askCmd() *cobra.Command {
	var noContext bool
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the assistant a single question",
		Long: `Ask the assistant a single question.

The current Home Assistant configuration summary is sent along with the
question unless --no-context is given. Suggestions found in the reply can be
executed right away after confirmation.

Examples:
  hassist ask "Which lights are still on?"
  hassist ask --no-context "What is a blueprint?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOneShot(cmd.Context(), strings.Join(args, " "), !noContext)
		},
	}
	cmd.Flags().BoolVar(&noContext, "no-context", false, "Do not send the system summary")
	return cmd
}

func (a *App) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [focus area]",
		Short: "Analyze the Home Assistant configuration",
		Long: `Ask for a complete analysis of the installation.

Examples:
  hassist analyze
  hassist analyze security`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			focus := assistant.DefaultFocusArea
			if len(args) == 1 {
				focus = args[0]
			}
			return a.runOneShot(cmd.Context(), assistant.AnalysisPrompt(focus), true)
		},
	}
}

func (a *App) runOneShot(ctx context.Context, message string, includeContext bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := a.newRuntime(os.Stderr, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	inst, err := a.installation(rt)
	if err != nil {
		return err
	}
	defer inst.Close()

	fmt.Println(formatMuted("Thinking..."))
	turn, err := inst.Service().Converse(ctx, message, includeContext)
	if err != nil {
		fmt.Println(formatError("Error: " + err.Error()))
		return err
	}

	fmt.Println()
	fmt.Println(Wrap(turn.Assistant, termWidth()))

	sgs := inst.Store().Suggestions()
	if len(sgs) == 0 {
		return nil
	}
	fmt.Println()
	fmt.Println(formatHeader("Suggestions:"))
	PrintSuggestions(os.Stdout, sgs)

	if !stdinIsTerminal() {
		return nil
	}
	return executeInteractive(ctx, inst.Service(), sgs)
}

// executeInteractive offers to execute the given suggestions one by one.
func executeInteractive(ctx context.Context, svc *assistant.Service, sgs []session.Suggestion) error {
	reader := stdin
	for {
		v := promptValue(reader, "Execute suggestion (number, empty to quit)", "")
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > len(sgs) {
			fmt.Printf("  Pick a number between 1 and %d\n", len(sgs))
			continue
		}
		sg := sgs[n-1]
		if !promptYesNo(fmt.Sprintf("  Execute %s suggestion %s?", sg.Type, sg.ID)) {
			continue
		}
		if err := svc.Execute(ctx, sg.ID, true); err != nil {
			fmt.Println(formatError("  Failed: " + err.Error()))
			continue
		}
		fmt.Println(formatOK("  Executed"))
	}
}
