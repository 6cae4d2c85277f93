package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/logger"
	"github.com/javiermolinar/hassist/internal/tui"
)

func (a *App) chatCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant",
		Long: `Open the chat panel.

The panel shows the conversation statistics, the transcript and the pending
suggestions. When stdin is not a terminal, or with --plain, every input line
is sent as one message and the replies are printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return a.runChat(ctx, plain || !stdinIsTerminal())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Line based chat without the full screen panel")
	return cmd
}

func (a *App) runChat(ctx context.Context, plain bool) error {
	logOut, closeLog := a.chatLogOutput(plain)
	defer closeLog()
	rt, err := a.newRuntime(logOut, plain)
	if err != nil {
		return err
	}
	defer rt.Close()

	inst, err := a.installation(rt)
	if err != nil {
		return err
	}
	if err := inst.Start(ctx); err != nil {
		return err
	}
	defer inst.Close()

	if rt.rest != nil {
		fwd := events.NewForwarder(rt.rest, rt.log)
		defer fwd.Attach(rt.bus)()
		fwdCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go fwd.Run(fwdCtx)
	}

	if !plain {
		return tui.Run(inst, rt.bus, a.config.UI.Theme)
	}

	width := termWidth()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		turn, err := inst.Service().Converse(ctx, line, true)
		if err != nil {
			fmt.Println(formatError("Error: " + err.Error()))
			continue
		}
		PrintTurn(os.Stdout, turn, width)
		fmt.Println()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if err := inst.Coordinator().Refresh(ctx); err != nil {
		rt.log.Warn().Err(err).Msg("refreshing status")
	}
	fmt.Println(formatHeader("Sensors:"))
	PrintSensors(os.Stdout, inst.Sensors())
	return nil
}

// chatLogOutput keeps logs off the screen while the full screen panel runs:
// they go to a file next to the config, or nowhere if it cannot be opened.
func (a *App) chatLogOutput(plain bool) (io.Writer, func()) {
	if plain {
		return os.Stderr, func() {}
	}
	f, err := logger.OpenFile(panelLogPath(a.configPath))
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}
