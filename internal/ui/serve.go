package ui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/javiermolinar/hassist/internal/assistant"
	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/httpserver"
)

const pingTimeout = 10 * time.Second

func (a *App) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant service",
		Long: `Run every configured entry as a long-lived service.

The service exposes the ask, analyze and execute_suggestion operations over
HTTP, refreshes the status sensors periodically and publishes them to Home
Assistant together with the assistant events.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.config.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func (a *App) runServe(ctx context.Context) error {
	rt, err := a.newRuntime(os.Stderr, false)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.log

	if rt.rest != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		if err := rt.rest.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("url", a.config.HomeAssistant.URL).Msg("home assistant is not reachable")
		}
		cancel()
	}

	manager := assistant.NewManager()
	defer manager.Close()

	deps := rt.deps(a.config)
	for _, entry := range a.config.Entries {
		inst, err := assistant.NewInstallation(entry, deps)
		if err != nil {
			return err
		}
		if err := inst.Start(ctx); err != nil {
			inst.Close()
			return err
		}
		if err := manager.Add(inst); err != nil {
			inst.Close()
			return fmt.Errorf("loading %s: %w", entry.ID, err)
		}
		log.Info().Str("entry", entry.ID).Str("model", entry.Model).Msg("entry loaded")
	}
	if len(a.config.Entries) == 0 {
		log.Warn().Msg("no entries configured: run `hassist setup` to add one")
	}

	g, gctx := errgroup.WithContext(ctx)

	if rt.rest != nil {
		fwd := events.NewForwarder(rt.rest, log)
		unsubscribe := fwd.Attach(rt.bus)
		defer unsubscribe()
		g.Go(func() error {
			fwd.Run(gctx)
			return nil
		})
	}

	srv := httpserver.New(a.config.Server.Addr, a.config.Server.ShutdownTimeoutDuration(), manager, log)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	return g.Wait()
}
