package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/assistant"
	"github.com/javiermolinar/hassist/internal/config"
	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/hass"
	"github.com/javiermolinar/hassist/internal/logger"
	"github.com/javiermolinar/hassist/internal/snapshot"
)

// runtime holds the collaborators shared by every installation of a process.
type runtime struct {
	log  zerolog.Logger
	bus  *events.Bus
	ws   *hass.WSClient   // nil without a Home Assistant token
	rest *hass.RESTClient // nil without a Home Assistant token
}

// newRuntime builds the runtime logging to w. Quiet commands only log
// warnings unless debug logging is configured.
func (a *App) newRuntime(w io.Writer, quiet bool) (*runtime, error) {
	level := a.config.Log.Level
	if quiet && !strings.EqualFold(level, "debug") {
		level = "warn"
	}
	log, err := logger.NewWithWriter(w, level, a.config.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	rt := &runtime{log: log, bus: events.NewBus()}

	ha := a.config.HomeAssistant
	if ha.Token == "" {
		log.Warn().Msg("no home assistant token configured: system context and suggestion execution are disabled")
		return rt, nil
	}
	rt.ws, err = hass.NewWSClient(ha.URL, ha.Token, log)
	if err != nil {
		return nil, err
	}
	rt.rest = hass.NewRESTClient(ha.URL, ha.Token)
	return rt, nil
}

// deps returns the installation dependencies. Interfaces are only set when
// the backing client exists.
func (rt *runtime) deps(cfg *config.Config) assistant.Deps {
	d := assistant.Deps{
		Bus:      rt.bus,
		Interval: cfg.Coordinator.IntervalDuration(),
		Log:      rt.log,
	}
	if rt.ws != nil {
		d.Context = snapshot.NewBuilder(rt.ws)
	}
	if rt.rest != nil {
		d.Caller = rt.rest
		d.States = rt.rest
	}
	return d
}

func (rt *runtime) Close() {
	if rt.ws != nil {
		_ = rt.ws.Close()
	}
}

// installation builds the installation for the selected entry.
func (a *App) installation(rt *runtime) (*assistant.Installation, error) {
	entry, err := a.config.ResolveEntry(a.entryID)
	if err != nil {
		return nil, err
	}
	return assistant.NewInstallation(*entry, rt.deps(a.config))
}

// panelLogPath is where logs go while the chat panel owns the terminal.
func panelLogPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "hassist.log")
}
