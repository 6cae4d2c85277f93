package assistant

import (
	"context"
	"fmt"

	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/metrics"
	"github.com/javiermolinar/hassist/internal/session"
)

// Handler applies one kind of suggestion.
type Handler interface {
	Apply(ctx context.Context, sg session.Suggestion) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, sg session.Suggestion) error

// Apply calls f.
func (f HandlerFunc) Apply(ctx context.Context, sg session.Suggestion) error { return f(ctx, sg) }

// Handlers holds exactly one handler per suggestion type.
type Handlers struct {
	Automation    Handler
	Script        Handler
	Configuration Handler
}

// For returns the handler for t, or ErrUnknownSuggestionType when there is
// none.
func (h Handlers) For(t session.SuggestionType) (Handler, error) {
	var handler Handler
	switch t {
	case session.TypeAutomation:
		handler = h.Automation
	case session.TypeScript:
		handler = h.Script
	case session.TypeConfiguration:
		handler = h.Configuration
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuggestionType, t)
	}
	return handler, nil
}

// Execute applies the suggestion with the given id. Nothing happens unless
// confirmed is true. A successful apply marks the suggestion executed and
// publishes a notification; executing it again re-applies it.
func (s *Service) Execute(ctx context.Context, id string, confirmed bool) error {
	log := s.log.With().Str("suggestion_id", id).Logger()

	if !confirmed {
		log.Warn().Msg("suggestion execution attempted without confirmation")
		return ErrUnconfirmed
	}

	sg, ok := s.store.Suggestion(id)
	if !ok {
		log.Error().Msg("suggestion not found")
		return fmt.Errorf("%w: %s", ErrSuggestionNotFound, id)
	}

	handler, err := s.handlers.For(sg.Type)
	if err != nil {
		log.Error().Err(err).Msg("no handler for suggestion")
		metrics.SuggestionsExecutedTotal.WithLabelValues(s.entryID, string(sg.Type), metrics.OutcomeError).Inc()
		return err
	}

	if err := handler.Apply(ctx, sg); err != nil {
		log.Error().Err(err).Str("type", string(sg.Type)).Msg("error executing suggestion")
		metrics.SuggestionsExecutedTotal.WithLabelValues(s.entryID, string(sg.Type), metrics.OutcomeError).Inc()
		return fmt.Errorf("executing %s suggestion %s: %w", sg.Type, id, err)
	}

	updated, err := s.store.MarkExecuted(id, s.now())
	if err != nil {
		return fmt.Errorf("marking suggestion %s executed: %w", id, err)
	}
	metrics.SuggestionsExecutedTotal.WithLabelValues(s.entryID, string(sg.Type), metrics.OutcomeSuccess).Inc()

	s.publish(events.SuggestionExecuted, map[string]any{
		"suggestion_id": id,
		"suggestion":    updated,
	})
	log.Info().Str("type", string(sg.Type)).Msg("suggestion executed")
	s.changed()
	return nil
}
