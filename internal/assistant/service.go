// Package assistant implements the conversation and suggestion services of an
// installed assistant.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/llm"
	"github.com/javiermolinar/hassist/internal/metrics"
	"github.com/javiermolinar/hassist/internal/session"
)

// DefaultRequestTimeout bounds each chat completion call.
const DefaultRequestTimeout = 60 * time.Second

// Service errors.
var (
	ErrUnconfirmed           = errors.New("suggestion execution requires confirmation")
	ErrSuggestionNotFound    = session.ErrSuggestionNotFound
	ErrUnknownSuggestionType = errors.New("unknown suggestion type")
	ErrServiceNotAllowed     = errors.New("service not allowed for suggestion type")
)

// ContextBuilder renders the system snapshot embedded in prompts.
type ContextBuilder interface {
	Build(ctx context.Context) (string, error)
}

// Service answers user messages and executes suggestions for one entry.
type Service struct {
	entryID  string
	client   llm.Client
	store    *session.Store
	builder  ContextBuilder
	bus      *events.Bus
	handlers Handlers
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
	onChange func()
}

// Option configures a Service.
type Option func(*Service)

// WithContextBuilder sets the source of the system snapshot. Without one,
// asking with context uses an empty snapshot.
func WithContextBuilder(b ContextBuilder) Option {
	return func(s *Service) { s.builder = b }
}

// WithBus sets the bus notifications are published on.
func WithBus(bus *events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithHandlers sets the suggestion handlers.
func WithHandlers(h Handlers) Option {
	return func(s *Service) { s.handlers = h }
}

// WithRequestTimeout sets the deadline applied to each request, context
// build and LLM call together.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithChangeHook registers f to run after the store changes.
func WithChangeHook(f func()) Option {
	return func(s *Service) { s.onChange = f }
}

// NewService creates the service of entryID backed by client and store.
func NewService(entryID string, client llm.Client, store *session.Store, opts ...Option) *Service {
	s := &Service{
		entryID:  entryID,
		client:   client,
		store:    store,
		bus:      events.NewBus(),
		handlers: Handlers{},
		timeout:  DefaultRequestTimeout,
		log:      zerolog.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("entry", entryID).Logger()
	return s
}

// Store returns the session store.
func (s *Service) Store() *session.Store {
	return s.store
}

// Bus returns the notification bus.
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// Ask sends message to the model and records the exchange. Failures are
// logged and published as an error notification; Ask itself reports success
// once the message has been handled.
func (s *Service) Ask(ctx context.Context, message string, includeContext bool) error {
	_, _ = s.Converse(ctx, message, includeContext)
	return nil
}

// Converse behaves like Ask and also returns the recorded turn or the error
// that was published.
func (s *Service) Converse(ctx context.Context, message string, includeContext bool) (session.Turn, error) {
	reply, err := s.complete(ctx, message, includeContext)
	if err != nil {
		s.log.Error().Err(err).Str("llm_error", llm.Class(err)).Msg("error calling the assistant model")
		s.publish(events.ErrorOccurred, map[string]any{
			"error":     err.Error(),
			"timestamp": session.FormatTime(s.now()),
		})
		return session.Turn{}, err
	}

	turn := session.Turn{User: message, Assistant: reply, Timestamp: s.now()}
	s.store.AppendTurn(turn)
	if n := s.registerSuggestions(reply); n > 0 {
		s.log.Info().Int("count", n).Msg("registered suggestions from reply")
	}

	// Listeners read the store, so the reply's suggestions are in before this.
	s.publish(events.ResponseProduced, map[string]any{
		"message":   turn.User,
		"response":  turn.Assistant,
		"timestamp": session.FormatTime(turn.Timestamp),
	})
	s.changed()
	return turn, nil
}

// Analyze asks for a system analysis focused on focusArea.
func (s *Service) Analyze(ctx context.Context, focusArea string) error {
	return s.Ask(ctx, AnalysisPrompt(focusArea), true)
}

// complete runs the whole request, context build included, under the
// request timeout.
func (s *Service) complete(ctx context.Context, message string, includeContext bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var snapshot string
	if includeContext && s.builder != nil {
		var err error
		snapshot, err = s.builder.Build(ctx)
		if err != nil {
			return "", fmt.Errorf("building context: %w", err)
		}
	}

	msgs := BuildMessages(snapshot, s.store.RecentTurns(HistoryTurns), message)

	start := time.Now()
	reply, err := s.client.Chat(ctx, msgs)
	metrics.ObserveLLM(s.entryID, llm.Class(err), time.Since(start))
	if err != nil {
		return "", err
	}
	return reply, nil
}

// AddSuggestion registers a suggestion. An empty id is replaced by a new one.
func (s *Service) AddSuggestion(sg session.Suggestion) (session.Suggestion, error) {
	if sg.ID == "" {
		sg.ID = s.newID()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = s.now()
	}
	if err := s.store.AddSuggestion(sg); err != nil {
		return session.Suggestion{}, err
	}
	s.changed()
	stored, _ := s.store.Suggestion(sg.ID)
	return stored, nil
}

func (s *Service) registerSuggestions(reply string) int {
	n := 0
	for _, sg := range ExtractSuggestions(reply) {
		sg.ID = s.newID()
		sg.CreatedAt = s.now()
		if err := s.store.AddSuggestion(sg); err != nil {
			s.log.Debug().Err(err).Msg("skipping suggestion from reply")
			continue
		}
		n++
	}
	return n
}

func (s *Service) publish(t events.EventType, data map[string]any) {
	s.bus.Publish(events.Event{Type: t, EntryID: s.entryID, Data: data, Time: s.now()})
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
