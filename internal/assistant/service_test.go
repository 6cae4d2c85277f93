package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/llm"
	"github.com/javiermolinar/hassist/internal/session"
)

// fakeClient records every request and replies from a script.
type fakeClient struct {
	mu       sync.Mutex
	requests [][]llm.Message
	reply    func(n int, msgs []llm.Message) (string, error)
}

func (f *fakeClient) Chat(ctx context.Context, msgs []llm.Message) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, msgs)
	n := len(f.requests)
	f.mu.Unlock()
	if f.reply == nil {
		return fmt.Sprintf("reply %d", n), nil
	}
	return f.reply(n, msgs)
}

func replyWith(s string) func(int, []llm.Message) (string, error) {
	return func(int, []llm.Message) (string, error) { return s, nil }
}

func failWith(err error) func(int, []llm.Message) (string, error) {
	return func(int, []llm.Message) (string, error) { return "", err }
}

type fakeBuilder struct {
	out string
	err error
}

func (f fakeBuilder) Build(context.Context) (string, error) { return f.out, f.err }

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T, client llm.Client, opts ...Option) (*Service, *eventLog) {
	t.Helper()
	bus := events.NewBus()
	log := &eventLog{}
	bus.Subscribe(log.record)
	opts = append([]Option{WithBus(bus)}, opts...)
	return NewService("main", client, session.NewStore(0), opts...), log
}

func TestAsk_Example(t *testing.T) {
	client := &fakeClient{reply: replyWith("Lights off.")}
	svc, log := newTestService(t, client)

	if err := svc.Ask(context.Background(), "Turn off lights", false); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	turns := svc.Store().Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].User != "Turn off lights" || turns[0].Assistant != "Lights off." {
		t.Errorf("unexpected turn %+v", turns[0])
	}

	produced := log.ofType(events.ResponseProduced)
	if len(produced) != 1 {
		t.Fatalf("expected 1 response notification, got %d", len(produced))
	}
	data := produced[0].Data
	if data["message"] != "Turn off lights" || data["response"] != "Lights off." {
		t.Errorf("unexpected notification data %v", data)
	}
	if _, ok := data["timestamp"].(string); !ok {
		t.Errorf("expected string timestamp, got %T", data["timestamp"])
	}
	if produced[0].EntryID != "main" {
		t.Errorf("expected entry id main, got %q", produced[0].EntryID)
	}
}

func TestAsk_HistoryWindow(t *testing.T) {
	client := &fakeClient{}
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	for n := 1; n <= 8; n++ {
		msg := fmt.Sprintf("message %d", n)
		if err := svc.Ask(ctx, msg, false); err != nil {
			t.Fatalf("Ask(%d) error = %v", n, err)
		}
		if got := svc.Store().TurnCount(); got != n {
			t.Fatalf("after call %d: turn count = %d", n, got)
		}

		req := client.requests[n-1]
		wantPrior := min(n-1, HistoryTurns)
		if len(req) != 1+2*wantPrior+1 {
			t.Fatalf("call %d: expected %d messages, got %d", n, 2+2*wantPrior, len(req))
		}
		if req[0].Role != llm.RoleSystem {
			t.Errorf("call %d: first message role = %s", n, req[0].Role)
		}

		// History is replayed oldest first, as user/assistant pairs.
		for i := 0; i < wantPrior; i++ {
			turnNo := n - wantPrior + i
			u, a := req[1+2*i], req[2+2*i]
			if u.Role != llm.RoleUser || u.Content != fmt.Sprintf("message %d", turnNo) {
				t.Errorf("call %d: history user %d = %+v", n, i, u)
			}
			if a.Role != llm.RoleAssistant || a.Content != fmt.Sprintf("reply %d", turnNo) {
				t.Errorf("call %d: history assistant %d = %+v", n, i, a)
			}
		}

		last := req[len(req)-1]
		if last.Role != llm.RoleUser || last.Content != msg {
			t.Errorf("call %d: last message = %+v", n, last)
		}
		count := 0
		for _, m := range req {
			if m.Role == llm.RoleUser && m.Content == msg {
				count++
			}
		}
		if count != 1 {
			t.Errorf("call %d: new message appears %d times", n, count)
		}
	}
}

func TestAsk_Failures(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeClient
		builder ContextBuilder
		wantErr error
	}{
		{"authentication", &fakeClient{reply: failWith(fmt.Errorf("chat completion: %w", llm.ErrAuthentication))}, nil, llm.ErrAuthentication},
		{"rate limited", &fakeClient{reply: failWith(llm.ErrRateLimited)}, nil, llm.ErrRateLimited},
		{"transport", &fakeClient{reply: failWith(llm.ErrTransport)}, nil, llm.ErrTransport},
		{"malformed", &fakeClient{reply: failWith(llm.ErrMalformedResponse)}, nil, llm.ErrMalformedResponse},
		{"context build", &fakeClient{}, fakeBuilder{err: errors.New("registry down")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.builder != nil {
				opts = append(opts, WithContextBuilder(tt.builder))
			}
			svc, log := newTestService(t, tt.client, opts...)

			if err := svc.Ask(context.Background(), "hello", true); err != nil {
				t.Fatalf("Ask() should swallow failures, got %v", err)
			}
			if n := svc.Store().TurnCount(); n != 0 {
				t.Errorf("expected no turns, got %d", n)
			}
			errs := log.ofType(events.ErrorOccurred)
			if len(errs) != 1 {
				t.Fatalf("expected exactly 1 error notification, got %d", len(errs))
			}
			if len(log.ofType(events.ResponseProduced)) != 0 {
				t.Error("unexpected response notification")
			}
			if msg, _ := errs[0].Data["error"].(string); msg == "" {
				t.Error("expected error description in notification")
			}

			_, err := svc.Converse(context.Background(), "hello", true)
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Converse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAsk_IncludesContext(t *testing.T) {
	client := &fakeClient{}
	svc, _ := newTestService(t, client, WithContextBuilder(fakeBuilder{out: "light: 3 entities"}))

	_ = svc.Ask(context.Background(), "hi", true)
	_ = svc.Ask(context.Background(), "hi", false)

	if !strings.Contains(client.requests[0][0].Content, "light: 3 entities") {
		t.Error("expected snapshot in system prompt")
	}
	if strings.Contains(client.requests[1][0].Content, "light: 3 entities") {
		t.Error("snapshot included although include_context was false")
	}
}

func TestAsk_Deadline(t *testing.T) {
	var deadline time.Time
	blocking := llmFunc(func(ctx context.Context, _ []llm.Message) (string, error) {
		deadline, _ = ctx.Deadline()
		<-ctx.Done()
		return "", fmt.Errorf("chat completion: %w: %w", llm.ErrTransport, ctx.Err())
	})
	svc, log := newTestService(t, blocking, WithRequestTimeout(20*time.Millisecond))

	start := time.Now()
	_ = svc.Ask(context.Background(), "slow", false)

	if deadline.IsZero() {
		t.Fatal("expected a deadline on the LLM call")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Ask took %s despite timeout", elapsed)
	}
	if len(log.ofType(events.ErrorOccurred)) != 1 {
		t.Error("expected an error notification on timeout")
	}
}

type builderFunc func(ctx context.Context) (string, error)

func (f builderFunc) Build(ctx context.Context) (string, error) { return f(ctx) }

func TestAsk_DeadlineCoversContextBuild(t *testing.T) {
	stalled := builderFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	client := &fakeClient{reply: replyWith("unused")}
	svc, log := newTestService(t, client,
		WithContextBuilder(stalled),
		WithRequestTimeout(50*time.Millisecond),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Ask(context.Background(), "hi", true)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Ask still blocked after the request timeout while building context")
	}
	if len(client.requests) != 0 {
		t.Errorf("expected no LLM request, got %d", len(client.requests))
	}
	errs := log.ofType(events.ErrorOccurred)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error notification, got %d", len(errs))
	}
	if svc.Store().TurnCount() != 0 {
		t.Error("expected no turn after a failed context build")
	}
}

func TestAsk_SuggestionsRegisteredBeforeResponseEvent(t *testing.T) {
	reply := "Try this:\n```json\n" +
		`{"type": "script", "payload": {"service": "turn_on", "entity_id": "script.movie"}}` + "\n```"
	svc, _ := newTestService(t, &fakeClient{reply: replyWith(reply)})

	seen := -1
	svc.Bus().Subscribe(func(events.Event) {
		seen = svc.Store().SuggestionCount()
	}, events.ResponseProduced)

	_ = svc.Ask(context.Background(), "movie night?", false)

	if seen != 1 {
		t.Errorf("response listener saw %d suggestions, want 1", seen)
	}
}

type llmFunc func(ctx context.Context, msgs []llm.Message) (string, error)

func (f llmFunc) Chat(ctx context.Context, msgs []llm.Message) (string, error) { return f(ctx, msgs) }

func TestAsk_ChangeHookAndSuggestions(t *testing.T) {
	reply := "Here is an idea:\n```json\n" +
		`[{"type": "automation", "payload": {"service": "turn_off", "entity_id": "automation.night"}},` +
		`{"type": "bogus", "payload": {}}]` + "\n```"
	client := &fakeClient{reply: replyWith(reply)}
	changes := 0
	ids := 0
	svc, _ := newTestService(t, client, WithChangeHook(func() { changes++ }))
	svc.newID = func() string { ids++; return fmt.Sprintf("sg-%d", ids) }

	_ = svc.Ask(context.Background(), "ideas?", false)

	if changes != 1 {
		t.Errorf("expected 1 change notification, got %d", changes)
	}
	sgs := svc.Store().Suggestions()
	if len(sgs) != 1 {
		t.Fatalf("expected 1 extracted suggestion, got %d", len(sgs))
	}
	if sgs[0].ID != "sg-1" || sgs[0].Type != session.TypeAutomation || sgs[0].Executed {
		t.Errorf("unexpected suggestion %+v", sgs[0])
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		focus string
		want  string
	}{
		{"", "focus on: general"},
		{"security", "focus on: security"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			client := &fakeClient{}
			svc, _ := newTestService(t, client, WithContextBuilder(fakeBuilder{out: "ctx"}))

			if err := svc.Analyze(context.Background(), tt.focus); err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			req := client.requests[0]
			if !strings.Contains(req[len(req)-1].Content, tt.want) {
				t.Errorf("analysis prompt missing %q", tt.want)
			}
			if !strings.Contains(req[0].Content, "ctx") {
				t.Error("analysis should include context")
			}
			if svc.Store().TurnCount() != 1 {
				t.Error("expected analysis to be recorded as a turn")
			}
		})
	}
}

func TestAddSuggestion(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{})
	svc.newID = func() string { return "generated" }

	sg, err := svc.AddSuggestion(session.Suggestion{Type: session.TypeScript, Payload: map[string]any{"service": "reload"}})
	if err != nil {
		t.Fatalf("AddSuggestion() error = %v", err)
	}
	if sg.ID != "generated" || sg.CreatedAt.IsZero() {
		t.Errorf("unexpected suggestion %+v", sg)
	}

	if _, err := svc.AddSuggestion(session.Suggestion{ID: "generated", Type: session.TypeScript}); !errors.Is(err, session.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	if _, err := svc.AddSuggestion(session.Suggestion{ID: "x", Type: "bogus"}); !errors.Is(err, session.ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}
