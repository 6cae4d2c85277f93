package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/session"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	errs  []error
	ch    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 16)}
}

func (r *recorder) OnRefresh(snap Snapshot, err error) {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}
}

func TestFirstRefresh_CountsMatchStore(t *testing.T) {
	store := session.NewStore(10)
	store.AppendTurn(session.Turn{User: "a", Assistant: "b", Timestamp: time.Now()})
	store.AppendTurn(session.Turn{User: "c", Assistant: "d", Timestamp: time.Now()})
	if err := store.AddSuggestion(session.Suggestion{ID: "s1", Type: session.TypeScript}); err != nil {
		t.Fatalf("AddSuggestion() error = %v", err)
	}

	c := New("main", store, time.Minute, zerolog.Nop())
	rec := newRecorder()
	c.AddListener(rec)

	if err := c.FirstRefresh(context.Background()); err != nil {
		t.Fatalf("FirstRefresh() error = %v", err)
	}

	snap, ok := c.Data()
	if !ok {
		t.Fatal("expected data after first refresh")
	}
	if snap.ConversationsCount != len(store.Turns()) {
		t.Errorf("ConversationsCount = %d, want %d", snap.ConversationsCount, len(store.Turns()))
	}
	if snap.SuggestionsCount != len(store.Suggestions()) {
		t.Errorf("SuggestionsCount = %d, want %d", snap.SuggestionsCount, len(store.Suggestions()))
	}
	if snap.LastConversation == nil || snap.LastConversation.User != "c" {
		t.Errorf("unexpected last conversation %+v", snap.LastConversation)
	}
	if snap.Status != StatusReady {
		t.Errorf("Status = %q, want %q", snap.Status, StatusReady)
	}
	if !c.LastUpdateSuccess() {
		t.Error("expected LastUpdateSuccess after successful refresh")
	}
	if len(rec.snaps) != 1 || rec.errs[0] != nil {
		t.Errorf("expected one successful notification, got %v", rec.errs)
	}
}

func TestFirstRefresh_EmptyStore(t *testing.T) {
	c := New("main", session.NewStore(0), 0, zerolog.Nop())

	if err := c.FirstRefresh(context.Background()); err != nil {
		t.Fatalf("FirstRefresh() error = %v", err)
	}
	snap, _ := c.Data()
	if snap.ConversationsCount != 0 || snap.SuggestionsCount != 0 || snap.LastConversation != nil {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if c.Interval() != DefaultInterval {
		t.Errorf("Interval() = %s, want %s", c.Interval(), DefaultInterval)
	}
}

func TestRefresh_FailureReported(t *testing.T) {
	c := New("main", nil, time.Minute, zerolog.Nop())
	rec := newRecorder()
	c.AddListener(rec)

	err := c.FirstRefresh(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if c.LastUpdateSuccess() {
		t.Error("expected LastUpdateSuccess to be false")
	}
	if _, ok := c.Data(); ok {
		t.Error("expected no data after failed refresh")
	}
	if len(rec.errs) != 1 || rec.errs[0] == nil {
		t.Errorf("expected failure to reach listener, got %v", rec.errs)
	}
}

func TestRun_RequestRefresh(t *testing.T) {
	store := session.NewStore(10)
	c := New("main", store, time.Hour, zerolog.Nop())
	rec := newRecorder()
	c.AddListener(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	store.AppendTurn(session.Turn{User: "hi", Assistant: "hello", Timestamp: time.Now()})
	c.RequestRefresh()
	rec.wait(t)

	snap, _ := c.Data()
	if snap.ConversationsCount != 1 {
		t.Errorf("ConversationsCount = %d, want 1", snap.ConversationsCount)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_Ticks(t *testing.T) {
	c := New("main", session.NewStore(10), 10*time.Millisecond, zerolog.Nop())
	rec := newRecorder()
	c.AddListener(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	rec.wait(t)
	rec.wait(t)
}

func TestRequestRefresh_Merges(t *testing.T) {
	c := New("main", session.NewStore(10), time.Hour, zerolog.Nop())
	for range 5 {
		c.RequestRefresh()
	}
	if len(c.trigger) != 1 {
		t.Errorf("expected one pending trigger, got %d", len(c.trigger))
	}
}

func TestListenerFunc(t *testing.T) {
	called := false
	var l Listener = ListenerFunc(func(Snapshot, error) { called = true })
	l.OnRefresh(Snapshot{}, nil)
	if !called {
		t.Error("ListenerFunc was not called")
	}
}
