// Package coordinator periodically snapshots a session store and hands the
// result to presentation listeners.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/metrics"
	"github.com/javiermolinar/hassist/internal/session"
)

// StatusReady is the status reported by every successful refresh.
const StatusReady = "ready"

// DefaultInterval is the refresh period when none is configured.
const DefaultInterval = 5 * time.Minute

// ErrStoreUnavailable is returned when the coordinator has no store to read.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Source is the store the coordinator reads counts from.
type Source interface {
	Stats() session.Stats
}

// Snapshot is the published view of one refresh.
type Snapshot struct {
	ConversationsCount int
	SuggestionsCount   int
	LastConversation   *session.Turn
	Conversations      []session.Turn
	Status             string
	UpdatedAt          time.Time
}

// Listener is notified after every refresh. err is non-nil when the refresh
// failed, in which case snap is the previous snapshot.
type Listener interface {
	OnRefresh(snap Snapshot, err error)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Snapshot, error)

// OnRefresh calls f.
func (f ListenerFunc) OnRefresh(snap Snapshot, err error) { f(snap, err) }

// Coordinator refreshes a Snapshot on a fixed interval. Only one refresh runs
// at a time.
type Coordinator struct {
	entryID  string
	src      Source
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	refreshMu sync.Mutex // serializes refreshes

	mu          sync.RWMutex
	data        Snapshot
	hasData     bool
	lastSuccess bool
	refreshing  bool
	listeners   []Listener

	trigger chan struct{}
}

// New creates a coordinator for the given entry.
func New(entryID string, src Source, interval time.Duration, log zerolog.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		entryID:  entryID,
		src:      src,
		interval: interval,
		log:      log.With().Str("component", "coordinator").Str("entry", entryID).Logger(),
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
	}
}

// Interval returns the refresh period.
func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// AddListener registers l for subsequent refreshes.
func (c *Coordinator) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// FirstRefresh performs the initial refresh and returns its error.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// Refresh runs a refresh immediately.
func (c *Coordinator) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// Run refreshes every interval, and whenever RequestRefresh is called, until
// ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.trigger:
		}
		// Failures reach listeners; the next tick is the retry.
		_ = c.refresh(ctx)
	}
}

// RequestRefresh schedules an out-of-band refresh on the Run loop. Requests
// made while one is already pending are merged.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Data returns the latest snapshot and whether a refresh has succeeded yet.
func (c *Coordinator) Data() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.hasData
}

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// Refreshing reports whether a refresh is in progress.
func (c *Coordinator) Refreshing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshing
}

func (c *Coordinator) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.setRefreshing(true)
	defer c.setRefreshing(false)

	snap, err := c.collect(ctx)

	c.mu.Lock()
	if err == nil {
		c.data = snap
		c.hasData = true
	} else {
		snap = c.data
	}
	c.lastSuccess = err == nil
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	metrics.RefreshesTotal.WithLabelValues(c.entryID, metrics.Outcome(err)).Inc()
	if err != nil {
		c.log.Error().Err(err).Msg("status refresh failed")
	} else {
		metrics.Conversations.WithLabelValues(c.entryID).Set(float64(snap.ConversationsCount))
		metrics.Suggestions.WithLabelValues(c.entryID).Set(float64(snap.SuggestionsCount))
		c.log.Debug().
			Int("conversations", snap.ConversationsCount).
			Int("suggestions", snap.SuggestionsCount).
			Msg("status refreshed")
	}

	for _, l := range listeners {
		l.OnRefresh(snap, err)
	}
	return err
}

func (c *Coordinator) collect(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("refreshing status: %w", err)
	}
	if c.src == nil {
		return Snapshot{}, fmt.Errorf("refreshing status: %w", ErrStoreUnavailable)
	}

	st := c.src.Stats()
	return Snapshot{
		ConversationsCount: st.Conversations,
		SuggestionsCount:   st.Suggestions,
		LastConversation:   st.Last,
		Conversations:      st.Turns,
		Status:             StatusReady,
		UpdatedAt:          c.now(),
	}, nil
}

func (c *Coordinator) setRefreshing(v bool) {
	c.mu.Lock()
	c.refreshing = v
	c.mu.Unlock()
}
