package assistant

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/config"
	"github.com/javiermolinar/hassist/internal/coordinator"
	"github.com/javiermolinar/hassist/internal/events"
	"github.com/javiermolinar/hassist/internal/llm"
	"github.com/javiermolinar/hassist/internal/metrics"
	"github.com/javiermolinar/hassist/internal/sensor"
	"github.com/javiermolinar/hassist/internal/session"
)

// Deps are the collaborators shared by installations.
type Deps struct {
	Client   llm.Client         // nil builds one from the entry
	Context  ContextBuilder     // nil disables the system snapshot
	Caller   ServiceCaller      // used by the default handlers
	States   sensor.StatePusher // nil disables sensor publishing
	Bus      *events.Bus
	Interval time.Duration
	Log      zerolog.Logger
}

// Installation is one loaded entry. It owns its store, service, coordinator
// and sensors; nothing is shared with other installations except Deps.
type Installation struct {
	entry       config.EntryConfig
	store       *session.Store
	service     *Service
	coordinator *coordinator.Coordinator
	sensorEntry sensor.Entry

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient builds the chat client configured by e.
func NewClient(e config.EntryConfig) (llm.Client, error) {
	return llm.NewClient(e.Provider, llm.Options{
		APIKey:      e.APIKey,
		Model:       e.Model,
		BaseURL:     e.BaseURL,
		MaxTokens:   e.MaxTokens,
		Temperature: e.Temperature,
	})
}

// NewInstallation wires the components of entry.
func NewInstallation(entry config.EntryConfig, deps Deps) (*Installation, error) {
	client := deps.Client
	if client == nil {
		var err error
		client, err = NewClient(entry)
		if err != nil {
			return nil, fmt.Errorf("creating client for %s: %w", entry.ID, err)
		}
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	log := deps.Log.With().Str("entry", entry.ID).Logger()

	store := session.NewStore(entry.HistoryLimit)
	coord := coordinator.New(entry.ID, store, deps.Interval, deps.Log)

	inst := &Installation{
		entry:       entry,
		store:       store,
		coordinator: coord,
		sensorEntry: sensor.Entry{
			ID:    entry.ID,
			Slug:  entry.Slug(),
			Name:  entry.Name,
			Model: entry.Model,
		},
	}

	opts := []Option{
		WithBus(bus),
		WithHandlers(DefaultHandlers(deps.Caller)),
		WithRequestTimeout(entry.RequestTimeoutDuration()),
		WithLogger(deps.Log),
		WithChangeHook(coord.RequestRefresh),
	}
	if deps.Context != nil {
		opts = append(opts, WithContextBuilder(deps.Context))
	}
	inst.service = NewService(entry.ID, client, store, opts...)

	if deps.States != nil {
		coord.AddListener(sensor.NewPublisher(inst.sensorEntry, deps.States, log))
	}
	return inst, nil
}

// Start runs the first refresh and then the periodic refresh loop.
func (i *Installation) Start(ctx context.Context) error {
	if err := i.coordinator.FirstRefresh(ctx); err != nil {
		return fmt.Errorf("first refresh of %s: %w", i.entry.ID, err)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	i.cancel = cancel
	i.done = make(chan struct{})
	go func() {
		defer close(i.done)
		i.coordinator.Run(runCtx)
	}()
	return nil
}

// Close stops the refresh loop. The session state is dropped with the
// installation.
func (i *Installation) Close() {
	if i.cancel != nil {
		i.cancel()
		<-i.done
		i.cancel = nil
	}
	metrics.ForgetEntry(i.entry.ID)
}

// Entry returns the entry configuration.
func (i *Installation) Entry() config.EntryConfig { return i.entry }

// Service returns the conversation and suggestion service.
func (i *Installation) Service() *Service { return i.service }

// Store returns the session store.
func (i *Installation) Store() *session.Store { return i.store }

// Coordinator returns the status coordinator.
func (i *Installation) Coordinator() *coordinator.Coordinator { return i.coordinator }

// Sensors returns the current sensor values.
func (i *Installation) Sensors() []sensor.Sensor {
	snap, ok := i.coordinator.Data()
	return sensor.Build(i.sensorEntry, snap, ok, time.Now())
}

// Manager holds the loaded installations by entry id.
type Manager struct {
	mu       sync.RWMutex
	installs map[string]*Installation
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{installs: make(map[string]*Installation)}
}

// Add registers inst. It fails if the entry id is already loaded.
func (m *Manager) Add(inst *Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := inst.entry.ID
	if _, ok := m.installs[id]; ok {
		return fmt.Errorf("entry %s: %w", id, config.ErrAlreadyConfigured)
	}
	m.installs[id] = inst
	return nil
}

// Get returns the installation of entry id.
func (m *Manager) Get(id string) (*Installation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.installs[id]
	return inst, ok
}

// List returns the installations ordered by entry id.
func (m *Manager) List() []*Installation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Installation, 0, len(m.installs))
	for _, inst := range m.installs {
		out = append(out, inst)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].entry.ID < out[b].entry.ID })
	return out
}

// Remove unloads the installation of entry id.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	inst, ok := m.installs[id]
	delete(m.installs, id)
	m.mu.Unlock()
	if ok {
		inst.Close()
	}
	return ok
}

// Close unloads every installation.
func (m *Manager) Close() {
	for _, inst := range m.List() {
		m.Remove(inst.entry.ID)
	}
}
