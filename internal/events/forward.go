package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	forwardQueueSize = 64
	forwardTimeout   = 10 * time.Second
)

// Firer fires an event on the Home Assistant event bus.
type Firer interface {
	FireEvent(ctx context.Context, eventType string, data any) error
}

// Forwarder relays bus events to Home Assistant. Events are queued so that
// publishers never wait on the network; when the queue is full the event is
// dropped and logged.
type Forwarder struct {
	firer Firer
	log   zerolog.Logger
	queue chan Event
}

// NewForwarder creates a forwarder. Call Attach to start receiving events and
// Run to deliver them.
func NewForwarder(firer Firer, log zerolog.Logger) *Forwarder {
	return &Forwarder{
		firer: firer,
		log:   log.With().Str("component", "event_forwarder").Logger(),
		queue: make(chan Event, forwardQueueSize),
	}
}

// Attach subscribes the forwarder to every event on bus.
func (f *Forwarder) Attach(bus *Bus) (unsubscribe func()) {
	return bus.Subscribe(f.enqueue)
}

func (f *Forwarder) enqueue(e Event) {
	select {
	case f.queue <- e:
	default:
		f.log.Warn().Str("event", string(e.Type)).Msg("forward queue full, dropping event")
	}
}

// Run delivers queued events until ctx is done.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-f.queue:
			f.deliver(ctx, e)
		}
	}
}

func (f *Forwarder) deliver(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(ctx, forwardTimeout)
	defer cancel()

	if err := f.firer.FireEvent(ctx, string(e.Type), e.Data); err != nil {
		f.log.Error().Err(err).Str("event", string(e.Type)).Msg("failed to forward event")
		return
	}
	f.log.Debug().Str("event", string(e.Type)).Msg("event forwarded")
}
