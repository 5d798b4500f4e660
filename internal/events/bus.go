package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"intentio/backend/internal/metrics"
	"intentio/backend/internal/model"
)

const defaultBuffer = 64

// Bus is a non-blocking publish/subscribe hub. A subscriber whose buffer is
// full loses the event instead of stalling the publisher.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	now    func() time.Time
	logger zerolog.Logger
}

// Option customises a Bus.
type Option func(*Bus)

// WithBuffer sets the default subscriber buffer size.
func WithBuffer(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

func NewBus(opts ...Option) *Bus {
	bus := &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: defaultBuffer,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Subscription receives the events it was registered for.
type Subscription struct {
	id     uint64
	bus    *Bus
	names  map[Name]struct{}
	ch     chan Event
	closed bool
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

func (s *Subscription) wants(name Name) bool {
	if len(s.names) == 0 {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// Subscribe registers a subscriber. With no names it receives every event.
// A buffer of zero or less uses the bus default.
func (b *Bus) Subscribe(buffer int, names ...Name) *Subscription {
	if buffer <= 0 {
		buffer = b.buffer
	}
	filter := make(map[Name]struct{}, len(names))
	for _, name := range names {
		filter[name] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		id:    b.nextID,
		bus:   b,
		names: filter,
		ch:    make(chan Event, buffer),
	}
	b.subs[sub.id] = sub
	metrics.EventSubscribers.Set(float64(len(b.subs)))
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	delete(b.subs, sub.id)
	close(sub.ch)
	metrics.EventSubscribers.Set(float64(len(b.subs)))
}

// Publish stamps the event and delivers it to every interested subscriber.
func (b *Bus) Publish(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = b.now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	metrics.EventsPublished.WithLabelValues(string(event.Name)).Inc()
	for _, sub := range b.subs {
		if !sub.wants(event.Name) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			metrics.EventsDropped.WithLabelValues(string(event.Name)).Inc()
			b.logger.Warn().
				Str("event", string(event.Name)).
				Uint64("subscriber", sub.id).
				Msg("Subscriber buffer full, event dropped")
		}
	}
	return event
}

func (b *Bus) PublishSession(session model.Session) {
	snapshot := session.Clone()
	b.Publish(Event{Name: SessionUpdated, Session: &snapshot})
}

func (b *Bus) PublishQueue(entries []model.QueueEntry) {
	snapshot := make([]model.QueueEntry, len(entries))
	copy(snapshot, entries)
	b.Publish(Event{Name: QueueUpdated, Queue: snapshot})
}

func (b *Bus) PublishSessionCreated(id int64) {
	b.Publish(Event{Name: SessionCreated, SessionID: id})
}

func (b *Bus) PublishPersistenceFailed(err error) {
	b.Publish(Event{Name: PersistenceFailed, Error: err.Error()})
}
