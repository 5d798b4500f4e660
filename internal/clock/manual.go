package clock

import (
	"sync"
	"time"
)

// Manual is a Clock that only moves when told to. Ticks are delivered
// synchronously: Advance returns once every due tick has been received.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(interval time.Duration) Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{
		owner:    m,
		interval: interval,
		next:     m.now.Add(interval),
		c:        make(chan time.Time),
		done:     make(chan struct{}),
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing due ticks in order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t, at := m.earliestDueLocked(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = at
		t.next = at.Add(t.interval)
		m.mu.Unlock()

		select {
		case t.c <- at:
		case <-t.done:
		}
	}
}

// ActiveTickers reports how many tickers have not been stopped.
func (m *Manual) ActiveTickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

func (m *Manual) earliestDueLocked(limit time.Time) (*manualTicker, time.Time) {
	var found *manualTicker
	for _, t := range m.tickers {
		if t.next.After(limit) {
			continue
		}
		if found == nil || t.next.Before(found.next) {
			found = t
		}
	}
	if found == nil {
		return nil, time.Time{}
	}
	return found, found.next
}

func (m *Manual) remove(t *manualTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, candidate := range m.tickers {
		if candidate == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			return
		}
	}
}

type manualTicker struct {
	owner    *Manual
	interval time.Duration
	next     time.Time
	c        chan time.Time
	done     chan struct{}
	once     sync.Once
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Stop() {
	t.once.Do(func() {
		close(t.done)
		t.owner.remove(t)
	})
}
