// Package timer implements the Pomodoro state machine: a single session that
// cycles through focus and break phases, driven by one-second ticks.
package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"intentio/backend/internal/clock"
	"intentio/backend/internal/events"
	"intentio/backend/internal/metrics"
	"intentio/backend/internal/model"
)

// PolicyProvider supplies the timer policy consulted at phase boundaries.
type PolicyProvider interface {
	Snapshot() (model.TimerPolicy, error)
}

// SessionStore records completed focus phases.
type SessionStore interface {
	Insert(ctx context.Context, session model.PersistedSession) (int64, error)
}

// Config contains runtime options for the Engine.
type Config struct {
	Clock          clock.Clock
	TickInterval   time.Duration
	PersistTimeout time.Duration
}

const (
	triggerElapsed = "elapsed"
	triggerSkip    = "skip"
)

// Engine owns the current session, the completed-focus counter and the queue.
// Commands and the tick goroutine are serialised by mu; events for one
// command or tick are published while mu is held so they stay contiguous.
type Engine struct {
	mu        sync.Mutex
	session   *model.Session
	iteration int
	policy    model.TimerPolicy

	provider PolicyProvider
	store    SessionStore
	queue    *Queue
	bus      *events.Bus
	clock    clock.Clock
	logger   zerolog.Logger
	options  Config

	ticker     clock.Ticker
	cancelTick context.CancelFunc
	generation uint64
	closed     bool
}

// NewEngine creates an Engine with no session. A session is created by the
// first SetIntent.
func NewEngine(provider PolicyProvider, store SessionStore, bus *events.Bus, config Config, logger zerolog.Logger) *Engine {
	if config.Clock == nil {
		config.Clock = clock.Real{}
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = 5 * time.Second
	}
	if bus == nil {
		bus = events.NewBus()
	}

	return &Engine{
		policy:   model.DefaultTimerPolicy(),
		provider: provider,
		store:    store,
		queue:    NewQueue(bus),
		bus:      bus,
		clock:    config.Clock,
		logger:   logger.With().Str("component", "timer").Logger(),
		options:  config,
	}
}

// Queue returns the session queue consulted at the end of every break.
func (e *Engine) Queue() *Queue {
	return e.queue
}

// Session returns a snapshot of the current session.
func (e *Engine) Session() (model.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return model.Session{}, ErrUndefinedSession
	}
	return e.session.Clone(), nil
}

// Iteration returns the number of focus phases completed since construction.
func (e *Engine) Iteration() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.iteration
}

// SetIntent creates the session on first use; afterwards it only swaps the
// intent, leaving phase, elapsed time and play state alone.
func (e *Engine) SetIntent(intent model.Intent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		policy := e.policyLocked()
		e.session = &model.Session{
			Kind:            model.PhaseFocus,
			DurationMinutes: policy.FocusMinutes,
			Intent:          intent,
		}
		e.logger.Info().
			Int64("intent_id", intent.ID).
			Int("duration", policy.FocusMinutes).
			Msg("Session created")
	} else {
		e.session.Intent = intent
	}
	e.publishSessionLocked()
}

// Play starts counting. Calling it while already playing does nothing.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrUndefinedSession
	}
	if e.session.IsPlaying {
		return nil
	}
	e.resumeLocked()
	e.startTickerLocked()
	return nil
}

// Stop pauses the session, keeping elapsed time and start time.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrUndefinedSession
	}
	e.stopTickerLocked()
	if !e.session.IsPlaying {
		return nil
	}
	e.session.IsPlaying = false
	metrics.TimerPlaying.Set(0)
	e.publishSessionLocked()
	return nil
}

// Restart stops the session, records it if it qualifies, and rewinds it to
// the start of the same phase. If recording fails the session is left as it
// was apart from being stopped.
func (e *Engine) Restart(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrUndefinedSession
	}
	e.stopTickerLocked()
	e.session.IsPlaying = false
	metrics.TimerPlaying.Set(0)

	if err := e.persistLocked(ctx); err != nil {
		e.publishSessionLocked()
		return err
	}

	e.session.ElapsedSeconds = 0
	e.session.StartedAt = nil
	e.publishSessionLocked()
	return nil
}

// Skip ends the current phase now and moves to the next one without
// starting it.
func (e *Engine) Skip(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrUndefinedSession
	}
	e.stopTickerLocked()
	e.session.IsPlaying = false
	metrics.TimerPlaying.Set(0)

	_, err := e.transitionLocked(ctx, triggerSkip)
	return err
}

// Close aborts the tick goroutine. The engine keeps answering queries but
// Play no longer starts counting.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
	e.closed = true
	if e.session != nil && e.session.IsPlaying {
		e.session.IsPlaying = false
		metrics.TimerPlaying.Set(0)
		e.publishSessionLocked()
	}
}

func (e *Engine) startTickerLocked() {
	e.stopTickerLocked()
	if e.closed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := e.clock.NewTicker(e.options.TickInterval)
	e.generation++
	e.ticker = ticker
	e.cancelTick = cancel
	go e.run(ctx, ticker, e.generation)
}

func (e *Engine) stopTickerLocked() {
	if e.cancelTick == nil {
		return
	}
	e.cancelTick()
	e.ticker.Stop()
	e.cancelTick = nil
	e.ticker = nil
}

func (e *Engine) run(ctx context.Context, ticker clock.Ticker, generation uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !e.tick(ctx, generation) {
				return
			}
		}
	}
}

// tick applies one second to the playing session and reports whether the
// goroutine that delivered it should keep running.
func (e *Engine) tick(ctx context.Context, generation uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if generation != e.generation {
		return false
	}
	if e.session == nil || !e.session.IsPlaying {
		e.stopTickerLocked()
		return false
	}

	session := e.session
	limit := session.DurationSeconds()
	if session.ElapsedSeconds < limit {
		session.ElapsedSeconds++
		metrics.TimerTicksTotal.Inc()
		e.publishSessionLocked()
		if session.ElapsedSeconds < limit {
			return true
		}
	}

	autoStart, err := e.transitionLocked(ctx, triggerElapsed)
	if err != nil || !autoStart {
		e.stopTickerLocked()
		return false
	}
	e.resumeLocked()
	return true
}

// transitionLocked ends the current phase and prepares the next one. It
// returns whether the next phase should start playing on its own.
func (e *Engine) transitionLocked(ctx context.Context, trigger string) (bool, error) {
	policy := e.policyLocked()
	session := e.session
	from := session.Kind

	var autoStart bool
	if session.Kind == model.PhaseFocus {
		if err := e.persistLocked(ctx); err != nil {
			session.IsPlaying = false
			metrics.TimerPlaying.Set(0)
			e.publishSessionLocked()
			return false, err
		}

		if e.iteration > 0 && e.iteration%policy.LongBreakInterval == 0 {
			session.Kind = model.PhaseLongBreak
			session.DurationMinutes = policy.LongBreakMinutes
		} else {
			session.Kind = model.PhaseShortBreak
			session.DurationMinutes = policy.BreakMinutes
		}
		e.iteration++
		metrics.TimerIteration.Set(float64(e.iteration))
		autoStart = policy.AutoStartBreaks
	} else {
		if !e.consumeQueueLocked() {
			session.Kind = model.PhaseFocus
			session.DurationMinutes = policy.FocusMinutes
		}
		autoStart = policy.AutoStartFocus
	}

	session.ElapsedSeconds = 0
	session.StartedAt = nil
	session.IsPlaying = false
	metrics.TimerPlaying.Set(0)
	metrics.TimerTransitionsTotal.WithLabelValues(string(from), string(session.Kind), trigger).Inc()

	e.logger.Info().
		Str("from", string(from)).
		Str("to", string(session.Kind)).
		Str("trigger", trigger).
		Int("duration", session.DurationMinutes).
		Int("iteration", e.iteration).
		Bool("auto_start", autoStart).
		Msg("Phase transition")

	e.publishSessionLocked()
	return autoStart, nil
}

func (e *Engine) consumeQueueLocked() bool {
	if e.queue.IsEmpty() {
		return false
	}
	err := e.queue.ConsumeHead(e.session)
	if errors.Is(err, ErrEmptyQueue) {
		// Cleared between the emptiness check and the consume.
		return false
	}
	return err == nil
}

// persistLocked writes the session to the store when it is a focus phase
// that was started and ran for at least a minute.
func (e *Engine) persistLocked(ctx context.Context) error {
	session := e.session
	if session.Kind != model.PhaseFocus || session.StartedAt == nil ||
		session.ElapsedSeconds < model.MinPersistedSeconds {
		return nil
	}

	record := model.PersistedSession{
		DurationSeconds: session.ElapsedSeconds,
		StartedAt:       *session.StartedAt,
		FinishedAt:      e.clock.Now().Unix(),
		IntentID:        session.Intent.ID,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, e.options.PersistTimeout)
	defer cancel()

	id, err := e.store.Insert(ctx, record)
	if err != nil {
		metrics.SessionPersistFailures.Inc()
		wrapped := fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
		e.logger.Error().
			Err(err).
			Int64("intent_id", record.IntentID).
			Int("duration", record.DurationSeconds).
			Msg("Failed to persist session")
		e.bus.PublishPersistenceFailed(wrapped)
		return wrapped
	}

	metrics.SessionsPersisted.Inc()
	e.logger.Info().
		Int64("session_id", id).
		Int64("intent_id", record.IntentID).
		Int("duration", record.DurationSeconds).
		Msg("Session persisted")
	e.bus.PublishSessionCreated(id)
	return nil
}

func (e *Engine) resumeLocked() {
	if e.session.StartedAt == nil {
		startedAt := e.clock.Now().Unix()
		e.session.StartedAt = &startedAt
	}
	e.session.IsPlaying = true
	metrics.TimerPlaying.Set(1)
	e.publishSessionLocked()
}

// policyLocked reads the current policy, falling back to the last good
// snapshot when the provider fails.
func (e *Engine) policyLocked() model.TimerPolicy {
	if e.provider == nil {
		return e.policy
	}
	policy, err := e.provider.Snapshot()
	if err != nil {
		metrics.PolicyReadErrors.Inc()
		e.logger.Warn().Err(err).Msg("Failed to read timer policy, using last good snapshot")
		return e.policy
	}
	e.policy = policy.Normalize()
	return e.policy
}

func (e *Engine) publishSessionLocked() {
	e.bus.PublishSession(*e.session)
}
