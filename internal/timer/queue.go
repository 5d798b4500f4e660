package timer

import (
	"fmt"
	"sync"

	"intentio/backend/internal/events"
	"intentio/backend/internal/metrics"
	"intentio/backend/internal/model"
)

// Queue is the ordered list of focus sessions scheduled to run after the
// next break. Every mutation publishes queue_updated.
type Queue struct {
	mu      sync.Mutex
	entries []model.QueueEntry
	bus     *events.Bus
}

func NewQueue(bus *events.Bus) *Queue {
	if bus == nil {
		bus = events.NewBus()
	}
	return &Queue{bus: bus}
}

// Entries returns a copy of the queue contents.
func (q *Queue) Entries() []model.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Add appends entry. Durations and iteration counts below one are raised to one.
func (q *Queue) Add(entry model.QueueEntry) {
	if entry.DurationMinutes < 1 {
		entry.DurationMinutes = 1
	}
	if entry.Iterations < 1 {
		entry.Iterations = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	q.emitLocked()
}

func (q *Queue) Remove(idx int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkIndexLocked(idx); err != nil {
		return err
	}
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	q.emitLocked()
	return nil
}

// Reorder swaps the entries at idx and target.
func (q *Queue) Reorder(idx, target int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkIndexLocked(idx); err != nil {
		return err
	}
	if err := q.checkIndexLocked(target); err != nil {
		return err
	}
	q.entries[idx], q.entries[target] = q.entries[target], q.entries[idx]
	q.emitLocked()
	return nil
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	q.emitLocked()
}

func (q *Queue) IncrementIterations(idx int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkIndexLocked(idx); err != nil {
		return err
	}
	q.entries[idx].Iterations++
	q.emitLocked()
	return nil
}

// DecrementIterations never takes an entry below one iteration; removal is
// done with Remove.
func (q *Queue) DecrementIterations(idx int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkIndexLocked(idx); err != nil {
		return err
	}
	if q.entries[idx].Iterations > 1 {
		q.entries[idx].Iterations--
	}
	q.emitLocked()
	return nil
}

func (q *Queue) UpdateDuration(idx, minutes int) error {
	if minutes < 1 {
		minutes = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkIndexLocked(idx); err != nil {
		return err
	}
	q.entries[idx].DurationMinutes = minutes
	q.emitLocked()
	return nil
}

// ConsumeHead rewrites session into a fresh focus phase for the head entry
// and uses up one of its iterations. Only the engine calls this, at the end
// of a break.
func (q *Queue) ConsumeHead(session *model.Session) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return ErrEmptyQueue
	}

	head := &q.entries[0]
	head.Iterations--

	session.Kind = model.PhaseFocus
	session.DurationMinutes = head.DurationMinutes
	session.Intent = head.Intent
	session.ElapsedSeconds = 0
	session.StartedAt = nil

	if head.Iterations <= 0 {
		q.entries = q.entries[1:]
	}
	q.emitLocked()
	return nil
}

func (q *Queue) checkIndexLocked(idx int) error {
	if idx < 0 || idx >= len(q.entries) {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, idx, len(q.entries))
	}
	return nil
}

func (q *Queue) snapshotLocked() []model.QueueEntry {
	out := make([]model.QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) emitLocked() {
	metrics.QueueLength.Set(float64(len(q.entries)))
	q.bus.PublishQueue(q.entries)
}
