package events

import (
	"testing"
	"time"

	"intentio/backend/internal/model"
)

func TestSubscribeFiltersByName(t *testing.T) {
	bus := NewBus()
	sessions := bus.Subscribe(4, SessionUpdated)
	defer sessions.Close()
	all := bus.Subscribe(4)
	defer all.Close()

	bus.PublishQueue([]model.QueueEntry{{DurationMinutes: 1, Iterations: 1}})
	bus.PublishSession(model.Session{Kind: model.PhaseFocus, DurationMinutes: 25})

	got := <-sessions.C()
	if got.Name != SessionUpdated {
		t.Fatalf("expected session_updated, got %s", got.Name)
	}
	select {
	case extra := <-sessions.C():
		t.Fatalf("unexpected event %s", extra.Name)
	default:
	}

	if first := <-all.C(); first.Name != QueueUpdated {
		t.Fatalf("expected queue_updated first, got %s", first.Name)
	}
	if second := <-all.C(); second.Name != SessionUpdated {
		t.Fatalf("expected session_updated second, got %s", second.Name)
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe(1)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.PublishSessionCreated(int64(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	first := <-slow.C()
	if first.SessionID != 0 {
		t.Fatalf("expected the first event to be kept, got id %d", first.SessionID)
	}
}

func TestEventsCarrySnapshots(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(2)
	defer sub.Close()

	startedAt := int64(100)
	session := model.Session{Kind: model.PhaseFocus, DurationMinutes: 1, StartedAt: &startedAt}
	bus.PublishSession(session)
	startedAt = 200

	entries := []model.QueueEntry{{Iterations: 1, DurationMinutes: 1}}
	bus.PublishQueue(entries)
	entries[0].Iterations = 9

	ev := <-sub.C()
	if *ev.Session.StartedAt != 100 {
		t.Fatalf("session payload aliases caller memory: %d", *ev.Session.StartedAt)
	}
	ev = <-sub.C()
	if ev.Queue[0].Iterations != 1 {
		t.Fatalf("queue payload aliases caller memory: %d", ev.Queue[0].Iterations)
	}
}

func TestPublishStampsIDAndTime(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	bus := NewBus(WithClock(func() time.Time { return at }))
	sub := bus.Subscribe(1)
	defer sub.Close()

	bus.PublishPersistenceFailed(errTest("disk full"))
	ev := <-sub.C()
	if ev.ID == "" {
		t.Fatal("expected event id")
	}
	if !ev.At.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, ev.At)
	}
	if ev.Payload() != "disk full" {
		t.Fatalf("unexpected payload %v", ev.Payload())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel")
	}
	bus.PublishSessionCreated(1)
}

func TestParseName(t *testing.T) {
	if name, ok := ParseName("queue_updated"); !ok || name != QueueUpdated {
		t.Fatalf("expected queue_updated, got %q %v", name, ok)
	}
	if _, ok := ParseName("tick"); ok {
		t.Fatal("expected unknown name to be rejected")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
