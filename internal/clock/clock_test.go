package clock

import (
	"testing"
	"time"
)

func TestNextSlotSkipsMissedTicks(t *testing.T) {
	start := time.Unix(0, 0)
	interval := time.Second

	if got := nextSlot(start, start.Add(1100*time.Millisecond), interval, 1); got != 2 {
		t.Fatalf("expected slot 2 after a slightly late tick, got %d", got)
	}
	if got := nextSlot(start, start.Add(5500*time.Millisecond), interval, 1); got != 6 {
		t.Fatalf("expected slot 6 after a long stall, got %d", got)
	}
}

func TestRealTickerDelivers(t *testing.T) {
	ticker := Real{}.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-ticker.C():
		case <-time.After(time.Second):
			t.Fatalf("tick %d not delivered", i)
		}
	}
}

func TestRealTickerStopIsIdempotent(t *testing.T) {
	ticker := Real{}.NewTicker(time.Hour)
	ticker.Stop()
	ticker.Stop()
}

func TestManualAdvanceFiresEachInterval(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := NewManual(start)
	ticker := clk.NewTicker(time.Second)

	received := make(chan time.Time, 10)
	go func() {
		for at := range ticker.C() {
			received <- at
		}
	}()

	clk.Advance(3 * time.Second)

	for i := 1; i <= 3; i++ {
		select {
		case at := <-received:
			want := start.Add(time.Duration(i) * time.Second)
			if !at.Equal(want) {
				t.Fatalf("tick %d: expected %v, got %v", i, want, at)
			}
		case <-time.After(time.Second):
			t.Fatalf("tick %d not received", i)
		}
	}
	if !clk.Now().Equal(start.Add(3 * time.Second)) {
		t.Fatalf("unexpected clock time %v", clk.Now())
	}
}

func TestManualStopDropsTicker(t *testing.T) {
	clk := NewManual(time.Unix(0, 0))
	ticker := clk.NewTicker(time.Second)
	if clk.ActiveTickers() != 1 {
		t.Fatalf("expected 1 active ticker, got %d", clk.ActiveTickers())
	}

	ticker.Stop()
	ticker.Stop()
	if clk.ActiveTickers() != 0 {
		t.Fatalf("expected 0 active tickers, got %d", clk.ActiveTickers())
	}

	// Nothing is listening; Advance must not block.
	clk.Advance(5 * time.Second)
}
