package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"intentio/backend/internal/model"
)

func TestPolicyStoreWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timer.yaml")
	store := NewPolicyStore(path)

	policy, err := store.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if policy != model.DefaultTimerPolicy() {
		t.Fatalf("expected defaults, got %+v", policy)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected policy file to be created: %v", err)
	}
}

func TestPolicyStoreFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timer.yaml")
	if err := os.WriteFile(path, []byte("focus_duration: 50\nbreak_duration: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	policy, err := NewPolicyStore(path).Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if policy.FocusMinutes != 50 {
		t.Fatalf("expected focus 50, got %d", policy.FocusMinutes)
	}
	if policy.BreakMinutes != model.DefaultBreakMinutes || policy.LongBreakInterval != model.DefaultLongBreakInterval {
		t.Fatalf("expected defaults for missing or zero fields, got %+v", policy)
	}
	if !policy.SessionSummary {
		t.Fatal("expected session_summary default true")
	}
}

func TestPolicyStoreReloadsOnModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timer.yaml")
	store := NewPolicyStore(path)
	if _, err := store.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if err := os.WriteFile(path, []byte("focus_duration: 40\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	policy, err := store.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if policy.FocusMinutes != 40 {
		t.Fatalf("expected reloaded focus 40, got %d", policy.FocusMinutes)
	}
}

func TestPolicyStoreServesMemoWhenUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timer.yaml")
	store := NewPolicyStore(path)
	if _, err := store.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if err := os.WriteFile(path, []byte("focus_duration: 40\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	policy, err := store.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if policy.FocusMinutes != model.DefaultFocusMinutes {
		t.Fatalf("expected memoised policy, got %+v", policy)
	}
}

func TestPolicyStoreInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timer.yaml")
	if err := os.WriteFile(path, []byte("focus_duration: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewPolicyStore(path).Snapshot(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPolicyStoreUpdateAndRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timer.yaml")
	store := NewPolicyStore(path)

	focus := 45
	autoBreaks := true
	updated, err := store.Update(model.TimerPolicyUpdate{FocusMinutes: &focus, AutoStartBreaks: &autoBreaks})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FocusMinutes != 45 || !updated.AutoStartBreaks || updated.BreakMinutes != model.DefaultBreakMinutes {
		t.Fatalf("unexpected merged policy %+v", updated)
	}

	reread, err := NewPolicyStore(path).Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if reread != updated {
		t.Fatalf("update not written: %+v", reread)
	}

	restored, err := store.RestoreDefault()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != model.DefaultTimerPolicy() {
		t.Fatalf("unexpected restored policy %+v", restored)
	}
}
