package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"intentio/backend/internal/model"
)

// PolicyStore keeps the timer policy in a YAML file. Reads are served from
// memory until the file's modification time changes.
type PolicyStore struct {
	path string

	mu      sync.Mutex
	policy  model.TimerPolicy
	modTime time.Time
	loaded  bool
}

func NewPolicyStore(path string) *PolicyStore {
	return &PolicyStore{path: path}
}

func (s *PolicyStore) Path() string {
	return s.path
}

// Snapshot returns the current policy. A missing file is created with the
// defaults.
func (s *PolicyStore) Snapshot() (model.TimerPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Update merges a partial update into the stored policy and writes it back.
func (s *PolicyStore) Update(update model.TimerPolicyUpdate) (model.TimerPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked()
	if err != nil {
		return model.TimerPolicy{}, err
	}
	next := update.Apply(current).Normalize()
	if err := s.writeLocked(next); err != nil {
		return model.TimerPolicy{}, err
	}
	return next, nil
}

func (s *PolicyStore) RestoreDefault() (model.TimerPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy := model.DefaultTimerPolicy()
	if err := s.writeLocked(policy); err != nil {
		return model.TimerPolicy{}, err
	}
	return policy, nil
}

func (s *PolicyStore) loadLocked() (model.TimerPolicy, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		policy := model.DefaultTimerPolicy()
		if err := s.writeLocked(policy); err != nil {
			return policy, err
		}
		return policy, nil
	}
	if err != nil {
		return model.TimerPolicy{}, fmt.Errorf("stat timer policy: %w", err)
	}

	if s.loaded && info.ModTime().Equal(s.modTime) {
		return s.policy, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return model.TimerPolicy{}, fmt.Errorf("read timer policy: %w", err)
	}

	policy := model.DefaultTimerPolicy()
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return model.TimerPolicy{}, fmt.Errorf("parse timer policy yaml: %w", err)
	}
	policy = policy.Normalize()

	s.policy = policy
	s.modTime = info.ModTime()
	s.loaded = true
	return policy, nil
}

func (s *PolicyStore) writeLocked(policy model.TimerPolicy) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create timer policy directory: %w", err)
	}

	serialized, err := yaml.Marshal(policy)
	if err != nil {
		return fmt.Errorf("marshal timer policy yaml: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, serialized, 0o644); err != nil {
		return fmt.Errorf("write timer policy: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace timer policy: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat timer policy: %w", err)
	}
	s.policy = policy
	s.modTime = info.ModTime()
	s.loaded = true
	return nil
}
