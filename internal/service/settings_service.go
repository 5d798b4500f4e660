package service

import (
	"github.com/rs/zerolog"

	"intentio/backend/internal/config"
	apperrors "intentio/backend/internal/errors"
	"intentio/backend/internal/model"
)

type SettingsService struct {
	store  *config.PolicyStore
	logger zerolog.Logger
}

func NewSettingsService(store *config.PolicyStore, logger zerolog.Logger) *SettingsService {
	return &SettingsService{store: store, logger: logger}
}

func (s *SettingsService) Get() (*model.TimerPolicy, *apperrors.APIError) {
	policy, err := s.store.Snapshot()
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.store.Path()).Msg("Failed to read timer policy")
		return nil, apperrors.Internal("failed to read timer settings").WithCause(err)
	}
	return &policy, nil
}

// Update merges the fields that are set. The running phase keeps its
// duration; changes apply from the next phase.
func (s *SettingsService) Update(update model.TimerPolicyUpdate) (*model.TimerPolicy, *apperrors.APIError) {
	fields := []struct {
		name  string
		value *int
	}{
		{"focusDuration", update.FocusMinutes},
		{"breakDuration", update.BreakMinutes},
		{"longBreakDuration", update.LongBreakMinutes},
		{"longBreakInterval", update.LongBreakInterval},
	}
	for _, field := range fields {
		if field.value != nil && *field.value < 1 {
			return nil, apperrors.BadRequest("invalid_settings", field.name+" must be at least 1").
				WithDetails(map[string]string{"field": field.name})
		}
	}

	policy, err := s.store.Update(update)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.store.Path()).Msg("Failed to update timer policy")
		return nil, apperrors.Internal("failed to update timer settings").WithCause(err)
	}
	s.logger.Info().Interface("policy", policy).Msg("Timer policy updated")
	return &policy, nil
}

func (s *SettingsService) Reset() (*model.TimerPolicy, *apperrors.APIError) {
	policy, err := s.store.RestoreDefault()
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.store.Path()).Msg("Failed to restore timer policy")
		return nil, apperrors.Internal("failed to restore timer settings").WithCause(err)
	}
	s.logger.Info().Msg("Timer policy restored to defaults")
	return &policy, nil
}
