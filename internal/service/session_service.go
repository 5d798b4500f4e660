package service

import (
	"context"
	"errors"
	"strings"

	apperrors "intentio/backend/internal/errors"
	"intentio/backend/internal/model"
	"intentio/backend/internal/repository"
)

type SessionService struct {
	repo *repository.SessionRepository
}

func NewSessionService(repo *repository.SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

func (s *SessionService) List(ctx context.Context, filter model.SessionFilter) ([]model.PersistedSession, *apperrors.APIError) {
	if filter.Limit < 0 {
		return nil, apperrors.BadRequest("invalid_limit", "limit must not be negative")
	}
	sessions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("failed to list sessions").WithCause(err)
	}
	return sessions, nil
}

func (s *SessionService) Get(ctx context.Context, id int64) (*model.PersistedSession, *apperrors.APIError) {
	session, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get session").WithCause(err)
	}
	return session, nil
}

func (s *SessionService) UpdateSummary(ctx context.Context, id int64, summary string) (*model.PersistedSession, *apperrors.APIError) {
	summary = strings.TrimSpace(summary)
	err := s.repo.UpdateSummary(ctx, id, summary)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to update session summary").WithCause(err)
	}
	return s.Get(ctx, id)
}
