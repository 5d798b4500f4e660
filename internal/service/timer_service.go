package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "intentio/backend/internal/errors"
	"intentio/backend/internal/model"
	"intentio/backend/internal/timer"
)

type TimerService struct {
	engine *timer.Engine
}

type StatusView struct {
	Session   *model.Session     `json:"session"`
	Iteration int                `json:"iteration"`
	Queue     []model.QueueEntry `json:"queue"`
}

func NewTimerService(engine *timer.Engine) *TimerService {
	return &TimerService{engine: engine}
}

func (s *TimerService) GetSession() (*model.Session, *apperrors.APIError) {
	session, err := s.engine.Session()
	if err != nil {
		return nil, mapTimerError(err)
	}
	return &session, nil
}

func (s *TimerService) Status() StatusView {
	view := StatusView{
		Iteration: s.engine.Iteration(),
		Queue:     s.engine.Queue().Entries(),
	}
	if session, err := s.engine.Session(); err == nil {
		view.Session = &session
	}
	return view
}

func (s *TimerService) SetIntent(intent model.Intent) (*model.Session, *apperrors.APIError) {
	if intent.ID < 1 {
		return nil, apperrors.BadRequest("invalid_intent", "intent id must be positive")
	}
	intent.Label = strings.TrimSpace(intent.Label)
	s.engine.SetIntent(intent)
	return s.GetSession()
}

func (s *TimerService) Play() (*model.Session, *apperrors.APIError) {
	if err := s.engine.Play(); err != nil {
		return nil, mapTimerError(err)
	}
	return s.GetSession()
}

func (s *TimerService) Stop() (*model.Session, *apperrors.APIError) {
	if err := s.engine.Stop(); err != nil {
		return nil, mapTimerError(err)
	}
	return s.GetSession()
}

func (s *TimerService) Restart(ctx context.Context) (*model.Session, *apperrors.APIError) {
	if err := s.engine.Restart(ctx); err != nil {
		return nil, mapTimerError(err)
	}
	return s.GetSession()
}

func (s *TimerService) Skip(ctx context.Context) (*model.Session, *apperrors.APIError) {
	if err := s.engine.Skip(ctx); err != nil {
		return nil, mapTimerError(err)
	}
	return s.GetSession()
}

func (s *TimerService) Queue() []model.QueueEntry {
	return s.engine.Queue().Entries()
}

func (s *TimerService) AddToQueue(entry model.QueueEntry) ([]model.QueueEntry, *apperrors.APIError) {
	if entry.Intent.ID < 1 {
		return nil, apperrors.BadRequest("invalid_intent", "intent id must be positive")
	}
	if entry.DurationMinutes < 1 {
		return nil, apperrors.BadRequest("invalid_duration", "duration must be at least 1 minute")
	}
	if entry.Iterations < 1 {
		return nil, apperrors.BadRequest("invalid_iterations", "iterations must be at least 1")
	}
	entry.Intent.Label = strings.TrimSpace(entry.Intent.Label)
	s.engine.Queue().Add(entry)
	return s.Queue(), nil
}

func (s *TimerService) RemoveFromQueue(idx int) ([]model.QueueEntry, *apperrors.APIError) {
	return s.mutateQueue(func(q *timer.Queue) error { return q.Remove(idx) })
}

func (s *TimerService) ReorderQueue(idx, target int) ([]model.QueueEntry, *apperrors.APIError) {
	return s.mutateQueue(func(q *timer.Queue) error { return q.Reorder(idx, target) })
}

func (s *TimerService) ClearQueue() []model.QueueEntry {
	s.engine.Queue().Clear()
	return s.Queue()
}

func (s *TimerService) IncrementIterations(idx int) ([]model.QueueEntry, *apperrors.APIError) {
	return s.mutateQueue(func(q *timer.Queue) error { return q.IncrementIterations(idx) })
}

func (s *TimerService) DecrementIterations(idx int) ([]model.QueueEntry, *apperrors.APIError) {
	return s.mutateQueue(func(q *timer.Queue) error { return q.DecrementIterations(idx) })
}

func (s *TimerService) UpdateQueueDuration(idx, minutes int) ([]model.QueueEntry, *apperrors.APIError) {
	if minutes < 1 {
		return nil, apperrors.BadRequest("invalid_duration", "duration must be at least 1 minute")
	}
	return s.mutateQueue(func(q *timer.Queue) error { return q.UpdateDuration(idx, minutes) })
}

func (s *TimerService) mutateQueue(mutate func(*timer.Queue) error) ([]model.QueueEntry, *apperrors.APIError) {
	if err := mutate(s.engine.Queue()); err != nil {
		return nil, mapTimerError(err)
	}
	return s.Queue(), nil
}

func mapTimerError(err error) *apperrors.APIError {
	switch {
	case errors.Is(err, timer.ErrUndefinedSession):
		return apperrors.Conflict("undefined_session", "set an intent before using the timer")
	case errors.Is(err, timer.ErrIndexOutOfRange):
		return apperrors.NotFound("queue_index_out_of_range", err.Error())
	case errors.Is(err, timer.ErrEmptyQueue):
		return apperrors.NotFound("queue_empty", "session queue is empty")
	case errors.Is(err, timer.ErrPersistenceFailed):
		return apperrors.New(http.StatusInternalServerError, "persistence_failed", "failed to save the session").WithCause(err)
	default:
		return apperrors.Internal("").WithCause(err)
	}
}
