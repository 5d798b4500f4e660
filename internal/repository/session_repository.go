package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"intentio/backend/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Insert(ctx context.Context, session model.PersistedSession) (int64, error) {
	var summary interface{}
	if session.Summary != nil {
		summary = *session.Summary
	}

	result, err := r.db.ExecContext(
		ctx,
		`INSERT INTO sessions (duration, summary, started_at, finished_at, intent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.DurationSeconds,
		summary,
		session.StartedAt,
		session.FinishedAt,
		session.IntentID,
		formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read session id: %w", err)
	}
	return id, nil
}

func (r *SessionRepository) Get(ctx context.Context, id int64) (*model.PersistedSession, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, duration, summary, started_at, finished_at, intent_id, created_at
		 FROM sessions
		 WHERE id = ?`,
		id,
	)
	return scanSession(row)
}

func (r *SessionRepository) List(ctx context.Context, filter model.SessionFilter) ([]model.PersistedSession, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if filter.IntentID != nil {
		conditions = append(conditions, "intent_id = ?")
		args = append(args, *filter.IntentID)
	}
	if filter.Since != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, duration, summary, started_at, finished_at, intent_id, created_at FROM sessions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PersistedSession, 0, limit)
	for rows.Next() {
		session, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) UpdateSummary(ctx context.Context, id int64, summary string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE sessions SET summary = ? WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("update session summary: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session summary: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*model.PersistedSession, error) {
	var session model.PersistedSession
	var summary sql.NullString
	var createdAt string
	err := s.Scan(
		&session.ID,
		&session.DurationSeconds,
		&summary,
		&session.StartedAt,
		&session.FinishedAt,
		&session.IntentID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if summary.Valid {
		value := summary.String
		session.Summary = &value
	}

	parsedCreatedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}
	session.CreatedAt = parsedCreatedAt
	return &session, nil
}
