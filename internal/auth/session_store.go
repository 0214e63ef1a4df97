package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepository defines the interface for refresh session persistence.
//
// Sessions are immutable once created: there is deliberately no update
// operation. Rotation always creates a new row and then deletes the old
// one. Deletion is idempotent: removing an already-absent row is success,
// which is how concurrent refresh/logout races on the same session resolve
// (the loser finds the row gone and treats it as already revoked).
type SessionRepository interface {
	Create(ctx context.Context, userID int64, expiresAt time.Time) (*RefreshSession, error)
	GetByID(ctx context.Context, id int64) (*RefreshSession, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteSessionRepository implements SessionRepository using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create inserts a session row for the user and fills in the generated id.
func (r *SQLiteSessionRepository) Create(ctx context.Context, userID int64, expiresAt time.Time) (*RefreshSession, error) {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_sessions (user_id, created_at, expires_at) VALUES (?, ?, ?)`,
		userID, now.Format(time.RFC3339), expiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new session id: %w", err)
	}

	return &RefreshSession{
		ID:        id,
		UserID:    userID,
		CreatedAt: now.Truncate(time.Second),
		ExpiresAt: expiresAt.UTC().Truncate(time.Second),
	}, nil
}

// GetByID retrieves a session row by its id. A missing row surfaces
// ErrSessionNotFound, which callers treat as already-revoked.
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id int64) (*RefreshSession, error) {
	var s RefreshSession
	var createdAt, expiresAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM refresh_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting refresh session: %w", err)
	}

	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	s.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled

	return &s, nil
}

// DeleteByID removes a session row. Deleting an absent row is not an error.
func (r *SQLiteSessionRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting refresh session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry, freeing storage.
// Returns the number of deleted rows.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
