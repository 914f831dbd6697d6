package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/store-attendance/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a newly issued session
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.ID = strings.TrimSpace(session.ID)
	if session.ID == "" || session.UserID == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		formatTime(session.ExpiresAt),
		formatTimePtr(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return r.GetSession(ctx, session.ID)
}

// GetSession retrieves a session by its identifier
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var (
		session                         persistence.Session
		expiresAt, createdAt, updatedAt string
		revokedAt                       sql.NullString
	)
	err := r.pool.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id).Scan(
		&session.ID,
		&session.UserID,
		&expiresAt,
		&revokedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.RevokedAt, err = parseTimePtr(revokedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse revoked_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}

// RevokeSession marks a session as revoked. Revoking twice keeps the first timestamp.
func (r *SessionRepository) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (persistence.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET revoked_at = COALESCE(revoked_at, ?), updated_at = ?
			WHERE id = ?
		`, formatTime(revokedAt), formatTime(revokedAt), id)
		if err != nil {
			return mapError(err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, id)
}

// DeleteExpiredSessions removes sessions that expired on or before reference
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}
