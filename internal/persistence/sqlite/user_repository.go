package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/store-attendance/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, name, employee_id, password_hash, department, position, role, is_active, created_at, updated_at`

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.pool.db.ExecContext(ctx, query,
		user.ID,
		normalizeEmail(user.Email),
		user.Name,
		strings.TrimSpace(user.EmployeeID),
		user.PasswordHash,
		user.Department,
		user.Position,
		user.Role,
		user.IsActive,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return mapError(err)
}

// UpdateUser replaces the mutable fields of an existing user
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE users
		SET email = ?, name = ?, employee_id = ?, password_hash = ?, department = ?, position = ?,
		    role = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.pool.db.ExecContext(ctx, query,
		normalizeEmail(user.Email),
		user.Name,
		strings.TrimSpace(user.EmployeeID),
		user.PasswordHash,
		user.Department,
		user.Position,
		user.Role,
		user.IsActive,
		formatTime(user.UpdatedAt),
		user.ID,
	)
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
}

// GetUser retrieves a user by ID from the database
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by case-insensitive email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalized)
}

// GetUserByEmployeeID retrieves a user by employee code
func (r *UserRepository) GetUserByEmployeeID(ctx context.Context, employeeID string) (persistence.User, error) {
	trimmed := strings.TrimSpace(employeeID)
	if trimmed == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE employee_id = ?`, trimmed)
}

// ListUsers returns all users ordered by employee id
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY employee_id ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (persistence.User, error) {
	user, err := scanUser(r.pool.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                 persistence.User
		createdAt, updatedAt string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.EmployeeID,
		&user.PasswordHash,
		&user.Department,
		&user.Position,
		&user.Role,
		&user.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, mapError(err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return user, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
