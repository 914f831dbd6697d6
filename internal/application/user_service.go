package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/store-attendance/internal/logging"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hasher, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hasher, idGenerator: idGenerator, now: now, logger: logging.OrDefault(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Component(ctx, s.logger, "service", "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new account. Requires ADMIN.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	normalized := normalizeUserInput(params.Input)
	logger := s.loggerWith(ctx, "CreateUser",
		"principal_id", params.Principal.UserID,
		"employee_id", normalized.EmployeeID,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user created", "user_id", user.ID)
	}()

	if err = params.Principal.require(RoleAdmin); err != nil {
		return
	}

	if vErr := validateUserInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}
	role, _ := ParseRole(normalized.Role)

	var hash string
	hash, err = s.hashPassword(normalized.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.users.CreateUser(ctx, UserCredentials{
		User: User{
			ID:         s.idGenerator(),
			Email:      normalized.Email,
			Name:       normalized.Name,
			EmployeeID: normalized.EmployeeID,
			Department: normalized.Department,
			Position:   normalized.Position,
			Role:       role,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		PasswordHash: hash,
	})
	return
}

// UpdateUser changes an account's profile, role or active flag. Requires ADMIN.
// An administrator cannot deactivate or demote their own account.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if err = params.Principal.require(RoleAdmin); err != nil {
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrNotFound
		}
		return
	}

	updated, vErr := applyUserUpdate(existing, params.Input)
	if updated.ID == params.Principal.UserID {
		if !updated.IsActive {
			vErr.add("isActive", msgSelfDeactivation)
		}
		if updated.Role != existing.Role {
			vErr.add("role", msgSelfDemotion)
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	updated.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, updated)
	if errors.Is(err, ErrNotFound) {
		err = ErrNotFound
	}
	return
}

func applyUserUpdate(user User, input UserUpdateInput) (User, *ValidationError) {
	vErr := &ValidationError{}
	if input.Name != nil {
		if user.Name = strings.TrimSpace(*input.Name); user.Name == "" {
			vErr.add("name", msgRequired)
		}
	}
	if input.Department != nil {
		if user.Department = strings.TrimSpace(*input.Department); user.Department == "" {
			vErr.add("department", msgRequired)
		}
	}
	if input.Position != nil {
		if user.Position = strings.TrimSpace(*input.Position); user.Position == "" {
			vErr.add("position", msgRequired)
		}
	}
	if input.Role != nil {
		role, err := ParseRole(*input.Role)
		if err != nil {
			vErr.add("role", msgRoleInvalid)
		} else {
			user.Role = role
		}
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	return user, vErr
}

// ListUsers returns all accounts ordered by employee id. Requires MANAGER or above.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if err := principal.require(RoleManager); err != nil {
		return nil, err
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.loggerWith(ctx, "ListUsers").ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := make([]User, len(users))
	copy(out, users)

	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID == out[j].EmployeeID {
			return out[i].ID < out[j].ID
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})

	return out, nil
}
