package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/store-attendance/internal/logging"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUserCredentials(ctx context.Context, id string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates login, logout, session validation and password changes.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	tokens         *TokenSigner
	verifyPassword PasswordVerifier
	hashPassword   PasswordHasher
	idGenerator    func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, tokens *TokenSigner, verify PasswordVerifier, idGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, tokens, verify, idGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, tokens *TokenSigner, verify PasswordVerifier, idGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		tokens:         tokens,
		verifyPassword: verify,
		hashPassword:   HashPassword,
		idGenerator:    idGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         logging.OrDefault(logger),
	}
}

// SessionTTL reports how long issued sessions stay valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Component(ctx, s.logger, "service", "AuthService", operation, attrs...)
}

// Login validates credentials, records a session and returns its signed token.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "login succeeded")
	}()

	if email == "" || password == "" {
		vErr := &ValidationError{}
		if email == "" {
			vErr.add("email", msgLoginRequired)
		}
		if password == "" {
			vErr.add("password", msgLoginRequired)
		}
		err = vErr
		return
	}
	if !ValidEmail(email) {
		vErr := &ValidationError{}
		vErr.add("email", msgEmailFormat)
		err = vErr
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if !creds.User.IsActive {
		err = ErrAccountDisabled
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	if NeedsRehash(creds.PasswordHash) {
		s.upgradeHash(ctx, logger, creds.User.ID, password, now)
	}

	if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}

	var session Session
	session, err = s.sessions.CreateSession(ctx, Session{
		ID:        s.idGenerator(),
		UserID:    creds.User.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return
	}

	var token string
	token, err = s.tokens.Sign(creds.User, session)
	if err != nil {
		return
	}

	result = LoginResult{User: creds.User, Session: session, Token: token}
	return
}

// upgradeHash replaces a legacy hash after a successful login. Failures are logged only.
func (s *AuthService) upgradeHash(ctx context.Context, logger *slog.Logger, userID, password string, now time.Time) {
	hash, err := s.hashPassword(password)
	if err == nil {
		err = s.credentials.UpdatePasswordHash(ctx, userID, hash, now)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to upgrade legacy password hash", "user_id", userID, "error", err)
		return
	}
	logger.InfoContext(ctx, "upgraded legacy password hash", "user_id", userID)
}

// Authenticate verifies a session token against its stored session and the
// current account state, and returns the caller's principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "Authenticate", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var claims SessionClaims
	claims, err = s.tokens.Parse(trimmed)
	if err != nil {
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}
	if session.UserID != claims.Subject {
		err = ErrUnauthorized
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if !user.IsActive {
		err = ErrAccountDisabled
		return
	}

	principal = Principal{
		UserID:     user.ID,
		Role:       user.Role,
		EmployeeID: user.EmployeeID,
		SessionID:  session.ID,
	}
	return
}

// Logout revokes the session named by token. Expired tokens are still revoked.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil || s.tokens == nil {
		return fmt.Errorf("auth service not configured")
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "Logout", "token_provided", trimmed != "")
	if trimmed == "" {
		return ErrUnauthorized
	}

	claims, err := s.tokens.Parse(trimmed)
	if errors.Is(err, ErrSessionExpired) {
		logger.InfoContext(ctx, "logout with expired token")
		return nil
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to parse logout token", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if _, err := s.sessions.RevokeSession(ctx, claims.ID, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.WarnContext(ctx, "failed to revoke session", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
			return ErrUnauthorized
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session revoked", "session_id", claims.ID, "user_id", claims.Subject)
	return nil
}

// Me returns the profile of the authenticated caller.
func (s *AuthService) Me(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthorized
	}
	user, err := s.credentials.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrAccountDisabled
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, params ChangePasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if err := params.Principal.require(RoleEmployee); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "ChangePassword", "user_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "password change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	vErr := &ValidationError{}
	if params.CurrentPassword == "" {
		vErr.add("currentPassword", msgRequired)
	}
	if params.NewPassword == "" {
		vErr.add("newPassword", msgRequired)
	} else if problem := passwordProblem(params.NewPassword); problem != "" {
		vErr.add("newPassword", problem)
	}
	if vErr.HasErrors() {
		return vErr
	}

	creds, err := s.credentials.GetUserCredentials(ctx, params.Principal.UserID)
	if err != nil {
		return err
	}
	if err := s.verifyPassword(creds.PasswordHash, params.CurrentPassword); err != nil {
		mismatch := &ValidationError{}
		mismatch.add("currentPassword", msgCurrentPassword)
		return mismatch
	}

	hash, err := s.hashPassword(params.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.credentials.UpdatePasswordHash(ctx, creds.User.ID, hash, s.now())
}
