package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

var authNow = time.Date(2024, 1, 15, 0, 30, 0, 0, time.UTC)

func activeEmployee() UserCredentials {
	return UserCredentials{
		User: User{
			ID:         "user-1",
			Email:      "staff@store.com",
			Name:       "山田太郎",
			EmployeeID: "EMP001",
			Role:       RoleEmployee,
			IsActive:   true,
		},
		PasswordHash: "Secret123",
	}
}

func newTestAuthService(t *testing.T, creds *credentialStoreStub, sessions *sessionRepositoryStub) *AuthService {
	t.Helper()
	signer, err := NewTokenSigner("test-secret", fixedClock(authNow))
	if err != nil {
		t.Fatalf("NewTokenSigner failed: %v", err)
	}
	svc := NewAuthService(creds, sessions, signer, plainVerifier, sequence("session-1", "session-2"), fixedClock(authNow), time.Hour)
	svc.hashPassword = plainHasher
	return svc
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	t.Run("issues a token backed by a session row", func(t *testing.T) {
		t.Parallel()

		creds := newCredentialStoreStub(activeEmployee())
		sessions := newSessionRepositoryStub()
		svc := newTestAuthService(t, creds, sessions)

		result, err := svc.Login(context.Background(), LoginParams{Email: " Staff@Store.com ", Password: "Secret123"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if result.Session.ID != "session-1" {
			t.Fatalf("expected session-1, got %s", result.Session.ID)
		}
		if !result.Session.ExpiresAt.Equal(authNow.Add(time.Hour)) {
			t.Fatalf("unexpected expiry %v", result.Session.ExpiresAt)
		}
		if result.Token == "" {
			t.Fatalf("expected signed token")
		}
		if len(sessions.deleteCalls) != 1 || !sessions.deleteCalls[0].Equal(authNow) {
			t.Fatalf("expected expired sessions to be pruned at now, got %#v", sessions.deleteCalls)
		}

		claims, err := svc.tokens.Parse(result.Token)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if claims.ID != "session-1" || claims.Subject != "user-1" || claims.Role != "EMPLOYEE" || claims.EmployeeID != "EMP001" {
			t.Fatalf("unexpected claims %#v", claims)
		}
	})

	t.Run("rejects missing fields and malformed email", func(t *testing.T) {
		t.Parallel()

		svc := newTestAuthService(t, newCredentialStoreStub(), newSessionRepositoryStub())

		_, err := svc.Login(context.Background(), LoginParams{Email: "", Password: ""})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Message != msgLoginRequired {
			t.Fatalf("expected required validation error, got %v", err)
		}

		_, err = svc.Login(context.Background(), LoginParams{Email: "not-an-email", Password: "x"})
		if !errors.As(err, &vErr) || vErr.FieldErrors["email"] != msgEmailFormat {
			t.Fatalf("expected email format error, got %v", err)
		}
	})

	t.Run("rejects unknown accounts and wrong passwords alike", func(t *testing.T) {
		t.Parallel()

		svc := newTestAuthService(t, newCredentialStoreStub(activeEmployee()), newSessionRepositoryStub())

		if _, err := svc.Login(context.Background(), LoginParams{Email: "nobody@store.com", Password: "Secret123"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
		}
		if _, err := svc.Login(context.Background(), LoginParams{Email: "staff@store.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
		}
	})

	t.Run("rejects disabled accounts before checking the password", func(t *testing.T) {
		t.Parallel()

		disabled := activeEmployee()
		disabled.User.IsActive = false
		svc := newTestAuthService(t, newCredentialStoreStub(disabled), newSessionRepositoryStub())

		_, err := svc.Login(context.Background(), LoginParams{Email: "staff@store.com", Password: "wrong"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("upgrades legacy hashes after a successful login", func(t *testing.T) {
		t.Parallel()

		legacy := activeEmployee()
		legacy.PasswordHash = "$2a$10$legacy"
		creds := newCredentialStoreStub(legacy)
		svc := newTestAuthService(t, creds, newSessionRepositoryStub())
		svc.verifyPassword = func(hash, password string) error { return nil }

		if _, err := svc.Login(context.Background(), LoginParams{Email: "staff@store.com", Password: "Secret123"}); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if got := creds.hashUpdates["user-1"]; got != "hashed:Secret123" {
			t.Fatalf("expected hash upgrade, got %q", got)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		sessions := newSessionRepositoryStub()
		sessions.createErr = expected
		svc := newTestAuthService(t, newCredentialStoreStub(activeEmployee()), sessions)

		_, err := svc.Login(context.Background(), LoginParams{Email: "staff@store.com", Password: "Secret123"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected error %v, got %v", expected, err)
		}
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, creds *credentialStoreStub, sessions *sessionRepositoryStub) (*AuthService, string) {
		t.Helper()
		svc := newTestAuthService(t, creds, sessions)
		result, err := svc.Login(context.Background(), LoginParams{Email: "staff@store.com", Password: "Secret123"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		return svc, result.Token
	}

	t.Run("returns the principal of a live session", func(t *testing.T) {
		t.Parallel()

		svc, token := login(t, newCredentialStoreStub(activeEmployee()), newSessionRepositoryStub())

		principal, err := svc.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		want := Principal{UserID: "user-1", Role: RoleEmployee, EmployeeID: "EMP001", SessionID: "session-1"}
		if principal != want {
			t.Fatalf("expected %#v, got %#v", want, principal)
		}
	})

	t.Run("uses the stored role rather than the token claim", func(t *testing.T) {
		t.Parallel()

		creds := newCredentialStoreStub(activeEmployee())
		svc, token := login(t, creds, newSessionRepositoryStub())

		promoted := creds.users["user-1"]
		promoted.User.Role = RoleManager
		creds.users["user-1"] = promoted

		principal, err := svc.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if principal.Role != RoleManager {
			t.Fatalf("expected refreshed role, got %v", principal.Role)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		svc, token := login(t, newCredentialStoreStub(activeEmployee()), newSessionRepositoryStub())
		if err := svc.Logout(context.Background(), token); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects deactivated accounts", func(t *testing.T) {
		t.Parallel()

		creds := newCredentialStoreStub(activeEmployee())
		svc, token := login(t, creds, newSessionRepositoryStub())

		disabled := creds.users["user-1"]
		disabled.User.IsActive = false
		creds.users["user-1"] = disabled

		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("rejects tokens without a stored session", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		svc, token := login(t, newCredentialStoreStub(activeEmployee()), sessions)
		delete(sessions.sessions, "session-1")

		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects garbage and empty tokens", func(t *testing.T) {
		t.Parallel()

		svc := newTestAuthService(t, newCredentialStoreStub(), newSessionRepositoryStub())
		for _, token := range []string{"", "   ", "not-a-jwt"} {
			if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized for %q, got %v", token, err)
			}
		}
	})
}

func TestAuthService_Me(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(t, newCredentialStoreStub(activeEmployee()), newSessionRepositoryStub())

	user, err := svc.Me(context.Background(), Principal{UserID: "user-1", Role: RoleEmployee})
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.EmployeeID != "EMP001" {
		t.Fatalf("unexpected user %#v", user)
	}

	if _, err := svc.Me(context.Background(), Principal{UserID: "missing", Role: RoleEmployee}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for missing user, got %v", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Parallel()

	principal := Principal{UserID: "user-1", Role: RoleEmployee}

	t.Run("replaces the hash", func(t *testing.T) {
		t.Parallel()

		creds := newCredentialStoreStub(activeEmployee())
		svc := newTestAuthService(t, creds, newSessionRepositoryStub())

		err := svc.ChangePassword(context.Background(), ChangePasswordParams{Principal: principal, CurrentPassword: "Secret123", NewPassword: "Better456"})
		if err != nil {
			t.Fatalf("ChangePassword failed: %v", err)
		}
		if got := creds.hashUpdates["user-1"]; got != "hashed:Better456" {
			t.Fatalf("expected new hash, got %q", got)
		}
	})

	t.Run("rejects a wrong current password", func(t *testing.T) {
		t.Parallel()

		svc := newTestAuthService(t, newCredentialStoreStub(activeEmployee()), newSessionRepositoryStub())

		err := svc.ChangePassword(context.Background(), ChangePasswordParams{Principal: principal, CurrentPassword: "nope", NewPassword: "Better456"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["currentPassword"] != msgCurrentPassword {
			t.Fatalf("expected current password validation error, got %v", err)
		}
	})

	t.Run("enforces strength rules", func(t *testing.T) {
		t.Parallel()

		svc := newTestAuthService(t, newCredentialStoreStub(activeEmployee()), newSessionRepositoryStub())

		err := svc.ChangePassword(context.Background(), ChangePasswordParams{Principal: principal, CurrentPassword: "Secret123", NewPassword: "weakpass1"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["newPassword"] != msgPasswordUpper {
			t.Fatalf("expected strength validation error, got %v", err)
		}
	})
}
