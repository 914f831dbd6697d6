package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/store-attendance/internal/application"
)

// TestSessionSecret signs tokens issued by services built through a ServiceFactory.
const TestSessionSecret = "test-session-secret"

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and the Tokyo business zone.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    Tokyo,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = Tokyo
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation overrides the business zone.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// NewTokenSigner returns a signer on TestSessionSecret driven by the factory clock.
func (f *ServiceFactory) NewTokenSigner() *application.TokenSigner {
	signer, err := application.NewTokenSigner(TestSessionSecret, f.Clock.NowFunc())
	if err != nil {
		panic(err)
	}
	return signer
}

// NewAuthService builds an auth service with argon2id verification and a seven-day TTL.
func (f *ServiceFactory) NewAuthService(credentials application.CredentialStore, sessions application.SessionRepository) *application.AuthService {
	return application.NewAuthServiceWithLogger(
		credentials,
		sessions,
		f.NewTokenSigner(),
		application.VerifyPassword,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		7*24*time.Hour,
		f.Logger,
	)
}

// NewUserService builds a user service that hashes with argon2id.
func (f *ServiceFactory) NewUserService(users application.UserRepository) *application.UserService {
	return application.NewUserServiceWithLogger(users, application.HashPassword, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewAttendanceService builds an attendance service over the factory's business zone.
func (f *ServiceFactory) NewAttendanceService(records application.AttendanceRepository) *application.AttendanceService {
	return application.NewAttendanceServiceWithLogger(records, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Location, f.Logger)
}
