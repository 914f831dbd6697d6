package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/store-attendance/internal/logging"
)

// SettingsRepository reads the store settings singleton.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (StoreSettings, error)
}

// SettingsService exposes the store configuration to managers.
type SettingsService struct {
	settings SettingsRepository
	logger   *slog.Logger
}

// NewSettingsServiceWithLogger wires dependencies for the settings service.
func NewSettingsServiceWithLogger(settings SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: logging.OrDefault(logger)}
}

// GetSettings returns the store settings. Requires MANAGER or above.
func (s *SettingsService) GetSettings(ctx context.Context, principal Principal) (StoreSettings, error) {
	if s == nil || s.settings == nil {
		return StoreSettings{}, fmt.Errorf("settings repository not configured")
	}
	if err := principal.require(RoleManager); err != nil {
		return StoreSettings{}, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		logging.Component(ctx, s.logger, "service", "SettingsService", "GetSettings").ErrorContext(ctx, "failed to load settings", "error", err, "error_kind", ErrorKind(err))
		return StoreSettings{}, err
	}
	return settings, nil
}
