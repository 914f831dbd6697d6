package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/store-attendance/internal/attendance"
)

// Config captures environment driven configuration values for the attendance service.
type Config struct {
	HTTPPort      int
	SQLitePath    string
	SessionSecret string
	SessionTTL    time.Duration
	ZoneOffset    string
	Location      *time.Location
	CookieSecure  bool
	LogLevel      slog.Level
}

const envPrefix = "ATTENDANCE_"

// Load parses configuration values from the current process environment.
//
// A .env file in the working directory is read first when present; variables
// already exported in the environment take precedence over the file. Optional
// fields fall back to defaults while required values are validated and
// reported with localized error messages.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf(".env ファイルを読み込めません: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the supplied lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:   8080,
		SQLitePath: "attendance.db",
		SessionTTL: 7 * 24 * time.Hour,
		ZoneOffset: "+09:00",
		LogLevel:   slog.LevelInfo,
	}

	lookup := func(key string) string {
		return strings.TrimSpace(getenv(envPrefix + key))
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := lookup("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := lookup("SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if secret := lookup("SESSION_SECRET"); secret == "" {
		missing = append(missing, envPrefix+"SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := lookup("SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, envPrefix+"SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if offset := lookup("TZ_OFFSET"); offset != "" {
		cfg.ZoneOffset = offset
	}
	loc, err := attendance.ParseZoneOffset(cfg.ZoneOffset)
	if err != nil {
		invalid = append(invalid, envPrefix+"TZ_OFFSET")
	} else {
		cfg.Location = loc
	}

	if secureValue := lookup("COOKIE_SECURE"); secureValue != "" {
		secure, err := strconv.ParseBool(secureValue)
		if err != nil {
			invalid = append(invalid, envPrefix+"COOKIE_SECURE")
		} else {
			cfg.CookieSecure = secure
		}
	}

	if levelValue := lookup("LOG_LEVEL"); levelValue != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
