package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/config"
	httptransport "github.com/example/store-attendance/internal/http"
	"github.com/example/store-attendance/internal/logging"
	"github.com/example/store-attendance/internal/persistence/sqlite"
	"github.com/example/store-attendance/internal/persistence/sqlite/migration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs after configuration has been loaded.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func newRootCommand() *cobra.Command {
	rt := &app{now: time.Now, newID: uuid.NewString}

	root := &cobra.Command{
		Use:          "attendance",
		Short:        "店舗勤怠管理サーバー",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newSeedCommand(rt),
		newUsersCommand(rt),
		newCleanupCommand(rt),
	)
	return root
}

func (rt *app) openStorage(ctx context.Context) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, migration.SQLiteConfig{
		Path:              rt.cfg.SQLitePath,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		MaxOpenConns:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return storage, nil
}

// withStorage opens the database, applies pending migrations and hands the
// storage to fn. The storage is closed when fn returns.
func (rt *app) withStorage(ctx context.Context, fn func(*sqlite.Storage) error) error {
	storage, err := rt.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			rt.logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx, rt.logger); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return fn(storage)
}

func (rt *app) attendanceService(storage *sqlite.Storage) *application.AttendanceService {
	return application.NewAttendanceServiceWithLogger(newAttendanceRepositoryAdapter(storage.AttendanceRepository), rt.newID, rt.now, rt.cfg.Location, rt.logger)
}

func (rt *app) userService(storage *sqlite.Storage) *application.UserService {
	return application.NewUserServiceWithLogger(newUserRepositoryAdapter(storage.UserRepository), application.HashPassword, rt.newID, rt.now, rt.logger)
}

// newHandler assembles the HTTP stack over an already migrated storage.
func (rt *app) newHandler(storage *sqlite.Storage) (http.Handler, error) {
	signer, err := application.NewTokenSigner(rt.cfg.SessionSecret, rt.now)
	if err != nil {
		return nil, err
	}

	authService := application.NewAuthServiceWithLogger(
		newCredentialStoreAdapter(storage.UserRepository),
		newSessionRepositoryAdapter(storage.SessionRepository),
		signer,
		application.VerifyPassword,
		rt.newID,
		rt.now,
		rt.cfg.SessionTTL,
		rt.logger,
	)
	attendanceService := rt.attendanceService(storage)
	settingsService := application.NewSettingsServiceWithLogger(newSettingsRepositoryAdapter(storage.SettingsRepository), rt.logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, rt.cfg.CookieSecure, rt.logger),
		Users:      httptransport.NewUserHandler(rt.userService(storage), rt.logger),
		Attendance: httptransport.NewAttendanceHandler(attendanceService, rt.now, rt.logger),
		Admin:      httptransport.NewAdminHandler(attendanceService, settingsService, rt.logger),
		Health:     storage,
		Session:    httptransport.RequireSession(authService, rt.logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(rt.logger),
			httptransport.Recoverer(rt.logger),
		},
	}), nil
}

func newServeCommand(rt *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "HTTP API サーバーを起動します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return rt.withStorage(ctx, func(storage *sqlite.Storage) error {
				handler, err := rt.newHandler(storage)
				if err != nil {
					return err
				}
				return serve(ctx, rt.logger, fmt.Sprintf(":%d", rt.cfg.HTTPPort), handler)
			})
		},
	}
}

func serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("attendance API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func newMigrateCommand(rt *app) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "データベースのマイグレーションを適用します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			storage, err := rt.openStorage(ctx)
			if err != nil {
				return err
			}
			defer storage.Close()

			if !statusOnly {
				if err := storage.Migrate(ctx, rt.logger); err != nil {
					return fmt.Errorf("apply migrations: %w", err)
				}
			}

			status, err := storage.MigrationStatus(ctx, rt.logger)
			if err != nil {
				return fmt.Errorf("migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "適用せずに現在の状態のみ表示します")
	return cmd
}

func printMigrationStatus(w io.Writer, status *migration.Status) {
	current := status.CurrentVersion
	if current == "" {
		current = "(none)"
	}
	fmt.Fprintf(w, "current version: %s\n", current)
	for _, applied := range status.AppliedMigrations {
		fmt.Fprintf(w, "  applied %s at %s\n", applied.Version, applied.AppliedAt.Format(time.RFC3339))
	}
	for _, pending := range status.PendingMigrations {
		fmt.Fprintf(w, "  pending %s %s\n", pending.Version, pending.Description)
	}
	fmt.Fprintf(w, "pending: %d\n", status.PendingCount)
}

func newCleanupCommand(rt *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "指定期間の勤怠記録を削除します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return rt.withStorage(ctx, func(storage *sqlite.Storage) error {
				deleted, err := rt.attendanceService(storage).Cleanup(ctx, application.CleanupParams{
					Principal: cliPrincipal,
					StartDate: from,
					EndDate:   to,
				})
				if err != nil {
					return describeServiceError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d 件の勤怠記録を削除しました\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "開始日 (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "終了日 (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
