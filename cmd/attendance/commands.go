package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/store-attendance/internal/application"
	"github.com/example/store-attendance/internal/persistence"
	"github.com/example/store-attendance/internal/persistence/sqlite"
)

// cliPrincipal is the identity used for operator commands run from the shell.
var cliPrincipal = application.Principal{UserID: "cli", Role: application.RoleAdmin}

const (
	seedAdminEmail    = "admin@store.com"
	seedAdminPassword = "admin123"
)

func seedAdmin(now time.Time, id string) (persistence.User, error) {
	hash, err := application.HashPassword(seedAdminPassword)
	if err != nil {
		return persistence.User{}, err
	}
	return persistence.User{
		ID:           id,
		Email:        seedAdminEmail,
		Name:         "管理者",
		EmployeeID:   "ADM001",
		PasswordHash: hash,
		Department:   "管理部",
		Position:     "店長",
		Role:         application.RoleAdmin.String(),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type settingsFlags struct {
	storeName         string
	workStart         string
	workEnd           string
	breakMinutes      int
	overtimeThreshold float64
	timezone          string
}

// apply copies the flags the operator actually set onto settings.
func (f settingsFlags) apply(cmd *cobra.Command, settings *persistence.StoreSettings) (bool, error) {
	changed := false
	if cmd.Flags().Changed("store-name") {
		if strings.TrimSpace(f.storeName) == "" {
			return false, errors.New("店舗名を入力してください")
		}
		settings.StoreName = strings.TrimSpace(f.storeName)
		changed = true
	}
	if cmd.Flags().Changed("work-start") {
		if _, err := time.Parse("15:04", f.workStart); err != nil {
			return false, fmt.Errorf("始業時刻の形式が正しくありません: %s", f.workStart)
		}
		settings.WorkStartTime = f.workStart
		changed = true
	}
	if cmd.Flags().Changed("work-end") {
		if _, err := time.Parse("15:04", f.workEnd); err != nil {
			return false, fmt.Errorf("終業時刻の形式が正しくありません: %s", f.workEnd)
		}
		settings.WorkEndTime = f.workEnd
		changed = true
	}
	if cmd.Flags().Changed("break-minutes") {
		if f.breakMinutes < 0 {
			return false, errors.New("休憩時間は0分以上で指定してください")
		}
		settings.BreakDurationMinutes = f.breakMinutes
		changed = true
	}
	if cmd.Flags().Changed("overtime-threshold") {
		if f.overtimeThreshold <= 0 || f.overtimeThreshold > 24 {
			return false, errors.New("残業基準時間は0より大きく24以下で指定してください")
		}
		settings.OvertimeThreshold = f.overtimeThreshold
		changed = true
	}
	if cmd.Flags().Changed("timezone") {
		if _, err := time.LoadLocation(f.timezone); err != nil {
			return false, fmt.Errorf("タイムゾーンが正しくありません: %s", f.timezone)
		}
		settings.Timezone = f.timezone
		changed = true
	}
	return changed, nil
}

func newSeedCommand(rt *app) *cobra.Command {
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "初期管理者アカウントと店舗設定を登録します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return rt.withStorage(ctx, func(storage *sqlite.Storage) error {
				created, err := ensureSeedAdmin(ctx, storage, rt.now(), rt.newID())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if created {
					fmt.Fprintf(out, "管理者アカウントを作成しました: %s\n", seedAdminEmail)
				} else {
					fmt.Fprintf(out, "管理者アカウントは既に存在します: %s\n", seedAdminEmail)
				}

				settings, err := storage.GetSettings(ctx)
				if err != nil {
					return fmt.Errorf("load settings: %w", err)
				}
				changed, err := flags.apply(cmd, &settings)
				if err != nil {
					return err
				}
				if !changed {
					return nil
				}
				settings.UpdatedAt = rt.now().UTC()
				if err := storage.SaveSettings(ctx, settings); err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
				fmt.Fprintf(out, "店舗設定を更新しました: %s\n", settings.StoreName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.storeName, "store-name", "", "店舗名")
	cmd.Flags().StringVar(&flags.workStart, "work-start", "", "始業時刻 (HH:MM)")
	cmd.Flags().StringVar(&flags.workEnd, "work-end", "", "終業時刻 (HH:MM)")
	cmd.Flags().IntVar(&flags.breakMinutes, "break-minutes", 60, "標準休憩時間 (分)")
	cmd.Flags().Float64Var(&flags.overtimeThreshold, "overtime-threshold", 8, "残業基準時間 (時間)")
	cmd.Flags().StringVar(&flags.timezone, "timezone", "", "タイムゾーン (例: Asia/Tokyo)")
	return cmd
}

func ensureSeedAdmin(ctx context.Context, repo persistence.UserRepository, now time.Time, id string) (bool, error) {
	if _, err := repo.GetUserByEmail(ctx, seedAdminEmail); err == nil {
		return false, nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	admin, err := seedAdmin(now.UTC(), id)
	if err != nil {
		return false, err
	}
	if err := repo.CreateUser(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func newUsersCommand(rt *app) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "ユーザーアカウントを管理します",
	}
	users.AddCommand(newUsersCreateCommand(rt), newUsersListCommand(rt))
	return users
}

func newUsersCreateCommand(rt *app) *cobra.Command {
	var input application.UserInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "ユーザーを作成します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return rt.withStorage(ctx, func(storage *sqlite.Storage) error {
				user, err := rt.userService(storage).CreateUser(ctx, application.CreateUserParams{
					Principal: cliPrincipal,
					Input:     input,
				})
				if err != nil {
					return describeServiceError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ユーザーが正常に作成されました: %s (%s, %s)\n", user.Email, user.EmployeeID, user.Role)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.Email, "email", "", "メールアドレス")
	flags.StringVar(&input.Name, "name", "", "氏名")
	flags.StringVar(&input.EmployeeID, "employee-id", "", "社員番号 (例: EMP001)")
	flags.StringVar(&input.Password, "password", "", "初期パスワード")
	flags.StringVar(&input.Department, "department", "", "部署")
	flags.StringVar(&input.Position, "position", "", "役職")
	flags.StringVar(&input.Role, "role", "EMPLOYEE", "権限 (EMPLOYEE, MANAGER, ADMIN)")
	return cmd
}

func newUsersListCommand(rt *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "ユーザー一覧を表示します",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return rt.withStorage(ctx, func(storage *sqlite.Storage) error {
				users, err := rt.userService(storage).ListUsers(ctx, cliPrincipal)
				if err != nil {
					return describeServiceError(err)
				}
				out := cmd.OutOrStdout()
				for _, user := range users {
					state := "有効"
					if !user.IsActive {
						state = "無効"
					}
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", user.EmployeeID, user.Name, user.Email, user.Role, state)
				}
				return nil
			})
		},
	}
}

// describeServiceError flattens validation errors into a single line for terminal output.
func describeServiceError(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) || len(vErr.FieldErrors) == 0 {
		return err
	}
	fields := make([]string, 0, len(vErr.FieldErrors))
	for field := range vErr.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, vErr.FieldErrors[field]))
	}
	return fmt.Errorf("入力内容に誤りがあります (%s)", strings.Join(parts, ", "))
}
