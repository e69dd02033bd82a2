package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/healthline/healthline/internal/config"
	"github.com/healthline/healthline/internal/domain/account"
	"github.com/healthline/healthline/internal/domain/medication"
	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/db"
	"github.com/healthline/healthline/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthline-server",
		Short: "Healthline assistant API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationSource reads from dir when given, otherwise from the files
// embedded in the binary.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationSource(dir))
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default: embedded)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationSource(dir))
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default: embedded)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records to spreadsheets",
	}

	medsCmd := &cobra.Command{
		Use:   "medications",
		Short: "Write medication schedules to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			patientID, _ := cmd.Flags().GetInt64("patient-id")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := exportMedications(ctx, store, out, patientID)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d schedule(s) to %s\n", n, out)
			return nil
		},
	}
	medsCmd.Flags().String("out", "medication_schedules.xlsx", "Output file")
	medsCmd.Flags().Int64("patient-id", 0, "Only export schedules of this patient")
	cmd.AddCommand(medsCmd)

	return cmd
}

func exportMedications(ctx context.Context, store *backend, out string, patientID int64) (int, error) {
	var (
		schedules []*medication.Schedule
		err       error
	)
	if patientID > 0 {
		schedules, err = store.medications.ListByPatient(ctx, patientID)
	} else {
		schedules, err = store.medications.List(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("list medication schedules: %w", err)
	}

	patients, err := store.patients.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list patients: %w", err)
	}
	names := make(map[int64]string, len(patients))
	for _, p := range patients {
		names[p.ID] = p.FullName
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", out, err)
	}
	if err := medication.WriteWorkbook(f, schedules, names); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", out, err)
	}
	return len(schedules), nil
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")

			username = strings.TrimSpace(username)
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			role = strings.ToLower(strings.TrimSpace(role))
			switch role {
			case auth.RoleAdmin, auth.RoleDoctor, auth.RolePatient, auth.RoleCarer, auth.RoleGuest:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			accounts := account.NewService(store.accountRepos(), store.tx, nil, cfg.BcryptCost)
			created, err := accounts.CreateUser(ctx, account.NewUser{
				Username: username,
				Password: password,
				Role:     role,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Printf("Created user %s (id %d, role %s)\n", created.User.Username, created.User.ID, created.User.Role)
			if password == "" {
				fmt.Printf("Generated password: %s\n", created.Password)
			}
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Password (generated when empty)")
	createCmd.Flags().String("role", auth.RoleAdmin, "admin, doctor, patient, carer or guest")
	cmd.AddCommand(createCmd)

	return cmd
}
