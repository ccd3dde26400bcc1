// Package main applies the embedded database migrations.
//
//	migrate up
//	migrate down
//	migrate steps -- -1
//	migrate force 1
//	migrate version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"procurement/internal/config"
	"procurement/internal/infrastructure/storage/postgres"
	"procurement/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the procurement database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logger.New(logger.Config{
			Level:       cfg.Log.Level,
			Development: cfg.App.IsDevelopment(),
			Service:     "migrate",
		})
		if err != nil {
			return err
		}
		logger.SetDefault(log)
		databaseURL = cfg.Database.URL
		return nil
	},
}

var databaseURL string

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *postgres.Migrator, _ []string) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m *postgres.Migrator, _ []string) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, or roll back when N is negative",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(ctx context.Context, m *postgres.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(ctx, n)
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(ctx context.Context, m *postgres.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(ctx, v)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ context.Context, m *postgres.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			}),
		},
	)
}

func withMigrator(fn func(ctx context.Context, m *postgres.Migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if databaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		m, err := postgres.NewMigrator(databaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return fn(cmd.Context(), m, args)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error(context.Background(), "migration command failed", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
