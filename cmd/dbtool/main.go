package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"route-dispatch-service/internal/adapters/repositories"
	"route-dispatch-service/internal/api/dto"
	"route-dispatch-service/internal/app"
	"route-dispatch-service/internal/config"
	"route-dispatch-service/internal/platform/db"
	"route-dispatch-service/internal/platform/logger"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dbtool",
		Short:        "Schema, seed and one-off dispatch runs for route-dispatch-service",
		SilenceUsage: true,
	}
	root.AddCommand(newInitCmd(), newSeedCmd(), newRunOnceCmd())
	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, conn *sql.DB, log zerolog.Logger) error {
				log.Info().Msg("Initializing database schema...")
				if err := repositories.InitSchema(ctx, conn); err != nil {
					return fmt.Errorf("schema initialization failed: %w", err)
				}
				log.Info().Msg("Schema ready.")
				return nil
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	var path, date string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Initialize the schema and upsert tenants, teams and jobs from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, conn *sql.DB, log zerolog.Logger) error {
				if err := repositories.InitSchema(ctx, conn); err != nil {
					return fmt.Errorf("schema initialization failed: %w", err)
				}
				log.Info().Str("path", path).Str("date", date).Msg("Seeding database...")
				if err := repositories.SeedFromJSON(ctx, conn, path, date); err != nil {
					return fmt.Errorf("seeding failed: %w", err)
				}
				log.Info().Msg("Seeding complete.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", config.Get("SEED_PATH", "data/seeds/demo.json"), "seed file")
	cmd.Flags().StringVar(&date, "date", "", "reschedule every seeded job on this YYYY-MM-DD date")
	return cmd
}

func newRunOnceCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run one dispatch tick and print the report as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().UTC()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				now = parsed.UTC()
			}

			return withDB(cmd.Context(), func(ctx context.Context, conn *sql.DB, log zerolog.Logger) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				a, err := app.Build(ctx, cfg, conn, log)
				if err != nil {
					return err
				}
				defer a.Close()

				report, err := a.Runner.Run(ctx, now)
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dto.NewDispatchReportResponse(report))
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "treat this RFC3339 instant as now")
	return cmd
}

func withDB(ctx context.Context, fn func(context.Context, *sql.DB, zerolog.Logger) error) error {
	log := logger.New("dbtool", config.Get("APP_ENV", "dev"), config.Get("LOG_LEVEL", "info"))
	ctx = log.WithContext(ctx)

	databaseURL := config.Get("DATABASE_URL", "")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(ctx, conn, log)
}
