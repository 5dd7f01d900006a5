// ResearchBridge: matches nonprofits with volunteer researchers.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/d9705996/researchbridge/internal/config"
	"github.com/d9705996/researchbridge/internal/db"
	"github.com/d9705996/researchbridge/internal/observability"
	"github.com/d9705996/researchbridge/internal/service"
	"github.com/d9705996/researchbridge/internal/store"
	"github.com/d9705996/researchbridge/internal/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "researchbridge",
		Short:         "Nonprofit and researcher collaboration backend",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside local development.
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	root.AddCommand(serveCmd(), migrateCmd(), seedAdminCmd(), auditCmd())
	return root
}

// cliLogger is the logger for one-shot commands; serve builds its own through
// observability.New.
func cliLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

// openStore opens the database, runs migrations and returns the store with a
// close function.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, func(), error) {
	gormDB, pool, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	closeFn := func() {
		if pool != nil {
			pool.Close()
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return store.New(gormDB), closeFn, nil
}

func serviceOptions(cfg *config.Config) service.Options {
	return service.Options{
		JWTSecret:        cfg.JWT.Secret,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		ApprovalRequired: cfg.Accounts.ApprovalRequired,
	}
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
