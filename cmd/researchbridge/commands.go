package main

import (
	"fmt"

	"github.com/d9705996/researchbridge/internal/audit"
	"github.com/d9705996/researchbridge/internal/config"
	"github.com/d9705996/researchbridge/internal/seed"
	"github.com/d9705996/researchbridge/internal/store"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Long:  "Applies embedded SQL migrations (postgres) or AutoMigrate (sqlite).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			_, closeFn, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			cliLogger(cfg).Info("migrations applied", "driver", cfg.DB.Driver)
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap admin account if none exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if email == "" {
				email = cfg.App.SeedAdminEmail
			}
			if password == "" {
				password = cfg.App.SeedAdminPassword
			}
			st, closeFn, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = seed.EnsureAdmin(cmd.Context(), st, seed.AdminOptions{
				Email:    email,
				Password: password,
				Out:      out(cmd),
			}, cliLogger(cfg))
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email (default SEED_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default SEED_ADMIN_PASSWORD, else generated)")
	return cmd
}

func auditCmd() *cobra.Command {
	var f store.AuditFilter
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the most recent audit events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			st, closeFn, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			events, err := st.Audit.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			audit.WriteTable(out(cmd), events)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.EntityType, "entity-type", "", "filter by entity type (user, project, ...)")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "filter by entity id")
	cmd.Flags().StringVar(&f.ActorID, "actor-id", "", "filter by actor id")
	cmd.Flags().IntVar(&f.Limit, "limit", 20, "maximum number of events")
	return cmd
}
