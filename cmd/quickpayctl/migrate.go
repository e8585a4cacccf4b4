package main

import (
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/repository"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the embedded Postgres migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *gorm.DB) error {
				return repository.Migrate(cmd.Context(), db)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *gorm.DB) error {
				return repository.MigrationStatus(cmd.Context(), db, cmd.OutOrStdout())
			})
		},
	})
	return cmd
}

func withDB(fn func(db *gorm.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := repository.NewDB(cfg)
	if err != nil {
		return err
	}
	defer repository.CloseDB(db)
	return fn(db)
}
