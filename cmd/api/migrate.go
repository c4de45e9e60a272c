package main

import (
	"context"
	"fmt"

	pgStorage "retail-bank/internal/adapter/storage/postgres"
	"retail-bank/migrations"

	"github.com/spf13/cobra"
)

func migrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.AddCommand(migrateDirectionCommand(a, "up", migrations.Up))
	cmd.AddCommand(migrateDirectionCommand(a, "down", migrations.Down))
	return cmd
}

func migrateDirectionCommand(a *app, use string, dir migrations.Direction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Run migrations %s", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pgStorage.NewPool(context.Background(), a.cfg.Database, a.log)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			n, err := migrations.RunOnPool(pool, dir)
			if err != nil {
				return err
			}
			a.log.Info().Str("direction", use).Int("applied", n).Msg("Migrations complete")
			return nil
		},
	}
}
