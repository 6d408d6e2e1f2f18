/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/HamedShams/defect-pulse/internal/config"
	"github.com/HamedShams/defect-pulse/internal/logger"
	"github.com/HamedShams/defect-pulse/internal/repo"
	"github.com/HamedShams/defect-pulse/internal/services"
)

// flagKeys binds the connection flags over DB_* settings.
var flagKeys = map[string]string{
	"log_level":         "log-level",
	"postgres.server":   "server",
	"postgres.database": "database",
	"postgres.table":    "table",
	"postgres.trusted":  "trusted",
	"postgres.user":     "uid",
	"postgres.password": "pwd",
	"postgres.sslmode":  "sslmode",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("load failed")
		stop()
		os.Exit(1)
	}
	stop()
}

func newRootCmd() *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:           "load",
		Short:         "Upsert a canonical defect CSV into a Postgres table keyed by issue_key",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc := services.New(logger.New(*cfg), afero.NewOsFs(), cmd.OutOrStdout(), nil)
			_, err = svc.Load(cmd.Context(), csvPath, target(cfg.Postgres))
			return err
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the canonical defect CSV")
	_ = cmd.MarkFlagRequired("csv")

	pf := cmd.PersistentFlags()
	pf.String("server", "", "database host[:port] (DB_SERVER)")
	pf.String("database", "", "database name (DB_NAME)")
	pf.String("table", repo.DefaultTable, "target table, optionally schema-qualified (DB_TABLE)")
	pf.Bool("trusted", false, "use integrated auth and send no credentials (DB_TRUSTED)")
	pf.String("uid", "", "database user (DB_USER)")
	pf.String("pwd", "", "database password (DB_PASSWORD)")
	pf.String("sslmode", "disable", "postgres sslmode (DB_SSLMODE)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the defects schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return repo.Migrate(cmd.Context(), target(cfg.Postgres), logger.New(*cfg))
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), flagKeys)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidatePostgres(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func target(p config.PostgresConfig) repo.Target {
	return repo.Target{
		Server:         p.Server,
		Database:       p.Database,
		Table:          p.Table,
		Trusted:        p.Trusted,
		User:           p.User,
		Password:       p.Password,
		SSLMode:        p.SSLMode,
		ConnectTimeout: p.ConnectTimeout,
	}
}
