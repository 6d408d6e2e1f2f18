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

	"github.com/HamedShams/defect-pulse/internal/canonical"
	"github.com/HamedShams/defect-pulse/internal/config"
	"github.com/HamedShams/defect-pulse/internal/logger"
	"github.com/HamedShams/defect-pulse/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("normalize failed")
		stop()
		os.Exit(1)
	}
	stop()
}

func newRootCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:           "normalize",
		Short:         "Normalize a Jira export (JSON or CSV) into the canonical defect CSV",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), map[string]string{"log_level": "log-level"})
			if err != nil {
				return err
			}
			lg := logger.New(*cfg)
			svc := services.New(lg, afero.NewOsFs(), cmd.OutOrStdout(), nil)
			_, err = svc.Normalize(cmd.Context(), in, out)
			return err
		},
	}
	cmd.Flags().StringVarP(&in, "input", "i", "", "path to the Jira export; .csv is read as CSV, anything else as JSON")
	cmd.Flags().StringVarP(&out, "out", "o", canonical.DefaultOutput, "path of the canonical CSV to write")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
