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

	"github.com/HamedShams/defect-pulse/internal/adapters/jira"
	"github.com/HamedShams/defect-pulse/internal/config"
	"github.com/HamedShams/defect-pulse/internal/logger"
	"github.com/HamedShams/defect-pulse/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("fetch failed")
		stop()
		os.Exit(1)
	}
	stop()
}

func newRootCmd() *cobra.Command {
	var jql, out string
	cmd := &cobra.Command{
		Use:           "fetch",
		Short:         "Export Jira issues matching a JQL query to a JSON file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), map[string]string{
				"log_level":        "log-level",
				"jira.base_url":    "base-url",
				"jira.api_version": "api-version",
				"jira.page_size":   "page-size",
			})
			if err != nil {
				return err
			}
			if err := cfg.ValidateJira(); err != nil {
				return err
			}
			lg := logger.New(*cfg)
			svc := services.New(lg, afero.NewOsFs(), cmd.OutOrStdout(), jira.NewClient(*cfg, lg))
			_, err = svc.Fetch(cmd.Context(), jql, out)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&jql, "jql", "", "JQL selecting the defects to export")
	f.StringVarP(&out, "out", "o", jira.DefaultExport, "path of the JSON export to write")
	f.String("base-url", "", "Jira base URL (JIRA_BASE_URL)")
	f.String("api-version", "2", "Jira REST API version, 2 or 3 (JIRA_API_VERSION)")
	f.Int("page-size", 50, "issues per search page (JIRA_PAGE_SIZE)")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("jql")
	return cmd
}
