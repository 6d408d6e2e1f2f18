/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HamedShams/defect-pulse/internal/canonical"
	"github.com/HamedShams/defect-pulse/internal/normalizer"
	"github.com/HamedShams/defect-pulse/internal/repo"
)

type Exporter interface {
	ExportIssues(ctx context.Context, fs afero.Fs, jql, path string) (int, error)
}

type connectFunc func(ctx context.Context, t repo.Target, log zerolog.Logger) (repo.Conn, error)

func connectPostgres(ctx context.Context, t repo.Target, log zerolog.Logger) (repo.Conn, error) {
	conn, err := repo.Connect(ctx, t, log)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Service ties the pipeline stages to files and the database. Completion
// messages go to stdout; everything else is logged.
type Service struct {
	log     zerolog.Logger
	fs      afero.Fs
	stdout  io.Writer
	jira    Exporter
	connect connectFunc
}

func New(log zerolog.Logger, fs afero.Fs, stdout io.Writer, jira Exporter) *Service {
	return &Service{log: log, fs: fs, stdout: stdout, jira: jira, connect: connectPostgres}
}

// Normalize reads a raw Jira export (JSON, or CSV by extension) and writes
// the canonical defect CSV to out.
func (s *Service) Normalize(ctx context.Context, in, out string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if out == "" {
		out = canonical.DefaultOutput
	}
	tbl, err := normalizer.Load(s.fs, in)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("input", in).Int("rows", tbl.Len()).Strs("columns", tbl.Columns()).Msg("export loaded")

	defects := normalizer.New(s.log).Normalize(tbl)
	if err := canonical.WriteFile(s.fs, out, defects); err != nil {
		return 0, err
	}
	fmt.Fprintf(s.stdout, "Clean defects exported to %s\n", out)
	return len(defects), nil
}

// Load reconciles every row of a canonical CSV into the target table in one
// transaction. The CSV is read before connecting so bad input never opens a
// connection.
func (s *Service) Load(ctx context.Context, csvPath string, t repo.Target) (repo.Result, error) {
	defects, err := canonical.ReadFile(s.fs, csvPath)
	if err != nil {
		return repo.Result{}, err
	}
	if t.Table == "" {
		t.Table = repo.DefaultTable
	}
	loader, err := repo.NewLoader(t.Table, s.log)
	if err != nil {
		return repo.Result{}, err
	}

	conn, err := s.connect(ctx, t, s.log)
	if err != nil {
		return repo.Result{}, err
	}
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("close connection")
		}
	}()

	res, err := loader.Upsert(ctx, conn, defects)
	if err != nil {
		return repo.Result{}, err
	}
	fmt.Fprintln(s.stdout, "Upsert complete.")
	return res, nil
}

// Fetch pulls every issue matching jql into a JSON export at out.
func (s *Service) Fetch(ctx context.Context, jql, out string) (int, error) {
	if s.jira == nil {
		return 0, fmt.Errorf("jira client not configured")
	}
	n, err := s.jira.ExportIssues(ctx, s.fs, jql, out)
	if err != nil {
		return 0, fmt.Errorf("jira export: %w", err)
	}
	fmt.Fprintf(s.stdout, "Jira export written to %s (%d issues)\n", out, n)
	return n, nil
}

// Load is the library entry point for reconciling a canonical CSV on disk.
func Load(ctx context.Context, fs afero.Fs, csvPath string, t repo.Target) error {
	_, err := New(log.Logger, fs, os.Stdout, nil).Load(ctx, csvPath, t)
	return err
}
