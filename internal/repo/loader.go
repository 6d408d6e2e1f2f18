package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/HamedShams/defect-pulse/internal/domain"
)

// Result counts what an upsert run did.
type Result struct {
	Inserted int
	Updated  int
}

// Loader reconciles canonical defects into a table keyed by issue_key.
type Loader struct {
	table string
	log   zerolog.Logger
}

// NewLoader accepts "table" or "schema.table". The name is quoted as an
// identifier; it is the only thing interpolated into statement text.
func NewLoader(table string, log zerolog.Logger) (*Loader, error) {
	if table == "" {
		table = DefaultTable
	}
	parts := strings.Split(table, ".")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &Loader{
		table: pgx.Identifier(parts).Sanitize(),
		log:   log.With().Str("component", "loader").Str("table", table).Logger(),
	}, nil
}

// Upsert runs one lookup and one UPDATE or INSERT per defect, in order,
// inside a single transaction. Any failure rolls the whole batch back.
// Lookup-then-write is only safe because rows are processed sequentially.
func (l *Loader) Upsert(ctx context.Context, conn Conn, defects []domain.Defect) (Result, error) {
	var res Result
	tx, err := conn.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(ctx); err != nil {
			l.log.Error().Err(err).Msg("rollback failed")
		}
	}()

	for i, d := range defects {
		inserted, err := l.upsertOne(ctx, tx, d)
		if err != nil {
			return Result{}, fmt.Errorf("row %d (%s): %w", i+1, d.IssueKey, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	l.log.Info().Int("inserted", res.Inserted).Int("updated", res.Updated).Msg("defects reconciled")
	return res, nil
}

func (l *Loader) upsertOne(ctx context.Context, tx pgx.Tx, d domain.Defect) (bool, error) {
	if d.IssueKey == "" {
		return false, domain.ErrMissingIssueKey
	}
	exists, err := l.exists(ctx, tx, d.IssueKey)
	if err != nil {
		return false, err
	}
	var q string
	var args []any
	if exists {
		q, args, err = l.updateSQL(d)
	} else {
		q, args, err = l.insertSQL(d)
	}
	if err != nil {
		return false, fmt.Errorf("build statement: %w", err)
	}
	if _, err := tx.Exec(ctx, q, args...); err != nil {
		if exists {
			return false, fmt.Errorf("update: %w", err)
		}
		return false, fmt.Errorf("insert: %w", err)
	}
	l.log.Debug().Str("issue_key", d.IssueKey).Bool("updated", exists).Msg("defect written")
	return !exists, nil
}

func (l *Loader) exists(ctx context.Context, tx pgx.Tx, key string) (bool, error) {
	q, args, err := squirrel.Select("defect_id").
		From(l.table).
		Where(squirrel.Eq{domain.ColIssueKey: key}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build lookup: %w", err)
	}
	// defect_id is owned by the table; only its presence matters.
	var id any
	if err := pgxscan.Get(ctx, tx, &id, q, args...); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lookup: %w", err)
	}
	return true, nil
}

// fieldValues are the non-key columns in statement order.
func fieldValues(d domain.Defect) []any {
	return []any{
		d.Summary, d.Status, d.Created, d.Resolved, d.TimeToResolveDays,
		d.Priority, d.PriorityScore, d.Reporter, d.Assignee, d.IssueType,
		d.Components, d.Labels, d.OpenFlag(),
	}
}

var fieldColumns = []string{
	domain.ColSummary, domain.ColStatus, domain.ColCreated, domain.ColResolved,
	domain.ColTimeToResolveDays, domain.ColPriority, domain.ColPriorityScore,
	domain.ColReporter, domain.ColAssignee, domain.ColIssueType,
	domain.ColComponents, domain.ColLabels, domain.ColIsOpen,
}

func (l *Loader) updateSQL(d domain.Defect) (string, []any, error) {
	b := squirrel.Update(l.table).PlaceholderFormat(squirrel.Dollar)
	for i, v := range fieldValues(d) {
		b = b.Set(fieldColumns[i], v)
	}
	return b.Where(squirrel.Eq{domain.ColIssueKey: d.IssueKey}).ToSql()
}

func (l *Loader) insertSQL(d domain.Defect) (string, []any, error) {
	cols := append([]string{domain.ColIssueKey}, fieldColumns...)
	vals := append([]any{d.IssueKey}, fieldValues(d)...)
	return squirrel.Insert(l.table).
		Columns(cols...).
		Values(vals...).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}
