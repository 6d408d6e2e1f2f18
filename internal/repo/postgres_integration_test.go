//go:build integration

package repo_test

import (
	"context"
	"database/sql"
	"net"
	"testing"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/HamedShams/defect-pulse/internal/canonical"
	"github.com/HamedShams/defect-pulse/internal/domain"
	"github.com/HamedShams/defect-pulse/internal/normalizer"
	"github.com/HamedShams/defect-pulse/internal/repo"
)

const export = `{"issues":[
 {"key":"AB-1","fields":{"summary":"bug","status":{"name":"Done"},"created":"2024-01-01T00:00:00.000+0000","resolutiondate":"2024-01-03T00:00:00.000+0000","priority":{"name":"High"}}},
 {"key":"AB-2","fields":{"summary":"crash","status":{"name":"Open"},"created":"2024-02-01T09:30:00.000+0000","priority":{"name":"Highest"},"components":[{"name":"api"},{"name":"web"}]}}
]}`

type row struct {
	IssueKey          string     `db:"issue_key"`
	Status            *string    `db:"status"`
	Resolved          *time.Time `db:"resolved"`
	TimeToResolveDays *float64   `db:"time_to_resolve_days"`
	PriorityScore     int        `db:"priority_score"`
	Components        *string    `db:"components"`
	IsOpen            int16      `db:"is_open"`
}

func TestNormalizeAndLoadIntegration(t *testing.T) {
	ctx := context.Background()
	log := zerolog.New(zerolog.NewTestWriter(t))
	target := setupPostgres(t)

	require.NoError(t, repo.Migrate(ctx, target, log))
	// a second run is a no-op
	require.NoError(t, repo.Migrate(ctx, target, log))

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "export.json", []byte(export), 0o644))
	tbl, err := normalizer.Load(mem, "export.json")
	require.NoError(t, err)
	require.NoError(t, canonical.WriteFile(mem, "clean.csv", normalizer.New(log).Normalize(tbl)))
	defects, err := canonical.ReadFile(mem, "clean.csv")
	require.NoError(t, err)

	loader, err := repo.NewLoader(target.Table, log)
	require.NoError(t, err)
	conn, err := repo.Connect(ctx, target, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(ctx) })

	res, err := loader.Upsert(ctx, conn, defects)
	require.NoError(t, err)
	require.Equal(t, repo.Result{Inserted: 2}, res)

	var rows []row
	require.NoError(t, pgxscan.Select(ctx, conn, &rows,
		`SELECT issue_key, status, resolved, time_to_resolve_days, priority_score, components, is_open FROM defects ORDER BY issue_key`))
	require.Len(t, rows, 2)
	require.Equal(t, "AB-1", rows[0].IssueKey)
	require.Equal(t, int16(0), rows[0].IsOpen)
	require.Equal(t, 2.0, *rows[0].TimeToResolveDays)
	require.Equal(t, 4, rows[0].PriorityScore)
	require.Equal(t, "AB-2", rows[1].IssueKey)
	require.Equal(t, int16(1), rows[1].IsOpen)
	require.Nil(t, rows[1].Resolved)
	require.Equal(t, 5, rows[1].PriorityScore)
	require.Equal(t, "api,web", *rows[1].Components)

	// reloading the same file updates in place
	res, err = loader.Upsert(ctx, conn, defects)
	require.NoError(t, err)
	require.Equal(t, repo.Result{Updated: 2}, res)

	var count int
	require.NoError(t, pgxscan.Get(ctx, conn, &count, `SELECT count(*) FROM defects`))
	require.Equal(t, 2, count)

	// a bad row rolls back the rows before it
	fresh := defects[0]
	fresh.IssueKey = "AB-3"
	_, err = loader.Upsert(ctx, conn, []domain.Defect{fresh, {}})
	require.Error(t, err)
	require.NoError(t, pgxscan.Get(ctx, conn, &count, `SELECT count(*) FROM defects`))
	require.Equal(t, 2, count)
}

func setupPostgres(t *testing.T) repo.Target {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=defects",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	target := repo.Target{
		Server:         net.JoinHostPort("localhost", resource.GetPort("5432/tcp")),
		Database:       "defects",
		Table:          repo.DefaultTable,
		User:           "postgres",
		Password:       "postgres",
		SSLMode:        "disable",
		ConnectTimeout: 5 * time.Second,
	}
	dsn, err := target.DSN()
	require.NoError(t, err)

	require.NoError(t, pool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return db.Ping()
	}))
	return target
}
