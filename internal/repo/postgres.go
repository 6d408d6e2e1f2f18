package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var (
	// ErrCredentialsRequired is returned for non-trusted targets without a user or password.
	ErrCredentialsRequired = errors.New("uid and pwd are required unless trusted auth is used")
	// ErrTargetIncomplete is returned when server or database is missing.
	ErrTargetIncomplete = errors.New("server and database are required")
)

// DefaultTable is the table defects are reconciled into.
const DefaultTable = "defects"

// Target describes where defects are loaded. Trusted uses integrated auth
// (peer/trust, PGUSER, ~/.pgpass) and sends no credentials.
type Target struct {
	Server         string // host or host:port
	Database       string
	Table          string
	Trusted        bool
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
}

// DSN renders the target as a postgres URL.
func (t Target) DSN() (string, error) {
	if strings.TrimSpace(t.Server) == "" || strings.TrimSpace(t.Database) == "" {
		return "", ErrTargetIncomplete
	}
	u := url.URL{Scheme: "postgres", Host: t.Server, Path: "/" + t.Database}
	if !t.Trusted {
		if t.User == "" || t.Password == "" {
			return "", ErrCredentialsRequired
		}
		u.User = url.UserPassword(t.User, t.Password)
	}
	q := url.Values{}
	if t.SSLMode != "" {
		q.Set("sslmode", t.SSLMode)
	}
	if t.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(t.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Conn is the slice of *pgx.Conn the loader needs; pgxmock satisfies it too.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Connect opens and pings a single connection. Nothing has been written
// when it fails.
func Connect(ctx context.Context, t Target, log zerolog.Logger) (*pgx.Conn, error) {
	dsn, err := t.DSN()
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s/%s: %w", t.Server, t.Database, err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("ping %s/%s: %w", t.Server, t.Database, err)
	}
	log.Info().Str("server", t.Server).Str("database", t.Database).Bool("trusted", t.Trusted).Msg("postgres connected")
	return conn, nil
}
