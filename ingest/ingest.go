// Package ingest pulls matched-trade ticks out of the quote database.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rustyeddy/daytrader/market"
)

// EnvDSN names the environment variable holding the Postgres DSN.
const EnvDSN = "DATABASE_URL"

var ErrNoDSN = errors.New("ingest: " + EnvDSN + " is not set")

// DSNFromEnv loads the named env files (./.env when none, and only if it
// exists) and returns DATABASE_URL. Variables already set win.
func DSNFromEnv(files ...string) (string, error) {
	err := godotenv.Load(files...)
	if err != nil && (len(files) > 0 || !errors.Is(err, os.ErrNotExist)) {
		return "", fmt.Errorf("load env: %w", err)
	}
	dsn := strings.TrimSpace(os.Getenv(EnvDSN))
	if dsn == "" {
		return "", ErrNoDSN
	}
	return dsn, nil
}

// NewPool opens a small connection pool and pings it.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Querier is the part of pgxpool.Pool (or pgx.Conn) the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (*pgx.Conn)(nil)
)

// Query selects ticks whose symbol starts with SymbolPrefix and whose
// time is at or after Since. A zero Since means no lower bound.
type Query struct {
	SymbolPrefix string
	Since        time.Time
}

const tickSQL = `SELECT m.datetime, m.tickersymbol, m.price
FROM "quote"."matched" m
WHERE m.tickersymbol LIKE $1 AND m.datetime >= $2
ORDER BY m.datetime, m.tickersymbol`

// SQL returns the statement and its arguments.
func (q Query) SQL() (string, []any) {
	since := q.Since
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}
	return tickSQL, []any{likePrefix(q.SymbolPrefix), since}
}

// likePrefix escapes LIKE metacharacters so the prefix matches literally.
func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}

type TickSource struct {
	DB  Querier
	Log zerolog.Logger
}

// FetchTicks reads every matching tick in time order.
func (s *TickSource) FetchTicks(ctx context.Context, q Query) ([]market.Tick, error) {
	sql, args := q.SQL()
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var out []market.Tick
	for rows.Next() {
		var t market.Tick
		if err := rows.Scan(&t.Time, &t.Symbol, &t.Price); err != nil {
			return nil, fmt.Errorf("scan tick %d: %w", len(out)+1, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ticks: %w", err)
	}

	s.Log.Info().
		Str("prefix", q.SymbolPrefix).
		Time("since", q.Since).
		Int("ticks", len(out)).
		Msg("fetched ticks")
	return out, nil
}
