package valhalla

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"valhalla/internal/metrics"
	"valhalla/pkg/config"
	"valhalla/pkg/db"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const (
	acquireTimeout   = 10 * time.Second
	statementTimeout = 5 * time.Second
	overallTimeout   = 30 * time.Second
)

type timeouts struct {
	acquire   time.Duration
	statement time.Duration
	overall   time.Duration
}

func defaultTimeouts() timeouts {
	return timeouts{
		acquire:   acquireTimeout,
		statement: statementTimeout,
		overall:   overallTimeout,
	}
}

// Client is the pooled query client of the analytics store. It is safe for
// concurrent use and must not be used after Close.
type Client struct {
	db       *sqlx.DB
	options  *db.Options
	timeouts timeouts

	closed   atomic.Bool
	acquired atomic.Int64
	released atomic.Int64
}

type Stats struct {
	Acquired int64
	Released int64
}

// New validates cfg and builds the connection pool. It fails with a
// *db.ConfigError when a required setting is missing or malformed.
func New(cfg *config.Config) (*Client, error) {
	opts, err := db.NewOptions(cfg.AuroraCreds, cfg.AuroraHost, cfg.AuroraPort, cfg.AuroraDatabase, cfg.Environment)
	if err != nil {
		return nil, err
	}

	database, err := db.NewPostgresDB(opts)
	if err != nil {
		return nil, err
	}

	c := newClient(database, defaultTimeouts())
	c.options = opts
	return c, nil
}

func newClient(database *sqlx.DB, t timeouts) *Client {
	return &Client{db: database, timeouts: t}
}

// Options returns the resolved connection configuration, or nil for clients
// built around an existing handle.
func (c *Client) Options() *db.Options {
	return c.options
}

// DB exposes the underlying pool for schema management and metrics.
func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Stats() Stats {
	return Stats{Acquired: c.acquired.Load(), Released: c.released.Load()}
}

// Close drains and terminates the pool.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	logrus.Info("Closing valhalla pool")
	return c.db.Close()
}

// Query runs a caller supplied statement with positional parameters.
func (c *Client) Query(ctx context.Context, query string, values ...Value) (*Outcome, error) {
	return c.exec(ctx, statement{op: "query", sql: query, args: values, returnsRows: true})
}

// Now is a liveness probe of the store.
func (c *Client) Now(ctx context.Context) (*Outcome, error) {
	return c.exec(ctx, statement{op: "now", sql: "SELECT NOW() AS now", returnsRows: true})
}

type statement struct {
	op          string
	sql         string
	args        []Value
	returnsRows bool
}

func (c *Client) exec(ctx context.Context, st statement) (*Outcome, error) {
	return run(ctx, c, st.op, st.sql, func(ctx context.Context, conn *sqlx.Conn) (*Outcome, error) {
		if !st.returnsRows {
			res, err := conn.ExecContext(ctx, st.sql, args(st.args)...)
			if err != nil {
				return nil, fmt.Errorf("%s failed: %w", st.op, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return nil, fmt.Errorf("%s failed: %w", st.op, err)
			}
			return &Outcome{RowsAffected: n}, nil
		}

		rows, err := conn.QueryxContext(ctx, st.sql, args(st.args)...)
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", st.op, err)
		}
		defer rows.Close()

		out := &Outcome{}
		for rows.Next() {
			row := map[string]any{}
			if err := rows.MapScan(row); err != nil {
				return nil, fmt.Errorf("%s failed: %w", st.op, err)
			}
			out.Rows = append(out.Rows, row)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%s failed: %w", st.op, err)
		}
		out.RowsAffected = int64(len(out.Rows))
		return out, nil
	})
}

// run is the single bounded path every operation takes: the overall race
// wraps scoped acquisition, which wraps the statement race.
func run[T any](ctx context.Context, c *Client, op, query string, fn func(context.Context, *sqlx.Conn) (T, error)) (T, error) {
	start := time.Now()

	var (
		out T
		err error
	)
	if c.closed.Load() {
		err = ErrClosed
	} else {
		out, err = Race(ctx, c.timeouts.overall, ErrOverallTimeout, func(ctx context.Context) (T, error) {
			return withConnection(ctx, c, fn)
		})
	}

	outcome := OutcomeOf(err)
	metrics.QueriesTotal.WithLabelValues(op, outcome).Inc()
	metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil && !errors.Is(err, ErrNotFound) {
		logrus.WithFields(logrus.Fields{
			"operation": op,
			"outcome":   outcome,
			"query":     compact(query),
		}).WithError(err).Error("Error in query")
	}
	return out, err
}

// withConnection leases one connection for fn and returns it to the pool
// exactly once, whether fn succeeds, fails, panics or outlives its deadline.
func withConnection[T any](ctx context.Context, c *Client, fn func(context.Context, *sqlx.Conn) (T, error)) (T, error) {
	var zero T

	acquireCtx, cancel := context.WithTimeout(ctx, c.timeouts.acquire)
	conn, err := c.db.Connx(acquireCtx)
	cancel()
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return zero, &TimeoutError{Label: ErrPoolTimeout, After: c.timeouts.acquire}
		}
		if c.closed.Load() {
			return zero, ErrClosed
		}
		return zero, fmt.Errorf("%w: %v", ErrPoolTimeout, err)
	}
	c.acquired.Add(1)
	metrics.ConnectionsAcquiredTotal.Inc()

	return Race(ctx, c.timeouts.statement, ErrQueryTimeout, func(ctx context.Context) (T, error) {
		defer c.release(conn)
		return fn(ctx, conn)
	})
}

func (c *Client) release(conn *sqlx.Conn) {
	if err := conn.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to release connection")
	}
	c.released.Add(1)
	metrics.ConnectionsReleasedTotal.Inc()
}

func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
