package db

import (
	"context"
	"database/sql/driver"
	"sync/atomic"
)

// limitedConnector hands out connections that retire themselves after
// maxUses statements. database/sql has no use-count policy of its own, so the
// retirement is signalled through driver.Validator and driver.SessionResetter.
type limitedConnector struct {
	driver.Connector
	maxUses int64
}

func newLimitedConnector(c driver.Connector, maxUses int64) *limitedConnector {
	return &limitedConnector{Connector: c, maxUses: maxUses}
}

func (c *limitedConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &limitedConn{Conn: conn, maxUses: c.maxUses}, nil
}

type limitedConn struct {
	driver.Conn
	maxUses int64
	uses    atomic.Int64
}

var (
	_ driver.ExecerContext      = (*limitedConn)(nil)
	_ driver.QueryerContext     = (*limitedConn)(nil)
	_ driver.ConnPrepareContext = (*limitedConn)(nil)
	_ driver.ConnBeginTx        = (*limitedConn)(nil)
	_ driver.Pinger             = (*limitedConn)(nil)
	_ driver.SessionResetter    = (*limitedConn)(nil)
	_ driver.Validator          = (*limitedConn)(nil)
	_ driver.NamedValueChecker  = (*limitedConn)(nil)
)

func (c *limitedConn) exhausted() bool {
	return c.maxUses > 0 && c.uses.Load() >= c.maxUses
}

func (c *limitedConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.uses.Add(1)
	return execer.ExecContext(ctx, query, args)
}

func (c *limitedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryer, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.uses.Add(1)
	return queryer.QueryContext(ctx, query, args)
}

func (c *limitedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	c.uses.Add(1)
	if preparer, ok := c.Conn.(driver.ConnPrepareContext); ok {
		return preparer.PrepareContext(ctx, query)
	}
	return c.Conn.Prepare(query)
}

func (c *limitedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginner, ok := c.Conn.(driver.ConnBeginTx); ok {
		return beginner.BeginTx(ctx, opts)
	}
	return c.Conn.Begin()
}

func (c *limitedConn) Ping(ctx context.Context) error {
	if pinger, ok := c.Conn.(driver.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (c *limitedConn) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := c.Conn.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

func (c *limitedConn) ResetSession(ctx context.Context) error {
	if c.exhausted() {
		return driver.ErrBadConn
	}
	if resetter, ok := c.Conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

func (c *limitedConn) IsValid() bool {
	if c.exhausted() {
		return false
	}
	if validator, ok := c.Conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

// Uses reports how many statements the connection has run.
func (c *limitedConn) Uses() int64 {
	return c.uses.Load()
}
