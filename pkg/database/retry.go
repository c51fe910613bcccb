package database

import (
	"context"
	"database/sql/driver"
	"math/rand"
	"strings"
	"time"
)

// SQLite hands back SQLITE_BUSY whenever a connection can't take the lock it
// needs. The shim below lives at the driver level so every statement the pool
// issues gets the same jittered-backoff retry, without any of the services
// knowing about it.

const (
	busyBaseDelay = 50 * time.Millisecond
	busyMaxDelay  = 2 * time.Second
)

// isBusyError reports whether err is SQLite lock contention. Matching on the
// message is deliberate: it covers both the cgo driver and the transpiled one
// that sqliteshim may select.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "(5)") || // SQLITE_BUSY result code
		strings.Contains(msg, "(6)") // SQLITE_LOCKED result code
}

// retryBusy runs fn up to 1+maxRetries times, backing off exponentially with
// jitter between attempts. Non-contention errors are returned immediately.
func retryBusy(ctx context.Context, maxRetries int, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !isBusyError(err) || attempt == maxRetries {
			return err
		}

		delay := busyBaseDelay * time.Duration(1<<attempt)
		delay += time.Duration(rand.Int63n(int64(delay / 4)))
		if delay > busyMaxDelay {
			delay = busyMaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// dsnConnector adapts a plain driver.Driver to driver.Connector for drivers
// that don't expose OpenConnector.
type dsnConnector struct {
	driver driver.Driver
	dsn    string
}

func newDSNConnector(drv driver.Driver, dsn string) *dsnConnector {
	return &dsnConnector{driver: drv, dsn: dsn}
}

func (dc *dsnConnector) Connect(_ context.Context) (driver.Conn, error) {
	return dc.driver.Open(dc.dsn)
}

func (dc *dsnConnector) Driver() driver.Driver {
	return dc.driver
}

// retryConnector wraps every connection it hands out in a retryConn.
type retryConnector struct {
	connector  driver.Connector
	maxRetries int
}

func newRetryConnector(connector driver.Connector, maxRetries int) *retryConnector {
	return &retryConnector{
		connector:  connector,
		maxRetries: maxRetries,
	}
}

func (rc *retryConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := rc.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &retryConn{conn: conn, maxRetries: rc.maxRetries}, nil
}

func (rc *retryConnector) Driver() driver.Driver {
	return rc.connector.Driver()
}

// retryConn implements driver.Conn plus the optional context interfaces,
// funneling statement execution through retryBusy.
type retryConn struct {
	conn       driver.Conn
	maxRetries int
}

func (c *retryConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &retryStmt{stmt: stmt, maxRetries: c.maxRetries}, nil
}

func (c *retryConn) Close() error {
	return c.conn.Close()
}

func (c *retryConn) Begin() (driver.Tx, error) {
	var tx driver.Tx
	err := retryBusy(context.Background(), c.maxRetries, func() error {
		var innerErr error
		tx, innerErr = c.conn.Begin() //nolint:staticcheck // deprecated but required for interface
		return innerErr
	})
	return tx, err
}

func (c *retryConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	connBeginTx, ok := c.conn.(driver.ConnBeginTx)
	if !ok {
		return c.Begin()
	}
	var tx driver.Tx
	err := retryBusy(ctx, c.maxRetries, func() error {
		var innerErr error
		tx, innerErr = connBeginTx.BeginTx(ctx, opts)
		return innerErr
	})
	return tx, err
}

func (c *retryConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	connPrepareContext, ok := c.conn.(driver.ConnPrepareContext)
	if !ok {
		return c.Prepare(query)
	}
	stmt, err := connPrepareContext.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &retryStmt{stmt: stmt, maxRetries: c.maxRetries}, nil
}

func (c *retryConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execerContext, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	var result driver.Result
	err := retryBusy(ctx, c.maxRetries, func() error {
		var innerErr error
		result, innerErr = execerContext.ExecContext(ctx, query, args)
		return innerErr
	})
	return result, err
}

func (c *retryConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	queryerContext, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	var rows driver.Rows
	err := retryBusy(ctx, c.maxRetries, func() error {
		var innerErr error
		rows, innerErr = queryerContext.QueryContext(ctx, query, args)
		return innerErr
	})
	return rows, err
}

func (c *retryConn) Ping(ctx context.Context) error {
	if pinger, ok := c.conn.(driver.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (c *retryConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

func (c *retryConn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

// retryStmt gives prepared statements the same treatment.
type retryStmt struct {
	stmt       driver.Stmt
	maxRetries int
}

func (s *retryStmt) Close() error {
	return s.stmt.Close()
}

func (s *retryStmt) NumInput() int {
	return s.stmt.NumInput()
}

func (s *retryStmt) Exec(args []driver.Value) (driver.Result, error) {
	var result driver.Result
	err := retryBusy(context.Background(), s.maxRetries, func() error {
		var innerErr error
		result, innerErr = s.stmt.Exec(args) //nolint:staticcheck // deprecated but required for interface
		return innerErr
	})
	return result, err
}

func (s *retryStmt) Query(args []driver.Value) (driver.Rows, error) {
	var rows driver.Rows
	err := retryBusy(context.Background(), s.maxRetries, func() error {
		var innerErr error
		rows, innerErr = s.stmt.Query(args) //nolint:staticcheck // deprecated but required for interface
		return innerErr
	})
	return rows, err
}

func (s *retryStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	stmtExecContext, ok := s.stmt.(driver.StmtExecContext)
	if !ok {
		return s.Exec(namedToValues(args))
	}
	var result driver.Result
	err := retryBusy(ctx, s.maxRetries, func() error {
		var innerErr error
		result, innerErr = stmtExecContext.ExecContext(ctx, args)
		return innerErr
	})
	return result, err
}

func (s *retryStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	stmtQueryContext, ok := s.stmt.(driver.StmtQueryContext)
	if !ok {
		return s.Query(namedToValues(args))
	}
	var rows driver.Rows
	err := retryBusy(ctx, s.maxRetries, func() error {
		var innerErr error
		rows, innerErr = stmtQueryContext.QueryContext(ctx, args)
		return innerErr
	})
	return rows, err
}

func namedToValues(args []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, arg := range args {
		values[i] = arg.Value
	}
	return values
}
