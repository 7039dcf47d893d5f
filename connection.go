package records

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Connection wraps one pooled driver connection. A connection acquired with
// close-with-result semantics transfers its closing responsibility to the
// collection it produces: Close becomes a no-op and the underlying handle is
// released when that collection's source is drained or closed.
type Connection struct {
	mu              sync.Mutex
	conn            *sql.Conn
	driverName      string
	open            bool
	closeWithResult bool
	tx              *Transaction
	source          *sqlSource
}

func newConnection(conn *sql.Conn, driverName string, closeWithResult bool) *Connection {
	return &Connection{
		conn:            conn,
		driverName:      driverName,
		open:            true,
		closeWithResult: closeWithResult,
	}
}

// Open reports whether the underlying handle is still held.
func (c *Connection) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// runner returns the execution target for the connection: the active
// transaction when one is open, the bare connection otherwise.
func (c *Connection) runner() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if c.tx != nil && c.tx.state == TxActive {
		return c.tx.tx
	}
	return c.conn
}

// Query binds named :key parameters into the statement, executes it, and
// wraps the result rows in a lazy collection. Statements that return no rows
// (DDL, DML) yield an immediately exhausted, empty collection.
func (c *Connection) Query(ctx context.Context, query string, params map[string]any) (*RecordCollection, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}

	bound, args, err := bindNamed(query, params, placeholdersFor(c.driverName))
	if err != nil {
		c.mu.Unlock()
		if c.closeWithResult {
			c.release()
		}
		return nil, err
	}

	rows, err := c.runner().QueryContext(ctx, bound, args...)
	c.mu.Unlock()
	if err != nil {
		if c.closeWithResult {
			c.release()
		}
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	var source *sqlSource
	done := func() {
		if c.closeWithResult {
			c.release()
			return
		}
		c.forget(source)
	}
	source, hasRows, err := newSQLSource(rows, done)
	if err != nil {
		return nil, err
	}
	if !hasRows {
		return newRealizedCollection(nil), nil
	}
	c.track(source)
	return NewRecordCollection(source), nil
}

// track records the source whose rows currently occupy the handle, so that
// release can interrupt it instead of blocking on sql.Conn.Close.
func (c *Connection) track(s *sqlSource) {
	c.mu.Lock()
	c.source = s
	c.mu.Unlock()
}

// forget clears the tracked source once it has finished on its own.
func (c *Connection) forget(s *sqlSource) {
	c.mu.Lock()
	if c.source == s {
		c.source = nil
	}
	c.mu.Unlock()
}

// Exec executes a statement that returns no rows and reports the number of
// affected rows.
func (c *Connection) Exec(ctx context.Context, query string, params map[string]any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, ErrConnectionClosed
	}

	bound, args, err := bindNamed(query, params, placeholdersFor(c.driverName))
	if err != nil {
		return 0, err
	}

	result, err := c.runner().ExecContext(ctx, bound, args...)
	if err != nil {
		return 0, fmt.Errorf("statement execution failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		// Some drivers cannot report a count; that is not a failure.
		return 0, nil
	}
	return affected, nil
}

// Begin starts a transaction on this connection. The connection must not be
// reused by another transaction until this one ends.
func (c *Connection) Begin(ctx context.Context) (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, ErrConnectionClosed
	}
	if c.tx != nil && c.tx.state == TxActive {
		return nil, ErrTransactionActive
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.tx = &Transaction{conn: c, tx: tx, state: TxActive}
	return c.tx, nil
}

// Close releases the underlying handle. For close-with-result connections it
// is a deliberate no-op; the handle is released when the produced collection
// is consumed. Closing an already-closed connection never errors.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closeWithResult && c.open {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	c.release()
	return nil
}

// release returns the handle to the pool exactly once. An outstanding row
// source is interrupted first: sql.Conn.Close blocks until its rows are gone,
// and abandoned pulls must fail with ErrConnectionClosed rather than hang.
// Secondary errors from a broken handle are swallowed so the caller's
// original error, if any, is not masked.
func (c *Connection) release() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.open = false
	source := c.source
	c.source = nil
	conn := c.conn
	c.mu.Unlock()

	if source != nil {
		source.interrupt()
	}
	_ = conn.Close()
}
