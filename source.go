package records

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
)

// RowSource produces records one at a time, in order, and signals exhaustion
// by returning ErrExhausted. Sources are forward-only and not reentrant; the
// collection serializes access to them.
type RowSource interface {
	// Next returns the next record, or ErrExhausted once the source is
	// drained. A fetch failure is latched: every later call reports the
	// same error, never exhaustion.
	Next() (*Record, error)

	// Close releases the resources behind the source. It is safe to call
	// more than once.
	Close() error
}

// sqlSource adapts *sql.Rows to a RowSource. done runs once when the source
// finishes on its own (drain, fetch failure, or explicit Close); the owning
// connection uses it to release or untrack itself. The mutex guards against
// the connection interrupting the source from another goroutine.
type sqlSource struct {
	mu     sync.Mutex
	rows   *sql.Rows
	keys   []string
	done   func()
	closed bool
	err    error
}

// newSQLSource wraps driver rows. The second return value reports whether the
// statement produced a result set at all: DDL and DML statements come back
// with no columns and yield an immediately exhausted collection.
func newSQLSource(rows *sql.Rows, done func()) (*sqlSource, bool, error) {
	keys, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		if done != nil {
			done()
		}
		return nil, false, fmt.Errorf("failed to read result columns: %w", err)
	}

	src := &sqlSource{rows: rows, keys: keys, done: done}
	if len(keys) == 0 {
		_ = src.Close()
		return src, false, nil
	}
	return src, true, nil
}

// Next implements RowSource.
func (s *sqlSource) Next() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.closed {
		return nil, ErrExhausted
	}

	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			// Latch the failure before closing so that concurrent and
			// later pulls never mistake it for clean exhaustion.
			s.err = wrapFetchError(err)
			_ = s.closeLocked()
			return nil, s.err
		}
		_ = s.closeLocked()
		return nil, ErrExhausted
	}

	values := make([]any, len(s.keys))
	pointers := make([]any, len(s.keys))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := s.rows.Scan(pointers...); err != nil {
		s.err = fmt.Errorf("failed to scan row: %w", err)
		_ = s.closeLocked()
		return nil, s.err
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}

	return NewRecord(s.keys, values)
}

// Close implements RowSource. Closing twice is a no-op, and the done callback
// runs exactly once.
func (s *sqlSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// closeLocked closes the rows and fires the done callback. Callers hold mu;
// the lock is dropped around the callback because it may reach back into the
// connection, which in turn may try to interrupt this source.
func (s *sqlSource) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.rows.Close()
	if done := s.done; done != nil {
		s.done = nil
		s.mu.Unlock()
		done()
		s.mu.Lock()
	}
	return err
}

// interrupt abandons the source because its connection is going away: the
// rows are closed so the handle can be released without blocking, and every
// later pull fails with ErrConnectionClosed. The done callback is skipped;
// the connection is already tearing itself down.
func (s *sqlSource) interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = ErrConnectionClosed
	s.done = nil
	_ = s.rows.Close()
}

// wrapFetchError maps driver-level connection teardown onto
// ErrConnectionClosed so that pulls from a cancelled collection fail
// deterministically instead of surfacing driver internals.
func wrapFetchError(err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return fmt.Errorf("failed to fetch row: %w", err)
}
