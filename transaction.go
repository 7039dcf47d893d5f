package records

import (
	"database/sql"
	"fmt"
)

// TxState is the lifecycle state of a transaction.
type TxState int

const (
	// TxActive means neither Commit nor Rollback has run yet.
	TxActive TxState = iota
	// TxCommitted is terminal: Commit succeeded or failed.
	TxCommitted
	// TxRolledBack is terminal: Rollback ran.
	TxRolledBack
)

// Transaction wraps a driver transaction bound to one Connection. Exactly one
// of Commit or Rollback runs per transaction; both are only valid while the
// transaction is active.
type Transaction struct {
	conn  *Connection
	tx    *sql.Tx
	state TxState
}

// State returns the current lifecycle state.
func (t *Transaction) State() TxState {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	return t.state
}

// Commit makes the transaction's changes permanent.
func (t *Transaction) Commit() error {
	if err := t.end(TxCommitted); err != nil {
		return err
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the transaction's changes.
func (t *Transaction) Rollback() error {
	if err := t.end(TxRolledBack); err != nil {
		return err
	}
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// end moves the transaction into its terminal state and interrupts any row
// source still open on the connection. sql.Tx.Commit and Rollback block until
// outstanding rows are closed, and a collection that outlives its transaction
// scope must fail with ErrConnectionClosed rather than keep pulling.
func (t *Transaction) end(next TxState) error {
	t.conn.mu.Lock()
	if t.state != TxActive {
		t.conn.mu.Unlock()
		return ErrTransactionDone
	}
	t.state = next
	t.conn.tx = nil
	source := t.conn.source
	t.conn.source = nil
	t.conn.mu.Unlock()

	if source != nil {
		source.interrupt()
	}
	return nil
}
