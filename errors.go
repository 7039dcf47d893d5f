package records

import (
	"errors"
	"fmt"
)

// Error types for database and collection operations.
var (
	// ErrMissingURL is returned when no database URL is provided and none
	// can be resolved from the environment.
	ErrMissingURL = errors.New("records: no database url provided")

	// ErrDatabaseClosed is returned when an operation is attempted on a
	// closed Database.
	ErrDatabaseClosed = errors.New("records: database is closed")

	// ErrConnectionClosed is returned when an operation is attempted on a
	// closed Connection, or when a pending collection loses its connection.
	ErrConnectionClosed = errors.New("records: connection is closed")

	// ErrTransactionDone is returned when Commit or Rollback is called on a
	// transaction that has already finished.
	ErrTransactionDone = errors.New("records: transaction already finished")

	// ErrTransactionActive is returned when Begin is called on a connection
	// that already has an open transaction.
	ErrTransactionActive = errors.New("records: connection already has an open transaction")

	// ErrExhausted is returned by Next once a collection has no more rows.
	// It marks the end of a traversal and is not an operational failure.
	ErrExhausted = errors.New("records: collection contains no more rows")

	// ErrMultipleRows is returned by One when more than one row exists.
	ErrMultipleRows = errors.New("records: collection contained more than one row")

	// ErrFieldNotFound is returned when a record has no field with the
	// requested name.
	ErrFieldNotFound = errors.New("records: field not found")

	// ErrDuplicateField is returned when a name-based lookup matches more
	// than one column.
	ErrDuplicateField = errors.New("records: duplicate field name")

	// ErrIndexOutOfRange is returned for positional lookups past the end of
	// a record or collection.
	ErrIndexOutOfRange = errors.New("records: index out of range")

	// ErrBadParameter is returned when a query references a named parameter
	// that was not supplied.
	ErrBadParameter = errors.New("records: bad query parameter")
)

// FieldError describes a failed name-based field lookup.
type FieldError struct {
	Name  string
	Cause error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("record contains no unique %q field: %v", e.Name, e.Cause)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Cause
}

// IndexError describes a positional lookup past the available rows or fields.
type IndexError struct {
	Index  int
	Length int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for length %d", e.Index, e.Length)
}

// Is reports whether the error matches ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// ParameterError describes a named parameter the query referenced but the
// caller did not supply.
type ParameterError struct {
	Name string
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	return fmt.Sprintf("query references parameter %q but no value was bound", e.Name)
}

// Is reports whether the error matches ErrBadParameter.
func (e *ParameterError) Is(target error) bool {
	return target == ErrBadParameter
}
