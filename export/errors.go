package export

import (
	"errors"
	"fmt"
)

// Error types for export operations.
var (
	// ErrUnsupportedFormat is returned for format names this package does
	// not recognize at all.
	ErrUnsupportedFormat = errors.New("export: unsupported format")

	// ErrMissingDependency is returned for known formats whose serializer
	// is not available in this build.
	ErrMissingDependency = errors.New("export: format requires a missing optional dependency")
)

// FormatError describes a format the caller requested but could not be served.
type FormatError struct {
	Format string
	Cause  error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("format %q: %v", e.Format, e.Cause)
}

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error {
	return e.Cause
}
