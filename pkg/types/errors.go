package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component
var (
	// ErrNotFound means the procedure or chunk does not exist or is not visible to the tenant
	ErrNotFound = errors.New("not found")
	// ErrValidation means the caller sent unusable input
	ErrValidation = errors.New("validation failed")
	// ErrDependency means the embedder or store failed outside of a batch row
	ErrDependency = errors.New("dependency failure")
	// ErrImportInProgress means another import is running for the same tenant
	ErrImportInProgress = errors.New("import already in progress for tenant")
	// ErrUnsupportedFormat means an import file type that cannot be decoded
	ErrUnsupportedFormat = errors.New("unsupported import format")

	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrInvalidChunkID = errors.New("invalid chunk ID")
)

// Invalid builds an ErrValidation with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Dependency wraps err from an external collaborator.
func Dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}

// RowError records a failure of one import row. Row is 1-based.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
