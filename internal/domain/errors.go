package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument indicates structurally invalid caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingPath indicates that a URI carries neither identifier nor path.
	ErrMissingPath = fmt.Errorf("%w: uri has neither identifier nor path", ErrInvalidArgument)

	// ErrAlreadyExists indicates an identifier or path collision at the same version.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrNotSupported indicates an operation the index does not provide.
	ErrNotSupported = errors.New("operation not supported")

	// ErrNotReady indicates that the search index is not open.
	ErrNotReady = errors.New("search index not ready")
)

// RepositoryError wraps a failure of the backing search index.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("content repository %s failed: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError wraps err for operation op. Argument and conflict
// errors are returned unchanged so callers can tell them apart.
func NewRepositoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrNotSupported) {
		return err
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}

// InvalidArgument returns an ErrInvalidArgument with a message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
