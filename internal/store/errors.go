package store

import (
	"fmt"

	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by lookups of entities and instances.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("already exists")
)

// PersistenceError is a failed single row write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// BatchPersistenceError identifies the chunk of a batch write that failed.
// Offset is the position of the chunk within its type group.
type BatchPersistenceError struct {
	Type   variable.Type
	Offset int
	Size   int
	Err    error
}

func (e *BatchPersistenceError) Error() string {
	return fmt.Sprintf("saving %d %s variables at offset %d: %v", e.Size, e.Type, e.Offset, e.Err)
}

func (e *BatchPersistenceError) Unwrap() error {
	return e.Err
}

// conflictError is ErrConflict for errors.Is and keeps the driver error as its cause.
type conflictError struct {
	cause error
}

func (e *conflictError) Error() string {
	return ErrConflict.Error() + ": " + e.cause.Error()
}

func (e *conflictError) Is(target error) bool {
	return target == ErrConflict
}

func (e *conflictError) Unwrap() error {
	return e.cause
}

// classify turns driver errors into the package taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return &conflictError{cause: err}
	}
	return err
}
