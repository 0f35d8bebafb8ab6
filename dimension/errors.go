package dimension

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a dimension doesn't exist.
	ErrNotFound = errors.New("dimensions: dimension not found")

	// ErrTypeNotFound is returned when a dimension type doesn't exist.
	ErrTypeNotFound = errors.New("dimensions: dimension type not found")

	// ErrInvalidBinding is returned when a binding lacks its user, dimension or type.
	ErrInvalidBinding = errors.New("dimensions: binding requires user, dimension and type")
)

// StageError reports the cascade stage at which a delete aborted.
// Stages completed before it are not rolled back.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("dimensions: cascade delete failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
