package idgen

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStrategy is returned when a strategy name is not registered.
	ErrUnknownStrategy = errors.New("idgen: unknown strategy")

	// ErrInvalidNodeID is returned when a node id is outside [0, MaxNodeID].
	ErrInvalidNodeID = errors.New("idgen: node id out of range")

	// ErrClockRollback is matched by every ClockRollbackError.
	ErrClockRollback = errors.New("idgen: clock moved backwards")

	// ErrClockBeforeEpoch is returned when the clock reads earlier than the configured epoch.
	ErrClockBeforeEpoch = errors.New("idgen: clock is before epoch")
)

// ClockRollbackError reports a backward clock jump larger than the configured tolerance.
type ClockRollbackError struct {
	// Last is the last timestamp (unix millis) handed out by the generator.
	Last int64

	// Now is the timestamp (unix millis) observed after the rollback.
	Now int64
}

func (e *ClockRollbackError) Error() string {
	return fmt.Sprintf("idgen: clock moved backwards by %dms (last=%d now=%d)", e.Last-e.Now, e.Last, e.Now)
}

// Is reports whether target is ErrClockRollback.
func (e *ClockRollbackError) Is(target error) bool {
	return target == ErrClockRollback
}
