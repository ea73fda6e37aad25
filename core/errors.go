package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the caller lacks the required role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned when an actor has no leaderboard entry.
	ErrNotFound = errors.New("actor not found")
	// ErrOverflow is returned when a points or wins total would leave the int64 range.
	ErrOverflow = errors.New("integer overflow")
	// ErrInvalidActor is returned for unparsable actor ids.
	ErrInvalidActor = errors.New("invalid actor id")
	// ErrPositionUnavailable is returned alongside a committed award whose
	// position could not be read back. The award must not be retried.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// StorageError reports a persistence failure. The operation was aborted and
// no partial mutation is visible.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
