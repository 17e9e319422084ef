// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNotificationNotFound reports a (partition, id) pair with no row. Reads
// translate it to an absent result; lifecycle mutators on a missing id no-op
// instead of returning it.
type ErrNotificationNotFound struct {
	Partition string
	ID        string
}

func (e *ErrNotificationNotFound) Error() string {
	return fmt.Sprintf("notification %s/%s not found", e.Partition, e.ID)
}

// Helper constructor
func NewNotificationNotFound(partition, id string) error {
	return &ErrNotificationNotFound{Partition: partition, ID: id}
}

// ErrStoreUnavailable wraps an infrastructure failure from the table store
// or the object store. Callers are expected to retry with backoff.
type ErrStoreUnavailable struct {
	Op  string
	Err error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error { return e.Err }

func NewStoreUnavailable(op string, err error) error {
	return &ErrStoreUnavailable{Op: op, Err: err}
}

// IsRetryable reports whether err is an infrastructure error worth retrying.
func IsRetryable(err error) bool {
	var se *ErrStoreUnavailable
	return errors.As(err, &se)
}
