package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown or evicted dataset ID.
	ErrNotFound = errors.New("dataset not found")
	// ErrSubscriptionNotFound is returned for an unknown push endpoint.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// StorageError wraps a persistence failure. When it is returned from a
// write transaction, nothing from that transaction was committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
