package repository

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout     = errors.New("store operation timed out")
	ErrDecode      = errors.New("malformed ledger row")
	ErrUnavailable = errors.New("store unavailable")
)

// StoreError wraps any failure executing a read or write against the backend.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
