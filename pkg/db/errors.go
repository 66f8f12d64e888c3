package db

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidInput       = errors.New("invalid input")
)

// OpError ties a failed store operation to its cause. Unwrap exposes both the
// taxonomy kind and the driver error.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StorageError reports err as ErrStorageUnavailable for op. Nil stays nil, and
// errors that already carry a taxonomy kind pass through unchanged.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrStorageUnavailable, ErrAlreadyExists, ErrInvalidCredentials, ErrInvalidInput} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &OpError{Op: op, Kind: ErrStorageUnavailable, Err: err}
}

func InvalidInput(op, msg string) error {
	return &OpError{Op: op, Kind: ErrInvalidInput, Err: errors.New(msg)}
}
