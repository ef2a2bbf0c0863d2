// Package errs holds the three layer-scoped error taxonomies of the
// service: storage, repository and service kinds. Each layer maps only the
// kinds of the layer directly beneath it and never lets a foreign type
// escape upward unmapped.
package errs

import (
	"errors"
	"fmt"
)

type StorageKind uint8

const (
	StorageNotFound StorageKind = iota + 1
	StorageAccessDenied
	StorageInvalidState
	StorageInternal
	StorageConnection
	StorageOperation
)

func (k StorageKind) String() string {
	switch k {
	case StorageNotFound:
		return "not_found"
	case StorageAccessDenied:
		return "access_denied"
	case StorageInvalidState:
		return "invalid_state"
	case StorageInternal:
		return "internal"
	case StorageConnection:
		return "connection"
	default:
		return "operation"
	}
}

type StorageError struct {
	Kind  StorageKind
	Msg   string
	cause error
}

func NewStorage(kind StorageKind, msg string, cause error) *StorageError {
	return &StorageError{Kind: kind, Msg: msg, cause: cause}
}

func (e *StorageError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("storage %s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("storage %s: %s", e.Kind, e.Msg)
}

func (e *StorageError) Unwrap() error { return e.cause }

// IsStorage reports whether err carries a StorageError of the given kind.
func IsStorage(err error, kind StorageKind) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == kind
}
