// Package errs defines the closed error-kind sum type used across the
// replica core. Every public Replica/Storage/SyncEngine call that fails
// returns an *Error wrapping one of the Kinds below; the core never panics
// and never prints on the error path.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. It is not a Go error type itself -
// errors are always wrapped in an *Error so a cause and an operation name
// travel with it.
type Kind int

const (
	// StorageIO covers media/transport failures reading or writing the
	// durable substrate.
	StorageIO Kind = iota
	// StorageCorrupt means the bytes read back from storage do not decode.
	StorageCorrupt
	// StorageLocked means another process already holds the storage lock.
	StorageLocked
	// TaskNotFound means a uuid was looked up and does not exist.
	TaskNotFound
	// DuplicateUuid means a caller-supplied uuid already exists.
	DuplicateUuid
	// AlreadyExists means a Create targeted a uuid already present.
	AlreadyExists
	// BadAttributeValue means a stored string failed its attribute grammar.
	BadAttributeValue
	// DependencyCycle means adding a dependency would close a cycle.
	DependencyCycle
	// InvariantViolation covers any other violated data-model invariant.
	InvariantViolation
	// NothingToUndo means the undo log is empty or exhausted.
	NothingToUndo
	// SyncTransport covers network/HTTP failures talking to a sync server.
	SyncTransport
	// SyncAuth means the server rejected the request's credentials.
	SyncAuth
	// SyncCrypto means sealing or opening a wire blob failed.
	SyncCrypto
	// SyncConflictUnresolvable means rebase produced an inconsistent state.
	// This should never happen if the rebase table is followed correctly;
	// treated as a bug, not a user error.
	SyncConflictUnresolvable
	// BadConfig means the caller passed nonsensical configuration.
	BadConfig
)

func (k Kind) String() string {
	switch k {
	case StorageIO:
		return "StorageIO"
	case StorageCorrupt:
		return "StorageCorrupt"
	case StorageLocked:
		return "StorageLocked"
	case TaskNotFound:
		return "TaskNotFound"
	case DuplicateUuid:
		return "DuplicateUuid"
	case AlreadyExists:
		return "AlreadyExists"
	case BadAttributeValue:
		return "BadAttributeValue"
	case DependencyCycle:
		return "DependencyCycle"
	case InvariantViolation:
		return "InvariantViolation"
	case NothingToUndo:
		return "NothingToUndo"
	case SyncTransport:
		return "SyncTransport"
	case SyncAuth:
		return "SyncAuth"
	case SyncCrypto:
		return "SyncCrypto"
	case SyncConflictUnresolvable:
		return "SyncConflictUnresolvable"
	case BadConfig:
		return "BadConfig"
	default:
		return "Unknown"
	}
}

// Error is the sole error type returned by the replica core. Op names the
// method that failed (e.g. "Replica.Modify"); Err, when non-nil, is the
// wrapped cause and is reachable through errors.Unwrap/errors.As.
type Error struct {
	Kind Kind
	Op string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error of the given kind for the given operation.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap constructs an *Error of the given kind, wrapping cause.
func Wrap(op string, kind Kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
