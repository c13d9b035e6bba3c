package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can tell input problems from
// caller logic faults and infrastructure failures.
type ErrorKind string

const (
	// KindValidation covers malformed or unbalanced input, rejected before any write.
	KindValidation ErrorKind = "validation"
	// KindReferential covers unknown or inactive references and uniqueness clashes.
	KindReferential ErrorKind = "referential"
	// KindState covers illegal lifecycle transitions.
	KindState ErrorKind = "state"
	// KindStorage covers durability failures, audit write failures included.
	KindStorage ErrorKind = "storage"
)

// Classified is implemented by every typed domain error.
type Classified interface {
	error
	Kind() ErrorKind
}

// KindOf returns the kind of the first classified error in err's tree.
// Anything unclassified is a storage failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var classified Classified
	if errors.As(err, &classified) {
		return classified.Kind()
	}
	return KindStorage
}

// IsRecoverable reports whether the caller can fix its input and retry.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindReferential, KindState:
		return true
	default:
		return false
	}
}

// StorageError marks a failed write or read in the ledger store.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) error {
	return StorageError{Op: op, Err: err}
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }

func (e StorageError) Kind() ErrorKind { return KindStorage }
