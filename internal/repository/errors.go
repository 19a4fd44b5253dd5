package repository

import "errors"

// Kind is the closed set of storage failure kinds. Each value is itself an
// error so callers can test with errors.Is(err, repository.ErrDuplicateKey).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrConnectionFailed  Kind = "ConnectionFailed"
	ErrTransactionFailed Kind = "TransactionFailed"
	ErrStoreNotFound     Kind = "StoreNotFound"
	ErrItemNotFound      Kind = "ItemNotFound"
	ErrDuplicateKey      Kind = "DuplicateKey"
	ErrQuotaExceeded     Kind = "QuotaExceeded"
	ErrVersion           Kind = "VersionError"
	ErrUnknown           Kind = "Unknown"
)

// StorageError is a classified storage failure. Op names the repository
// method, e.g. "UserRepository.create".
type StorageError struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the raw cause.
func (e *StorageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// StorageKind returns the kind name.
func (e *StorageError) StorageKind() string { return string(e.Kind) }

// KindOf returns the kind of a storage error anywhere in err's chain, or
// the empty Kind.
func KindOf(err error) Kind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
