package apperror

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Code is the stable, UI-facing identifier of a failure.
type Code string

const (
	CodeInvalidCredentials    Code = "INVALID_CREDENTIALS"
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeEmailAlreadyExists    Code = "EMAIL_ALREADY_EXISTS"
	CodeInvalidEmailFormat    Code = "INVALID_EMAIL_FORMAT"
	CodePasswordTooWeak       Code = "PASSWORD_TOO_WEAK"
	CodeSessionExpired        Code = "SESSION_EXPIRED"
	CodeStorage               Code = "STORAGE_ERROR"
	CodeNetwork               Code = "NETWORK_ERROR"
	CodeUnknown               Code = "UNKNOWN_ERROR"
	CodeValidation            Code = "VALIDATION_FAILED"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeCannotModifySelf      Code = "CANNOT_MODIFY_SELF"
	CodeCannotDeleteLastAdmin Code = "CANNOT_DELETE_LAST_ADMIN"
	CodeNotFound              Code = "NOT_FOUND"
	CodeForbidden             Code = "FORBIDDEN"
	CodeInvalidParameter      Code = "PARAMETER_INVALID"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrInvalidEmailFormat    = errors.New("invalid email format")
	ErrPasswordTooWeak       = errors.New("password too weak")
	ErrSessionExpired        = errors.New("session expired")
	ErrStorage               = errors.New("storage error")
	ErrNetwork               = errors.New("network error")
	ErrUnknown               = errors.New("unknown error")
	ErrValidation            = errors.New("validation failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrCannotModifySelf      = errors.New("cannot modify self")
	ErrCannotDeleteLastAdmin = errors.New("cannot delete last admin")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidParameter      = errors.New("invalid parameter")
)

// AppError is a business failure with a sentinel kind, a UI code and a
// human-readable message. Fields carries per-field validation messages.
type AppError struct {
	Err       error // sentinel kind
	Code      Code
	Message   string
	Field     string
	Fields    map[string]string
	Details   map[string]any
	Timestamp time.Time
	Cause     error

	// also holds extra sentinels the error matches, e.g. a validation
	// failure that is also ErrPasswordTooWeak.
	also []error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2+len(e.also))
	errs = append(errs, e.Err)
	errs = append(errs, e.also...)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Payload renders the error as the object handed to the UI.
func (e *AppError) Payload() Payload {
	p := Payload{Code: e.Code, Message: e.Message, Timestamp: e.Timestamp}
	if len(e.Details) > 0 || len(e.Fields) > 0 {
		p.Details = make(map[string]any, len(e.Details)+1)
		for k, v := range e.Details {
			p.Details[k] = v
		}
		if len(e.Fields) > 0 {
			p.Details["validationErrors"] = e.Fields
		}
	}
	return p
}

func newError(kind error, code Code, message string) *AppError {
	return &AppError{
		Err:       kind,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// InvalidCredentials never says whether the email or the password was wrong.
func InvalidCredentials(fields map[string]string) *AppError {
	e := newError(ErrInvalidCredentials, CodeInvalidCredentials, "Invalid email or password")
	e.Fields = fields
	return e
}

func UserNotFound(message string) *AppError {
	return newError(ErrUserNotFound, CodeUserNotFound, message)
}

func EmailAlreadyExists() *AppError {
	return newError(ErrEmailAlreadyExists, CodeEmailAlreadyExists, "An account with this email already exists")
}

func ValidationFailed(field, message string) *AppError {
	e := newError(ErrValidation, CodeValidation, message)
	e.Field = field
	e.Fields = map[string]string{field: message}
	return e
}

// ValidationErrors reports several field failures at once. also lists
// extra sentinels the caller wants errors.Is to match.
func ValidationErrors(fields map[string]string, also ...error) *AppError {
	e := newError(ErrValidation, CodeValidation, "Validation failed")
	e.Fields = fields
	e.also = also
	return e
}

func SessionExpired() *AppError {
	return newError(ErrSessionExpired, CodeSessionExpired, "Your session has expired. Please sign in again.")
}

func Storage(message string, cause error) *AppError {
	e := newError(ErrStorage, CodeStorage, message)
	e.Cause = cause
	return e
}

func Network(cause error) *AppError {
	e := newError(ErrNetwork, CodeNetwork, "Network request failed")
	e.Cause = cause
	return e
}

func Unknown(message string, cause error) *AppError {
	e := newError(ErrUnknown, CodeUnknown, message)
	e.Cause = cause
	return e
}

func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, CodeUnauthorized, message)
}

func CannotModifySelf(message string) *AppError {
	return newError(ErrCannotModifySelf, CodeCannotModifySelf, message)
}

func CannotDeleteLastAdmin(message string) *AppError {
	return newError(ErrCannotDeleteLastAdmin, CodeCannotDeleteLastAdmin, message)
}

func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, CodeNotFound, fmt.Sprintf("%s not found with id %s", resource, id))
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return newError(ErrForbidden, CodeForbidden, message)
}

func InvalidParameter(field, message string) *AppError {
	e := newError(ErrInvalidParameter, CodeInvalidParameter, message)
	e.Field = field
	return e
}

// Payload is the typed error object {code, message, timestamp, details?}.
type Payload struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// storageFailure is satisfied by repository.StorageError without importing it.
type storageFailure interface {
	error
	StorageKind() string
}

// PayloadOf renders any error for the UI. Errors that are not AppErrors
// are mapped by shape: storage failures, deadlines, then unknown.
func PayloadOf(err error) Payload {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Payload()
	}

	var sf storageFailure
	if errors.As(err, &sf) {
		p := Storage("A storage error occurred", err).Payload()
		p.Details = map[string]any{"kind": sf.StorageKind()}
		return p
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Network(err).Payload()
	}
	return Unknown("An unexpected error occurred", err).Payload()
}
