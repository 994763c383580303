package storage

import (
	"errors"
	"fmt"
)

// Common storage errors. The messages are shown to users as-is.
var (
	// ErrNotFound indicates that the entity does not exist or belongs to another user
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName indicates that the user already has a folder with this name
	ErrDuplicateName = errors.New("Folder name already exists")

	// ErrDuplicateTrigger indicates that the user already has a snippet with this trigger
	ErrDuplicateTrigger = errors.New("Trigger already exists")

	// ErrReservedName indicates an attempt to use or change the reserved "General" name
	ErrReservedName = errors.New("Folder name 'General' is reserved")

	// ErrReservedFolder indicates an attempt to delete the "General" folder
	ErrReservedFolder = errors.New("Cannot delete the 'General' folder")

	// ErrValidation is the root of every ValidationError
	ErrValidation = errors.New("validation error")

	// ErrUnavailable indicates that the backend could not be reached or written
	ErrUnavailable = errors.New("storage unavailable")
)

// ErrRenameGeneral is returned when the General folder is renamed.
// errors.Is(ErrRenameGeneral, ErrReservedName) holds.
var ErrRenameGeneral error = &reservedError{msg: "Cannot rename the 'General' folder"}

type reservedError struct{ msg string }

func (e *reservedError) Error() string        { return e.msg }
func (e *reservedError) Is(target error) bool { return target == ErrReservedName }

// ValidationError describes a malformed field. It unwraps to ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// invalid wraps a validator error into a ValidationError for field.
func invalid(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// Unavailable wraps a driver or I/O failure so callers can tell it apart
// from client-correctable errors. The original error stays in the chain.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// IsClientError reports whether err is something the caller can correct.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrDuplicateTrigger) ||
		errors.Is(err, ErrReservedName) ||
		errors.Is(err, ErrReservedFolder)
}
