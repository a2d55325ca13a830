// Package apperror defines the API-level error taxonomy shared by every feature package.
//
// Services return *Error values whose Kind is one of the sentinel errors below; the HTTP layer
// maps kinds to status codes in a single place (see response.FromError).
package apperror

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate")
	ErrInvalidReference = errors.New("invalid reference")
	ErrUpload           = errors.New("upload failed")
	ErrAuth             = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
	ErrInternal         = errors.New("internal error")
)

// Postgres SQLSTATE codes translated by FromPg.
const (
	PgUniqueViolation     = "23505"
	PgForeignKeyViolation = "23503"
	PgCheckViolation      = "23514"
	PgInvalidTextRepr     = "22P02"
	PgNumericOutOfRange   = "22003"
)

// Error is a classified error. Message is safe to show to API clients; Err is the
// underlying cause and is only logged.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation returns an ErrValidation error with a client-facing message.
func Validation(format string, args ...any) *Error { return newf(ErrValidation, format, args...) }

// NotFound returns an ErrNotFound error.
func NotFound(format string, args ...any) *Error { return newf(ErrNotFound, format, args...) }

// Duplicate returns an ErrDuplicate error.
func Duplicate(format string, args ...any) *Error { return newf(ErrDuplicate, format, args...) }

// InvalidReference returns an ErrInvalidReference error.
func InvalidReference(format string, args ...any) *Error {
	return newf(ErrInvalidReference, format, args...)
}

// Conflict returns an ErrConflict error.
func Conflict(format string, args ...any) *Error { return newf(ErrConflict, format, args...) }

// Auth returns an ErrAuth error.
func Auth(format string, args ...any) *Error { return newf(ErrAuth, format, args...) }

// Upload wraps a storage failure.
func Upload(err error) *Error {
	return &Error{Kind: ErrUpload, Message: "failed to upload image", Err: err}
}

// Internal wraps an unanticipated failure. The cause never reaches the client.
func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal server error", Err: err}
}

// Kind returns the taxonomy kind of err, or ErrInternal for anything unclassified.
func Kind(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInternal
}

// PgCode returns the SQLSTATE of a Postgres error, or "" when err is not one.
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// FromPg classifies a Postgres constraint error. entity names the row type for messages
// ("product", "category"). Errors that are already classified pass through unchanged.
func FromPg(err error, entity string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch PgCode(err) {
	case PgUniqueViolation:
		return &Error{Kind: ErrDuplicate, Message: fmt.Sprintf("%s with this name already exists", entity), Err: err}
	case PgForeignKeyViolation:
		return &Error{Kind: ErrInvalidReference, Message: "referenced category does not exist", Err: err}
	case PgCheckViolation, PgInvalidTextRepr, PgNumericOutOfRange:
		return &Error{Kind: ErrValidation, Message: fmt.Sprintf("invalid %s data", entity), Err: err}
	}
	return Internal(err)
}
