// Package apperrors defines the error taxonomy surfaced by reads and mutations.
//
// Every error is a *goerrors.Error whose category identifies the kind:
// not found, validation, forbidden, unauthorized or internal. Errors are
// propagated unchanged through the cache so callers can branch on them.
package apperrors

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotFound     = "NOT_FOUND"
	TextCodeValidation   = "VALIDATION_ERROR"
	TextCodeForbidden    = "FORBIDDEN"
	TextCodeUnauthorized = "UNAUTHORIZED"
	TextCodeInternal     = "INTERNAL_ERROR"
)

// NotFound reports a referenced entity that does not exist.
func NotFound(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
}

// Validation reports malformed input with optional per-field errors.
func Validation(message string, fields ...goerrors.FieldError) *goerrors.Error {
	return goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation)
}

// FromValidation converts an ozzo-validation error. A nil err yields nil.
func FromValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeValidation)
}

// Forbidden reports an authenticated caller lacking permission.
func Forbidden(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode(TextCodeForbidden)
}

// Unauthorized reports a missing or unknown session.
func Unauthorized(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeUnauthorized)
}

// Internal wraps an infrastructure failure.
func Internal(err error, message string) error {
	if err == nil {
		return nil
	}
	if isAppError(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeInternal)
}

func IsNotFound(err error) bool     { return goerrors.HasCategory(err, goerrors.CategoryNotFound) }
func IsValidation(err error) bool   { return goerrors.HasCategory(err, goerrors.CategoryValidation) }
func IsForbidden(err error) bool    { return goerrors.HasCategory(err, goerrors.CategoryAuthz) }
func IsUnauthorized(err error) bool { return goerrors.HasCategory(err, goerrors.CategoryAuth) }

// HTTPStatus maps err to the response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsValidation(err):
		return http.StatusBadRequest
	case IsForbidden(err):
		return http.StatusForbidden
	case IsUnauthorized(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// AsError returns err as a *goerrors.Error, wrapping unknown errors as internal.
func AsError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected error occurred").
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeInternal)
}

func isAppError(err error) bool {
	var e *goerrors.Error
	return goerrors.As(err, &e)
}

// Describe flattens err for API responses: its text code, a client safe
// message and the per-field validation messages. Internal errors never
// expose their message.
func Describe(err error) (code, message string, fields map[string]string) {
	e := AsError(err)
	if e == nil {
		return "", "", nil
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return TextCodeInternal, "internal server error", nil
	}

	code = e.TextCode
	if code == "" {
		code = TextCodeInternal
	}
	if len(e.ValidationErrors) > 0 {
		fields = make(map[string]string, len(e.ValidationErrors))
		for _, fe := range e.ValidationErrors {
			fields[fe.Field] = fe.Message
		}
	}
	return code, e.Message, fields
}
