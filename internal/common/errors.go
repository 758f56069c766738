package common

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., email already in use
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")
)

// Postgres error codes translated at the API boundary.
const (
	pgUniqueViolation     = "23505"
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
)

// AppError is an error that knows how it should be rendered to a client.
type AppError struct {
	StatusCode int
	Message    string
	Errors     map[string]string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(status int, message string, fields map[string]string, err error) *AppError {
	return &AppError{StatusCode: status, Message: message, Errors: fields, Err: err}
}

func BadRequest(message string, fields map[string]string) *AppError {
	return NewAppError(http.StatusBadRequest, message, fields, ErrBadRequest)
}

func Unauthorized(message string, fields map[string]string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, fields, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, nil, ErrForbidden)
}

func NotFound(message string, fields map[string]string) *AppError {
	return NewAppError(http.StatusNotFound, message, fields, ErrNotFound)
}

// Internal wraps cause so it is logged, while clients only see message.
func Internal(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrInternalServer
	}
	return NewAppError(http.StatusInternalServerError, message, nil, cause)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsAppError(err).StatusCode
}

// AsAppError converts any error returned by a handler, service or repository
// into the AppError that describes the client response.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			field := constraintField(pgErr.TableName, pgErr.ConstraintName)
			return NewAppError(http.StatusBadRequest,
				"Unique constraint failed for: "+field,
				map[string]string{field: "Duplicate field value"}, err)
		case pgNotNullViolation:
			return NewAppError(http.StatusBadRequest, "Missing input(s)",
				map[string]string{pgErr.ColumnName: pgErr.ColumnName + " is required"}, err)
		case pgForeignKeyViolation:
			return NewAppError(http.StatusNotFound, "Record(s) not found", nil, err)
		}
	}

	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, "Record(s) not found", nil, err)
	case errors.Is(err, ErrConflict):
		return NewAppError(http.StatusBadRequest, "Duplicate field value(s)", nil, err)
	case errors.Is(err, ErrValidation):
		return NewAppError(http.StatusBadRequest, "Input validation error", nil, err)
	case errors.Is(err, ErrBadRequest):
		return NewAppError(http.StatusBadRequest, "Invalid request!", nil, err)
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(http.StatusUnauthorized, "Unauthorized request!", nil, err)
	case errors.Is(err, ErrForbidden):
		return NewAppError(http.StatusForbidden, "Insufficient permissions!", nil, err)
	}

	return NewAppError(http.StatusInternalServerError, err.Error(), nil, err)
}

// constraintField turns "users_email_key" on table "users" into "email".
func constraintField(table, constraint string) string {
	field := strings.TrimPrefix(constraint, table+"_")
	field = strings.TrimSuffix(field, "_key")
	if field == "" {
		return constraint
	}
	return field
}

