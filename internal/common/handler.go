package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// HandlerFunc is an http handler that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts fn to net/http, rendering any returned error as an envelope.
func Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			RespondWithError(w, r, err)
		}
	}
}

// DecodeJSON reads the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return NewAppError(http.StatusRequestEntityTooLarge, "Request body too large!", nil, ErrBadRequest)
		case errors.Is(err, io.EOF):
			return BadRequest("Request body is required!", nil)
		default:
			return NewAppError(http.StatusBadRequest, "Invalid request payload!", nil, errors.Join(ErrBadRequest, err))
		}
	}
	return nil
}

// DecodeAndValidate decodes the JSON body into dst and validates its struct tags.
func DecodeAndValidate(r *http.Request, dst interface{}) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	return Validate(dst)
}
