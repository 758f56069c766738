package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"devbook/internal/common"
)

// Restrict allows the request only when the current user has one of roles.
func Restrict(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok || !slices.Contains(roles, user.Role) {
				common.RespondWithError(w, r, common.Forbidden("Insufficient permissions!"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerLookup is implemented by every repository.Store.
type OwnerLookup interface {
	Owner(ctx context.Context, id, column string) (string, error)
}

// RecordOwnership allows the request only when column of the record named by
// the {id} path parameter equals the current user's id.
func RecordOwnership(records OwnerLookup, column string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := records.Owner(r.Context(), chi.URLParam(r, "id"), column)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					err = common.NotFound("Record not found!", nil)
				}
				common.RespondWithError(w, r, err)
				return
			}

			user, ok := CurrentUser(r.Context())
			if !ok || owner != user.ID {
				common.RespondWithError(w, r, common.Unauthorized("Record ownership not verified!", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RecordCreation rejects bodies whose userId names someone other than the
// current user. The body is left readable for the next handler.
func RecordCreation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				common.RespondWithError(w, r, common.NewAppError(http.StatusRequestEntityTooLarge, "Request body too large!", nil, common.ErrBadRequest))
				return
			}
			common.RespondWithError(w, r, common.BadRequest("Invalid request payload!", nil))
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		var probe struct {
			UserID string `json:"userId"`
		}
		// Malformed bodies are reported by the handler's decoder.
		_ = json.Unmarshal(body, &probe)

		user, ok := CurrentUser(r.Context())
		if probe.UserID != "" && (!ok || probe.UserID != user.ID) {
			common.RespondWithError(w, r, common.Unauthorized("Connection id must match current user id!", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
