package common

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"devbook/internal/platform/logger"
)

const genericErrorMessage = "Something went wrong!"

var hideInternalErrors atomic.Bool

// SetProduction hides the message of 5xx responses when enabled.
func SetProduction(enabled bool) {
	hideInternalErrors.Store(enabled)
}

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       interface{}       `json:"data,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Status     string            `json:"status"`
	StatusCode int               `json:"statusCode"`
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "error"
	case code >= 400:
		return "fail"
	default:
		return "success"
	}
}

func RespondWithSuccess(w http.ResponseWriter, code int, message string, data interface{}) {
	RespondWithJSON(w, code, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Status:     statusText(code),
		StatusCode: code,
	})
}

func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// RespondWithError renders err as an error envelope. Server errors are logged.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := AsAppError(err)
	message := appErr.Message

	if appErr.StatusCode >= http.StatusInternalServerError {
		log := logger.WithComponent("http")
		log.Error().
			Err(err).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", appErr.StatusCode).
			Msg("request failed")
		if hideInternalErrors.Load() {
			message = genericErrorMessage
		}
	}

	RespondWithJSON(w, appErr.StatusCode, Envelope{
		Success:    false,
		Message:    message,
		Errors:     appErr.Errors,
		Status:     statusText(appErr.StatusCode),
		StatusCode: appErr.StatusCode,
	})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"Failed to marshal JSON response","status":"error","statusCode":500}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
