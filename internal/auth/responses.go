// responses.go -- Package-wide HTTP response helpers.
//
// Shared by handlers and middleware. Messages are JSON-encoded, so
// validation text can be passed through as-is.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"message":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeMessage writes {"message": message}.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, struct {
		Message string `json:"message"`
	}{message})
}

// InternalServerError logs the error and returns a generic 500 JSON response.
// Never exposes internal error details to prevent information leakage.
func InternalServerError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r, "internal server error", "error", err)
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}

// BadRequest returns a 400 JSON response with the given message.
// Use for client input validation failures.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeMessage(w, http.StatusBadRequest, message)
}

// Unauthorized returns a 401 JSON response with the given message.
// Keep message generic to prevent user enumeration.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	writeMessage(w, http.StatusUnauthorized, message)
}

// Forbidden returns a 403 JSON response with a generic message.
func Forbidden(w http.ResponseWriter) {
	writeMessage(w, http.StatusForbidden, "forbidden")
}

// NotFound returns a 404 JSON response with the given message.
func NotFound(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusNotFound, message)
}

// Conflict returns a 409 JSON response with the given message.
func Conflict(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusConflict, message)
}

// OK returns a 200 JSON response with the given message.
func OK(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusOK, message)
}

// writeError maps a service error to its status. Unclassified errors are a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		InternalServerError(w, r, err)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(ae.Kind, ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(ae.Kind, ErrConflict):
		status = http.StatusConflict
	case errors.Is(ae.Kind, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(ae.Kind, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(ae.Kind, ErrBadRequest):
		status = http.StatusBadRequest
	}
	logInfo(r, "request rejected", "status", status, "reason", ae.Message)
	writeMessage(w, status, ae.Message)
}
