// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"
)

// Body is the JSON error envelope every endpoint returns.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Write sends an error envelope. code is a stable machine-readable token
// (e.g. "forbidden"); message is optional text for people.
func Write(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Body{Error: code, Message: message})
}

// BadRequest responds 400.
func BadRequest(w http.ResponseWriter, message string) {
	Write(w, http.StatusBadRequest, "bad_request", message)
}

// Unauthorized responds 401.
func Unauthorized(w http.ResponseWriter) {
	Write(w, http.StatusUnauthorized, "unauthenticated", "Please sign in to continue.")
}

// Forbidden responds 403.
func Forbidden(w http.ResponseWriter, message string) {
	Write(w, http.StatusForbidden, "forbidden", message)
}

// NotFound responds 404.
func NotFound(w http.ResponseWriter, message string) {
	Write(w, http.StatusNotFound, "not_found", message)
}

// Internal responds 500.
func Internal(w http.ResponseWriter) {
	Write(w, http.StatusInternalServerError, "internal", "Something went wrong.")
}

// DecodeJSON reads a JSON request body into v, limiting it to maxBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
