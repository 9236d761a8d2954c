// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// Upload is the success body of the upload endpoints.
type Upload struct {
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
}

// Failure is the error body returned by every endpoint.
type Failure struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Error writes an error response with the given status, message and optional detail.
func Error(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, status, Failure{Message: message, Error: detail})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message, "")
}

// TooLarge writes a 413 response.
func TooLarge(w http.ResponseWriter, message string) {
	Error(w, http.StatusRequestEntityTooLarge, message, "")
}

// InternalError writes a 500 response carrying the underlying message.
func InternalError(w http.ResponseWriter, message, detail string) {
	Error(w, http.StatusInternalServerError, message, detail)
}
