// Package transport is the HTTP surface of the service: chi routers,
// request/response DTOs, and the JSON plumbing around them. The
// response/middleware/decode helpers are grounded on the teacher's
// vendored github.com/wisbric/core/pkg/httpserver package — that
// module is private and not fetchable, so the same shapes are
// reimplemented here directly rather than imported (see DESIGN.md).
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the JSON body written for any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Respond writes data as a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("transport: failed to encode response", "error", err)
	}
}

// RespondError writes an ErrorResponse with the given status, logging
// the underlying error (which is never sent to the client) alongside
// the user-facing message.
func RespondError(w http.ResponseWriter, status int, err error, message string) {
	if err != nil {
		slog.Error("transport: request failed", "error", err, "status", status)
	}
	Respond(w, status, ErrorResponse{Error: http.StatusText(status), Message: message})
}
