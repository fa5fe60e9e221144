// Package errors writes structured JSON error responses. Every failure
// carries a machine-readable reason and a human-readable message; internal
// detail is logged with the request ID and echoed in the detail field for
// debugging.
package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Reason codes for the error taxonomy.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonNotFound        = "not_found"
	ReasonInvalidInput    = "invalid_input"
	ReasonUpstreamFailure = "upstream_failure"
)

type body struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

func write(w http.ResponseWriter, status int, b body) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}

// Unauthenticated responds 401 with the given reason detail (missing token,
// expired token, bad signature, ...).
func Unauthenticated(w http.ResponseWriter, r *http.Request, detail string) {
	slog.WarnContext(r.Context(), "request rejected",
		"component", "http", "reason", ReasonUnauthenticated,
		"detail", detail, "request_id", middleware.GetReqID(r.Context()))
	write(w, http.StatusUnauthorized, body{
		Error:  "authentication required",
		Reason: ReasonUnauthenticated,
		Detail: detail,
	})
}

// NotFound responds 404. Ownership mismatches use the same response as
// genuinely missing ids so existence never leaks.
func NotFound(w http.ResponseWriter, r *http.Request) {
	write(w, http.StatusNotFound, body{
		Error:  "not found",
		Reason: ReasonNotFound,
	})
}

// InvalidInput responds 400 with a message describing what was malformed.
func InvalidInput(w http.ResponseWriter, r *http.Request, err error, message string) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	slog.WarnContext(r.Context(), "invalid input",
		"component", "http", "error", detail,
		"request_id", middleware.GetReqID(r.Context()))
	write(w, http.StatusBadRequest, body{
		Error:  message,
		Reason: ReasonInvalidInput,
		Detail: detail,
	})
}

// Upstream responds 502 for failed persistence or identity-provider calls.
// The cause is logged; the client gets a generic message plus the detail
// string and is expected to retry.
func Upstream(w http.ResponseWriter, r *http.Request, err error, message string) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	slog.ErrorContext(r.Context(), message,
		"component", "http", "error", detail,
		"request_id", middleware.GetReqID(r.Context()))
	write(w, http.StatusBadGateway, body{
		Error:  "upstream service failed",
		Reason: ReasonUpstreamFailure,
		Detail: detail,
	})
}
