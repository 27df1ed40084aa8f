// Package httpapi wires the compiler, alias resolver, and ClickHouse client
// behind the service's three request-carrying endpoints plus health and
// metrics, following the response envelope and panic-recovery shape of the
// teacher's resolvespec handler.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/chqlbuilder/chqlbuilder/pkg/logger"
	"github.com/chqlbuilder/chqlbuilder/pkg/metrics"
)

// Response is the failure envelope every endpoint reports errors through,
// matching the teacher's sendError shape. Success bodies are written bare
// (sendJSON/sendRaw below), matching the response shapes the original server
// returned for query, raw, and explain.
type Response struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// sendJSON writes a success body verbatim, with no envelope.
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httpapi: error writing response: %v", err)
	}
}

// sendRaw writes a pre-serialised JSON payload directly: the compiled
// query's JSON column already carries the exact shape the caller asked the
// compiler for.
func sendRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Error("httpapi: error writing raw response: %v", err)
	}
}

func sendError(w http.ResponseWriter, status int, code, message string, detail error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	apiErr := &APIError{Code: code, Message: message}
	if detail != nil {
		apiErr.Detail = detail.Error()
	}
	if err := json.NewEncoder(w).Encode(Response{Success: false, Error: apiErr}); err != nil {
		logger.Error("httpapi: error writing error response: %v", err)
	}
}

func handlePanic(w http.ResponseWriter, method string, recovered interface{}) {
	stack := debug.Stack()
	logger.Error("httpapi: panic in %s: %v\n%s", method, recovered, string(stack))
	metrics.GetProvider().RecordPanic(method)
	sendError(w, http.StatusInternalServerError, "internal_error", fmt.Sprintf("internal server error in %s", method), fmt.Errorf("%v", recovered))
}
