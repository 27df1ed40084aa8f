package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/chqlbuilder/chqlbuilder/pkg/compiler"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/tracing"
)

type explainResponse struct {
	Lines []string `json:"lines"`
	Query string   `json:"query"`
}

// HandleExplain compiles a request with literals inlined rather than bound
// (EXPLAIN has no parameter slots), wraps the resulting statement in
// EXPLAIN, executes it, and returns the plan lines alongside the compiled
// statement text.
func (h *Handler) HandleExplain(w http.ResponseWriter, r *http.Request, sourceName string) {
	defer func() {
		if rec := recover(); rec != nil {
			handlePanic(w, "HandleExplain", rec)
		}
	}()

	ctx, span := tracing.StartSpan(r.Context(), "httpapi.HandleExplain")
	defer span.End()

	source, ok := h.lookupSource(w, sourceName)
	if !ok {
		return
	}

	var request queryrequest.Request
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_request", "request body is not a valid query request", err)
		return
	}

	resolved, err := source.Resolver.Resolve(&request)
	if err != nil {
		writeCompileError(w, err)
		return
	}

	result, err := compiler.Compile(resolved, false)
	if err != nil {
		writeCompileError(w, err)
		return
	}

	client, err := source.Client(ctx)
	if err != nil {
		sendError(w, http.StatusServiceUnavailable, "source_unavailable", err.Error(), err)
		return
	}

	lines, explainQuery, err := client.Explain(ctx, result.Statement)
	if err != nil {
		tracing.RecordError(ctx, err)
		sendError(w, http.StatusBadGateway, "execute_failed", "explain execution failed", err)
		return
	}

	sendJSON(w, http.StatusOK, explainResponse{Lines: lines, Query: explainQuery})
}
