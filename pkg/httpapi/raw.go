package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/metrics"
	"github.com/chqlbuilder/chqlbuilder/pkg/tracing"
)

type rawRequest struct {
	Query string `json:"query"`
}

type rawResponse struct {
	Rows []*orderedmap.OrderedMap[string, interface{}] `json:"rows"`
}

// ensureFormatJSON makes a raw query carry FORMAT JSON;: a query that already
// contains it anywhere is left alone, otherwise every ";" in it becomes
// " FORMAT JSON;", and a query with no ";" at all has the suffix appended.
func ensureFormatJSON(query string) string {
	if strings.Contains(query, "FORMAT JSON;") {
		return query
	}
	if strings.Contains(query, ";") {
		return strings.ReplaceAll(query, ";", " FORMAT JSON;")
	}
	return query + " FORMAT JSON;"
}

// HandleRaw passes a caller-supplied SQL statement straight through to the
// named source, after repairing its FORMAT JSON; suffix.
func (h *Handler) HandleRaw(w http.ResponseWriter, r *http.Request, sourceName string) {
	defer func() {
		if rec := recover(); rec != nil {
			handlePanic(w, "HandleRaw", rec)
		}
	}()

	ctx, span := tracing.StartSpan(r.Context(), "httpapi.HandleRaw")
	defer span.End()

	source, ok := h.lookupSource(w, sourceName)
	if !ok {
		return
	}

	var req rawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_request", "request body is not a valid raw request", err)
		return
	}

	client, err := source.Client(ctx)
	if err != nil {
		sendError(w, http.StatusServiceUnavailable, "source_unavailable", err.Error(), err)
		return
	}

	execStart := time.Now()
	rows, err := client.Raw(ctx, ensureFormatJSON(req.Query))
	metrics.GetProvider().RecordDBQuery("raw", sourceName, time.Since(execStart), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		sendError(w, http.StatusBadGateway, "execute_failed", "query execution failed", err)
		return
	}

	sendJSON(w, http.StatusOK, rawResponse{Rows: rows})
}
