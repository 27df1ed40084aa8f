package httpapi

import (
	"net/http"

	"github.com/chqlbuilder/chqlbuilder/pkg/sourceregistry"
)

// Handler serves the query/raw/explain/health endpoints against a fixed set
// of configured sources.
type Handler struct {
	registry *sourceregistry.Registry
}

// NewHandler builds a Handler backed by registry.
func NewHandler(registry *sourceregistry.Registry) *Handler {
	return &Handler{registry: registry}
}

// lookupSource resolves the named source or writes a 404 and returns false.
func (h *Handler) lookupSource(w http.ResponseWriter, name string) (*sourceregistry.Source, bool) {
	source, err := h.registry.Lookup(name)
	if err != nil {
		sendError(w, http.StatusNotFound, "source_not_found", err.Error(), err)
		return nil, false
	}
	return source, true
}

// HandleHealth reports 204 unconditionally by default, matching the
// original stub liveness check. With "?verify=1" it additionally pings
// every configured source (or just the one named by "?source="), returning
// 503 if any of them fails to connect or answer the ping.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("verify") != "1" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	names := h.registry.Names()
	if named := r.URL.Query().Get("source"); named != "" {
		names = []string{named}
	}

	for _, name := range names {
		source, err := h.registry.Lookup(name)
		if err != nil {
			sendError(w, http.StatusNotFound, "source_not_found", err.Error(), err)
			return
		}
		client, err := source.Client(r.Context())
		if err != nil {
			sendError(w, http.StatusServiceUnavailable, "source_unavailable", err.Error(), err)
			return
		}
		if err := client.HealthCheck(r.Context()); err != nil {
			sendError(w, http.StatusServiceUnavailable, "source_unavailable", err.Error(), err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
