package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/uptrace/bunrouter"
)

// BunRouterHandler is satisfied by both bunrouter.Router and bunrouter.Group,
// so routes can be mounted directly on a router or nested under a prefix.
type BunRouterHandler interface {
	Handle(method, path string, handler bunrouter.HandlerFunc)
}

const sourceParam = "source"

// SetupMuxRoutes registers the health, metrics, query, raw, and explain
// endpoints on muxRouter. metricsHandler is mounted at /metrics when
// non-nil.
func SetupMuxRoutes(muxRouter *mux.Router, handler *Handler, metricsHandler http.Handler) {
	muxRouter.HandleFunc("/health", handler.HandleHealth).Methods("GET")

	if metricsHandler != nil {
		muxRouter.Handle("/metrics", metricsHandler).Methods("GET")
	}

	muxRouter.HandleFunc("/{source}/query", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleQuery(w, r, mux.Vars(r)[sourceParam])
	}).Methods("POST")

	muxRouter.HandleFunc("/{source}/raw", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleRaw(w, r, mux.Vars(r)[sourceParam])
	}).Methods("POST")

	muxRouter.HandleFunc("/{source}/explain", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleExplain(w, r, mux.Vars(r)[sourceParam])
	}).Methods("POST")
}

// SetupBunRouterRoutes registers the same endpoints as SetupMuxRoutes on a
// bunrouter.Router or bunrouter.Group.
func SetupBunRouterRoutes(r BunRouterHandler, handler *Handler, metricsHandler http.Handler) {
	r.Handle("GET", "/health", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.HandleHealth(w, req.Request)
		return nil
	})

	if metricsHandler != nil {
		r.Handle("GET", "/metrics", func(w http.ResponseWriter, req bunrouter.Request) error {
			metricsHandler.ServeHTTP(w, req.Request)
			return nil
		})
	}

	r.Handle("POST", "/:source/query", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.HandleQuery(w, req.Request, req.Param(sourceParam))
		return nil
	})

	r.Handle("POST", "/:source/raw", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.HandleRaw(w, req.Request, req.Param(sourceParam))
		return nil
	})

	r.Handle("POST", "/:source/explain", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.HandleExplain(w, req.Request, req.Param(sourceParam))
		return nil
	})
}
