package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/chclient"
	"github.com/chqlbuilder/chqlbuilder/pkg/compiler"
	"github.com/chqlbuilder/chqlbuilder/pkg/logger"
	"github.com/chqlbuilder/chqlbuilder/pkg/metrics"
	"github.com/chqlbuilder/chqlbuilder/pkg/parambinder"
	"github.com/chqlbuilder/chqlbuilder/pkg/querycache"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/tracing"
)

// HandleQuery decodes a structured request body, resolves its aliases,
// compiles it with bound parameters (reusing a cached compile for a request
// this source has already seen), executes it against the named source, and
// streams back the compiler's single JSON envelope column verbatim.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request, sourceName string) {
	defer func() {
		if rec := recover(); rec != nil {
			handlePanic(w, "HandleQuery", rec)
		}
	}()

	ctx, span := tracing.StartSpan(r.Context(), "httpapi.HandleQuery")
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

	resolvedJSON, err := json.Marshal(resolved)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "internal_error", "failed to canonicalize resolved request", err)
		return
	}
	cacheKey := querycache.GetCompiledStatementCacheKey(querycache.BuildCompiledStatementCacheKey(sourceName, resolvedJSON, true))

	sqlText, parameters, err := compileCached(ctx, cacheKey, sourceName, resolved)
	if err != nil {
		writeCompileError(w, err)
		return
	}

	client, err := source.Client(ctx)
	if err != nil {
		sendError(w, http.StatusServiceUnavailable, "source_unavailable", err.Error(), err)
		return
	}

	execStart := time.Now()
	envelope, err := client.QueryText(ctx, sqlText, parameters)
	metrics.GetProvider().RecordExecute(sourceName, time.Since(execStart), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		if errors.Is(err, chclient.ErrNoRows) {
			sendError(w, http.StatusInternalServerError, "internal_error", "query produced no envelope row", err)
			return
		}
		sendError(w, http.StatusBadGateway, "execute_failed", "query execution failed", err)
		return
	}

	if !gjson.ValidBytes(envelope) {
		sendError(w, http.StatusInternalServerError, "internal_error", "query produced a malformed envelope", nil)
		return
	}

	sendRaw(w, http.StatusOK, envelope)
}

// compiledStatementCacheProvider labels the Prometheus cache hit/miss
// metrics for the compiled-statement cache, distinguishing them from any
// other cache a future Provider might gain.
const compiledStatementCacheProvider = "compiled_statement"

// compileCached returns the rendered SQL and bound parameters for resolved,
// either from the compiled-statement cache or by compiling it fresh and
// populating the cache for the next identical request.
func compileCached(ctx context.Context, cacheKey, sourceName string, resolved *queryrequest.Request) (string, *orderedmap.OrderedMap[string, parambinder.Param], error) {
	cache := querycache.GetDefaultCache()

	var cached querycache.CachedStatement
	if err := cache.Get(ctx, cacheKey, &cached); err == nil {
		metrics.GetProvider().RecordCacheHit(compiledStatementCacheProvider)
		return cached.SQL, querycache.DecodeParams(cached.Params), nil
	}
	metrics.GetProvider().RecordCacheMiss(compiledStatementCacheProvider)

	compileStart := time.Now()
	result, err := compiler.Compile(resolved, true)
	metrics.GetProvider().RecordCompile(sourceName, time.Since(compileStart), err)
	if err != nil {
		return "", nil, err
	}

	sqlText := result.Statement.Render()
	if err := cache.Set(ctx, cacheKey, querycache.CachedStatement{
		SQL:    sqlText,
		Params: querycache.EncodeParams(result.Parameters),
	}, 5*time.Minute); err != nil {
		logger.Error("httpapi: failed to cache compiled statement: %v", err)
	}

	return sqlText, result.Parameters, nil
}
