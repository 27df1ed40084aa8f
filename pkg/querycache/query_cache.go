package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/parambinder"
)

// CompiledStatementKey represents the components that determine whether two
// compile requests would produce the same SQL statement. Two requests that
// hash to the same key are guaranteed to compile to byte-identical SQL,
// since the compiler is pure (see pkg/compiler).
type CompiledStatementKey struct {
	Source     string `json:"source"`
	Request    string `json:"request"`
	BindParams bool   `json:"bind_params"`
}

// BuildCompiledStatementCacheKey builds a cache key for a compiled
// statement. requestJSON should be the canonical JSON encoding of the
// resolved request (post alias-resolution), so that two requests differing
// only in alias spelling still collide on the same physical compile.
func BuildCompiledStatementCacheKey(source string, requestJSON []byte, bindParams bool) string {
	key := CompiledStatementKey{
		Source:     source,
		Request:    string(requestJSON),
		BindParams: bindParams,
	}

	data, err := json.Marshal(key)
	if err != nil {
		return hashString(fmt.Sprintf("%s_%s_%v", source, requestJSON, bindParams))
	}

	return hashString(string(data))
}

// hashString computes the SHA256 hash of a string.
func hashString(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// CachedStatement is what gets stored against a CompiledStatementKey: the
// rendered SQL text plus the bound parameters that go with it, in binding
// order. It is looked up with chclient.Client.QueryText, which takes
// already-rendered SQL and skips the compiler and sqlast renderer entirely.
type CachedStatement struct {
	SQL    string       `json:"sql"`
	Params []ParamEntry `json:"params,omitempty"`
}

// ParamEntry is one named parameter in binding order. orderedmap.OrderedMap
// itself marshals as a JSON object, which loses the iteration order a
// query's @<name> placeholders were bound in; a plain slice preserves it.
type ParamEntry struct {
	Name  string           `json:"name"`
	Param parambinder.Param `json:"param"`
}

// EncodeParams flattens a compiler parameter map into its cache
// representation, preserving binding order.
func EncodeParams(parameters *orderedmap.OrderedMap[string, parambinder.Param]) []ParamEntry {
	if parameters == nil {
		return nil
	}
	entries := make([]ParamEntry, 0, parameters.Len())
	for pair := parameters.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, ParamEntry{Name: pair.Key, Param: pair.Value})
	}
	return entries
}

// DecodeParams rebuilds a compiler parameter map from its cache
// representation.
func DecodeParams(entries []ParamEntry) *orderedmap.OrderedMap[string, parambinder.Param] {
	parameters := orderedmap.New[string, parambinder.Param]()
	for _, entry := range entries {
		parameters.Set(entry.Name, entry.Param)
	}
	return parameters
}

// GetCompiledStatementCacheKey returns the formatted cache key for storing
// or retrieving a compiled statement by its hash.
func GetCompiledStatementCacheKey(hash string) string {
	return fmt.Sprintf("compiled_stmt:%s", hash)
}

// InvalidateCacheForSource removes every cached compiled statement for a
// source. Called when a source's alias map or connection config changes,
// since either can change what a request compiles to.
func InvalidateCacheForSource(ctx context.Context, source string) error {
	cache := GetDefaultCache()
	pattern := fmt.Sprintf("compiled_stmt:*%s*", strings.ToLower(source))
	return cache.DeleteByPattern(ctx, pattern)
}
