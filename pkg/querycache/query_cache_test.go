package querycache

import (
	"context"
	"testing"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/parambinder"
)

func TestBuildCompiledStatementCacheKey(t *testing.T) {
	reqA := []byte(`{"table":["db","users"]}`)

	key1 := BuildCompiledStatementCacheKey("analytics", reqA, true)
	key2 := BuildCompiledStatementCacheKey("analytics", reqA, true)

	if key1 != key2 {
		t.Errorf("expected same cache keys for identical input, got %s and %s", key1, key2)
	}

	// Different bind_params should produce a different key.
	key3 := BuildCompiledStatementCacheKey("analytics", reqA, false)
	if key1 == key3 {
		t.Errorf("expected different cache keys when bind_params differs")
	}

	// Different source should produce a different key.
	key4 := BuildCompiledStatementCacheKey("other", reqA, true)
	if key1 == key4 {
		t.Errorf("expected different cache keys for different sources")
	}
}

func TestGetCompiledStatementCacheKey(t *testing.T) {
	hash := "abc123"
	key := GetCompiledStatementCacheKey(hash)

	expected := "compiled_stmt:abc123"
	if key != expected {
		t.Errorf("expected %s, got %s", expected, key)
	}
}

func TestCachedStatementIntegration(t *testing.T) {
	UseMemory(&Options{
		DefaultTTL: time.Minute,
		MaxSize:    100,
	})

	ctx := context.Background()

	reqJSON := []byte(`{"table":["db","orders"]}`)
	hash := BuildCompiledStatementCacheKey("analytics", reqJSON, true)
	cacheKey := GetCompiledStatementCacheKey(hash)

	stmt := CachedStatement{
		SQL:    `SELECT toJSONString(cast(_query."query", 'Map(Nothing, Nothing)')) AS "query" FROM (SELECT map() AS "query") AS _query`,
		Params: []ParamEntry{{Name: "p0", Param: parambinder.NumberParam("1")}},
	}

	if err := GetDefaultCache().Set(ctx, cacheKey, stmt, time.Minute); err != nil {
		t.Fatalf("failed to set cache: %v", err)
	}

	var cached CachedStatement
	if err := GetDefaultCache().Get(ctx, cacheKey, &cached); err != nil {
		t.Fatalf("failed to get from cache: %v", err)
	}
	if cached.SQL != stmt.SQL {
		t.Errorf("expected SQL %q, got %q", stmt.SQL, cached.SQL)
	}

	var missed CachedStatement
	if err := GetDefaultCache().Get(ctx, GetCompiledStatementCacheKey("nonexistent"), &missed); err == nil {
		t.Errorf("expected error for cache miss, got nil")
	}
}

func TestEncodeDecodeParamsRoundTrip(t *testing.T) {
	parameters := orderedmap.New[string, parambinder.Param]()
	parameters.Set("p0", parambinder.NumberParam("1"))
	parameters.Set("p1", parambinder.Param{Value: "alice"})

	entries := EncodeParams(parameters)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "p0" || entries[1].Name != "p1" {
		t.Errorf("expected binding order p0, p1, got %s, %s", entries[0].Name, entries[1].Name)
	}

	decoded := DecodeParams(entries)
	if decoded.Len() != 2 {
		t.Fatalf("expected 2 decoded params, got %d", decoded.Len())
	}
	first, ok := decoded.Get("p0")
	if !ok || !first.IsNumber {
		t.Errorf("expected p0 to round-trip as a number param")
	}
	second, ok := decoded.Get("p1")
	if !ok || second.Value != "alice" {
		t.Errorf("expected p1 to round-trip with value alice, got %+v", second)
	}
}

func TestEncodeParamsNil(t *testing.T) {
	if entries := EncodeParams(nil); entries != nil {
		t.Errorf("expected nil entries for nil parameters, got %v", entries)
	}
}

func TestHashStringConsistency(t *testing.T) {
	h1 := hashString("test string")
	h2 := hashString("test string")
	h3 := hashString("different string")

	if h1 != h2 {
		t.Errorf("expected same hash for identical inputs")
	}
	if h1 == h3 {
		t.Errorf("expected different hash for different inputs")
	}
	if len(h1) != 64 {
		t.Errorf("expected hash length of 64, got %d", len(h1))
	}
}
