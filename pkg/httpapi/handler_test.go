package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chqlbuilder/chqlbuilder/pkg/config"
	"github.com/chqlbuilder/chqlbuilder/pkg/sourceregistry"
)

func newTestRegistry() *sourceregistry.Registry {
	return sourceregistry.New(&config.Config{
		Sources: map[string]config.SourceConfig{
			"analytics": {DSN: "clickhouse://localhost:9000/default"},
		},
	})
}

func TestNewHandler(t *testing.T) {
	handler := NewHandler(newTestRegistry())
	if handler == nil {
		t.Fatal("expected non-nil handler")
	}
}

func TestHandleHealthAlwaysNoContent(t *testing.T) {
	handler := NewHandler(newTestRegistry())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.HandleHealth(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandleHealthVerifyUnknownSource(t *testing.T) {
	handler := NewHandler(newTestRegistry())

	req := httptest.NewRequest(http.MethodGet, "/health?verify=1&source=ghost", nil)
	rec := httptest.NewRecorder()

	handler.HandleHealth(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleHealthVerifyUnreachableSource(t *testing.T) {
	handler := NewHandler(newTestRegistry())

	req := httptest.NewRequest(http.MethodGet, "/health?verify=1&source=analytics", nil)
	rec := httptest.NewRecorder()

	handler.HandleHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for a source that cannot connect, got %d", rec.Code)
	}
}

func TestLookupSourceNotFound(t *testing.T) {
	handler := NewHandler(newTestRegistry())

	rec := httptest.NewRecorder()
	source, ok := handler.lookupSource(rec, "does-not-exist")
	if ok || source != nil {
		t.Fatal("expected lookup to fail for an unconfigured source")
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false in error body")
	}
	if resp.Error == nil || resp.Error.Code != "source_not_found" {
		t.Errorf("expected source_not_found error code, got %+v", resp.Error)
	}
}

func TestLookupSourceFound(t *testing.T) {
	handler := NewHandler(newTestRegistry())

	rec := httptest.NewRecorder()
	source, ok := handler.lookupSource(rec, "analytics")
	if !ok || source == nil {
		t.Fatal("expected lookup to succeed for a configured source")
	}
	if source.Name != "analytics" {
		t.Errorf("expected source name analytics, got %q", source.Name)
	}
}
