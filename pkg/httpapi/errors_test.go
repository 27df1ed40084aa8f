package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chqlbuilder/chqlbuilder/pkg/compileerr"
)

func TestWriteCompileErrorMapsKindToCode(t *testing.T) {
	rec := httptest.NewRecorder()
	compileErr := &compileerr.Error{
		Kind:    compileerr.KindAliasUnknown,
		Message: "alias \"foo\" has no physical mapping",
	}

	writeCompileError(rec, compileErr)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != compileerr.KindAliasUnknown.String() {
		t.Errorf("expected error code %q, got %+v", compileerr.KindAliasUnknown.String(), resp.Error)
	}
}

func TestWriteCompileErrorFallsBackToInternal(t *testing.T) {
	rec := httptest.NewRecorder()

	writeCompileError(rec, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != "internal_error" {
		t.Errorf("expected internal_error code, got %+v", resp.Error)
	}
}
