package typecast

import (
	"testing"

	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
)

func TestCastStringKnownMappings(t *testing.T) {
	cases := map[queryrequest.ScalarType]string{
		queryrequest.Uuid:       "Nullable(UUID)",
		queryrequest.Json:       "Nullable(JSON)",
		queryrequest.DateTime64: "Nullable(DateTime64(9))",
		queryrequest.Decimal:    "Nullable(String)",
		queryrequest.Complex:    "Nullable(String)",
		queryrequest.Int64:      "Nullable(Int64)",
	}
	for scalarType, want := range cases {
		if got := CastString(scalarType); got != want {
			t.Errorf("CastString(%v) = %q, want %q", scalarType, got, want)
		}
	}
}

func TestIsNumericAndIsString(t *testing.T) {
	if !IsNumeric(queryrequest.Int64) {
		t.Error("expected Int64 to be numeric")
	}
	if IsNumeric(queryrequest.String) {
		t.Error("expected String not to be numeric")
	}
	if !IsString(queryrequest.String) {
		t.Error("expected String to be a string type")
	}
	if IsString(queryrequest.Uuid) {
		t.Error("expected Uuid not to be a string type")
	}
}
