package compileerr

import (
	"errors"
	"testing"

	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
)

func TestTableMissingMessage(t *testing.T) {
	err := TableMissing(queryrequest.TableName{"db", "users"})
	if err.Kind != KindTableMissing {
		t.Fatalf("expected KindTableMissing, got %v", err.Kind)
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty message")
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	a := RelationshipMissingInTable("orders", queryrequest.TableName{"db", "users"})
	b := RelationshipMissingInTable("posts", queryrequest.TableName{"db", "other"})

	if !errors.Is(a, b) {
		t.Fatal("expected errors with the same kind to match via errors.Is")
	}

	c := AliasUnknown("foo")
	if errors.Is(a, c) {
		t.Fatal("expected errors with different kinds not to match")
	}
}

func TestInternalWrapUnwraps(t *testing.T) {
	cause := errors.New("overflow")
	err := InternalWrap("limit+offset overflows u64", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected InternalWrap to preserve the wrapped cause")
	}
	if err.Kind != KindInternal {
		t.Fatalf("expected KindInternal, got %v", err.Kind)
	}
}
