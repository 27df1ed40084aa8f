package aliasresolver

import (
	"testing"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/config"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
)

func TestResolveTablePassesThroughWhenUnaliased(t *testing.T) {
	r := New(config.SourceConfig{})
	got := r.ResolveTable(queryrequest.TableName{"db", "users"})
	if !got.Equal(queryrequest.TableName{"db", "users"}) {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestResolveTableRewritesConfiguredAlias(t *testing.T) {
	r := New(config.SourceConfig{
		TableAliases: map[string]string{"customers": "db.users"},
	})
	got := r.ResolveTable(queryrequest.TableName{"customers"})
	if !got.Equal(queryrequest.TableName{"db", "users"}) {
		t.Fatalf("expected db.users, got %v", got)
	}
}

func TestResolveColumnStrictModeRejectsUnknown(t *testing.T) {
	r := New(config.SourceConfig{
		ColumnAliases: map[string]map[string]string{
			"db.users": {"full_name": "name"},
		},
	})
	if _, err := r.ResolveColumn(queryrequest.TableName{"db", "users"}, "unknown_field"); err == nil {
		t.Fatal("expected AliasUnknown error")
	}
	got, err := r.ResolveColumn(queryrequest.TableName{"db", "users"}, "full_name")
	if err != nil || got != "name" {
		t.Fatalf("expected name, nil, got %q, %v", got, err)
	}
}

func TestResolveColumnPassthroughWhenTableHasNoDictionary(t *testing.T) {
	r := New(config.SourceConfig{})
	got, err := r.ResolveColumn(queryrequest.TableName{"db", "users"}, "anything")
	if err != nil || got != "anything" {
		t.Fatalf("expected passthrough, got %q, %v", got, err)
	}
}

func TestResolveRewritesFieldsAndSelection(t *testing.T) {
	r := New(config.SourceConfig{
		TableAliases: map[string]string{"customers": "db.users"},
		ColumnAliases: map[string]map[string]string{
			"db.users": {"full_name": "name", "id": "id"},
		},
	})

	fields := orderedmap.New[string, queryrequest.Field]()
	fields.Set("name", queryrequest.ColumnField{Column: "full_name", ColumnType: queryrequest.String})

	req := &queryrequest.Request{
		Table: queryrequest.TableName{"customers"},
		Query: &queryrequest.QueryNode{
			Fields: fields,
			Selection: queryrequest.BinaryComparisonExpression{
				Column:   queryrequest.ComparisonColumn{Name: "id"},
				Operator: queryrequest.Equal,
				Value:    queryrequest.ScalarValueComparison{Value: float64(1), ValueType: queryrequest.Int64},
			},
		},
	}

	resolved, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolved.Table.Equal(queryrequest.TableName{"db", "users"}) {
		t.Fatalf("expected resolved table db.users, got %v", resolved.Table)
	}
	field, _ := resolved.Query.Fields.Get("name")
	col := field.(queryrequest.ColumnField)
	if col.Column != "name" {
		t.Fatalf("expected column rewritten to name, got %q", col.Column)
	}
}

func TestResolveRewritesNestedRelationshipFieldColumns(t *testing.T) {
	r := New(config.SourceConfig{
		ColumnAliases: map[string]map[string]string{
			"db.orders": {"order_id": "id", "customer_id": "customer_id"},
		},
	})

	columnMapping := orderedmap.New[string, string]()
	columnMapping.Set("id", "customer_id")
	relationships := orderedmap.New[string, queryrequest.Relationship]()
	relationships.Set("orders", queryrequest.Relationship{
		SourceTable:   queryrequest.TableName{"db", "customers"},
		TargetTable:   queryrequest.TableName{"db", "orders"},
		ColumnMapping: columnMapping,
	})

	nestedFields := orderedmap.New[string, queryrequest.Field]()
	nestedFields.Set("id", queryrequest.ColumnField{Column: "order_id", ColumnType: queryrequest.Int64})

	fields := orderedmap.New[string, queryrequest.Field]()
	fields.Set("orders", queryrequest.RelationshipField{
		Relationship: "orders",
		Query:        &queryrequest.QueryNode{Fields: nestedFields},
	})

	req := &queryrequest.Request{
		Table: queryrequest.TableName{"db", "customers"},
		Query: &queryrequest.QueryNode{Fields: fields},
		TableRelationships: []queryrequest.TableRelationships{
			{SourceTable: queryrequest.TableName{"db", "customers"}, Relationships: relationships},
		},
	}

	resolved, err := r.Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ordersField, _ := resolved.Query.Fields.Get("orders")
	relField := ordersField.(queryrequest.RelationshipField)
	nested, _ := relField.Query.Fields.Get("id")
	nestedCol := nested.(queryrequest.ColumnField)
	if nestedCol.Column != "id" {
		t.Fatalf("expected nested column rewritten to id against the target table, got %q", nestedCol.Column)
	}
}

func TestResolveUnknownRelationshipFails(t *testing.T) {
	r := New(config.SourceConfig{})

	fields := orderedmap.New[string, queryrequest.Field]()
	fields.Set("orders", queryrequest.RelationshipField{
		Relationship: "ghost",
		Query:        &queryrequest.QueryNode{},
	})

	req := &queryrequest.Request{
		Table: queryrequest.TableName{"db", "customers"},
		Query: &queryrequest.QueryNode{Fields: fields},
	}

	if _, err := r.Resolve(req); err == nil {
		t.Fatal("expected an error for an undeclared relationship")
	}
}
