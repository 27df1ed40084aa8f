package chclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/parambinder"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Client{db: db, config: Config{Name: "test"}}, mock
}

func simpleStatement() *sqlast.Statement {
	return &sqlast.Statement{Query: sqlast.NewQuery().WithProjection([]sqlast.SelectItem{
		sqlast.UnnamedExpr{Expr: sqlast.ValueExpr{Value: sqlast.NumberValue{Literal: "1"}}},
	})}
}

func TestQueryScansEnvelopeColumn(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"query"}).AddRow(`{"rows":[]}`))

	result, err := client.Query(context.Background(), simpleStatement(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != `{"rows":[]}` {
		t.Fatalf("unexpected envelope: %s", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryBindsNamedParameters(t *testing.T) {
	client, mock := newMockClient(t)

	parameters := orderedmap.New[string, parambinder.Param]()
	parameters.Set("__placeholder__0", parambinder.ValueParam("alice", queryrequest.String))
	parameters.Set("__placeholder__1", parambinder.NumberParam(json.Number("42")))

	mock.ExpectQuery(`SELECT 1`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"query"}).AddRow(`{}`))

	_, err := client.Query(context.Background(), simpleStatement(), parameters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryNoRowsReturnsErrNoRows(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"query"}))

	_, err := client.Query(context.Background(), simpleStatement(), nil)
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestQueryAgainstClosedClientFails(t *testing.T) {
	client, _ := newMockClient(t)
	client.db = nil

	_, err := client.Query(context.Background(), simpleStatement(), nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestRawReturnsOrderedRows(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery(`SELECT id, name FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "alice"))

	rows, err := client.Raw(context.Background(), "SELECT id, name FROM users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	var keys []string
	for pair := rows[0].Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if keys[0] != "id" || keys[1] != "name" {
		t.Fatalf("expected column order id,name, got %v", keys)
	}
}

func TestExplainWrapsStatementAndCollectsLines(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery(`EXPLAIN SELECT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"explain"}).
			AddRow("Expression").
			AddRow("  ReadFromStorage"))

	lines, explainQuery, err := client.Explain(context.Background(), simpleStatement())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explainQuery != "EXPLAIN "+simpleStatement().Render() {
		t.Fatalf("unexpected explain query: %s", explainQuery)
	}
	if len(lines) != 2 || lines[0] != "Expression" {
		t.Fatalf("unexpected explain lines: %v", lines)
	}
}

func TestHealthCheckAgainstClosedClientFails(t *testing.T) {
	client, _ := newMockClient(t)
	client.db = nil

	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected an error for a closed client")
	}
}

func TestNativeValueConvertsNumbersAndPassesThroughOthers(t *testing.T) {
	v, err := nativeValue(parambinder.NumberParam(json.Number("42")))
	if err != nil || v != int64(42) {
		t.Fatalf("expected int64(42), got %v, %v", v, err)
	}

	v, err = nativeValue(parambinder.NumberParam(json.Number("3.5")))
	if err != nil || v != 3.5 {
		t.Fatalf("expected 3.5, got %v, %v", v, err)
	}

	v, err = nativeValue(parambinder.ValueParam("alice", queryrequest.String))
	if err != nil || v != "alice" {
		t.Fatalf("expected alice, got %v, %v", v, err)
	}

	v, err = nativeValue(parambinder.ValueParam(nil, queryrequest.String))
	if err != nil || v != nil {
		t.Fatalf("expected nil, got %v, %v", v, err)
	}
}
