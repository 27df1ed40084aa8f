package sqlast

import (
	"strings"
	"testing"
)

func TestRenderSimpleSelect(t *testing.T) {
	q := NewQuery().
		WithProjection([]SelectItem{
			ExprWithAlias{
				Expr:  Identifier{Ident: Quoted("id")},
				Alias: Quoted("id"),
			},
		}).
		WithFrom([]TableWithJoins{
			{
				Relation: Table{
					Name:  ObjectName{Quoted("db"), Quoted("users")},
					Alias: ptr(Quoted("_origin")),
				},
			},
		})

	sql := (&Statement{Query: q}).Render()
	if !strings.Contains(sql, `SELECT "id" AS "id"`) {
		t.Fatalf("unexpected SQL: %s", sql)
	}
	if !strings.Contains(sql, `FROM "db"."users" AS "_origin"`) {
		t.Fatalf("unexpected SQL: %s", sql)
	}
}

func TestRenderBinaryOpAndInList(t *testing.T) {
	expr := &BinaryOp{
		Left: CompoundIdentifier{Parts: []Ident{Quoted("_origin"), Quoted("id")}},
		Op:   OpEq,
		Right: &InList{
			Expr: CompoundIdentifier{Parts: []Ident{Quoted("_origin"), Quoted("status")}},
			List: []Expr{ValueExpr{Value: NumberLiteral(1)}, ValueExpr{Value: NumberLiteral(2)}},
		},
	}
	var b strings.Builder
	renderExpr(expr, &b)
	got := b.String()
	want := `"_origin"."id" = "_origin"."status" IN (1, 2)`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRenderLeftOuterJoinOn(t *testing.T) {
	joinExpr := &BinaryOp{
		Left:  CompoundIdentifier{Parts: []Ident{Quoted("_origin"), Quoted("id")}},
		Op:    OpEq,
		Right: CompoundIdentifier{Parts: []Ident{Quoted("_rel.orders"), Quoted("_selection.user_id")}},
	}
	twj := TableWithJoins{
		Relation: Table{Name: ObjectName{Quoted("db"), Quoted("users")}, Alias: ptr(Quoted("_origin"))},
		Joins: []Join{
			{
				Relation: Table{Name: ObjectName{Quoted("db"), Quoted("orders")}, Alias: ptr(Quoted("_rel.orders"))},
				Operator: LeftOuterJoin{Constraint: OnConstraint{Expr: joinExpr}},
			},
		},
	}
	var b strings.Builder
	renderTableWithJoins(twj, &b)
	got := b.String()
	if !strings.Contains(got, "LEFT OUTER JOIN") || !strings.Contains(got, " ON ") {
		t.Fatalf("unexpected join render: %s", got)
	}
}

func TestRenderPlaceholderValue(t *testing.T) {
	var b strings.Builder
	renderValue(PlaceholderValue{Name: "__placeholder__0"}, &b)
	if b.String() != "@__placeholder__0" {
		t.Fatalf("unexpected placeholder render: %s", b.String())
	}
}

func ptr[T any](v T) *T { return &v }
