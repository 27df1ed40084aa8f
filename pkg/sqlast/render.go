package sqlast

import (
	"strconv"
	"strings"
)

// Render renders the statement to a single ClickHouse SQL string.
func (s *Statement) Render() string {
	var b strings.Builder
	s.Query.render(&b)
	return b.String()
}

func (i Ident) render(b *strings.Builder) {
	if i.Quoted {
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(i.Name, `"`, `""`))
		b.WriteByte('"')
		return
	}
	b.WriteString(i.Name)
}

func (o ObjectName) render(b *strings.Builder) {
	for i, part := range o {
		if i > 0 {
			b.WriteByte('.')
		}
		part.render(b)
	}
}

func renderExpr(e Expr, b *strings.Builder) {
	switch v := e.(type) {
	case Identifier:
		v.Ident.render(b)
	case CompoundIdentifier:
		for i, part := range v.Parts {
			if i > 0 {
				b.WriteByte('.')
			}
			part.render(b)
		}
	case ValueExpr:
		renderValue(v.Value, b)
	case *Function:
		renderFunction(v, b)
	case *BinaryOp:
		renderExpr(v.Left, b)
		b.WriteByte(' ')
		b.WriteString(binaryOperatorSQL(v.Op))
		b.WriteByte(' ')
		renderExpr(v.Right, b)
	case *UnaryOp:
		b.WriteString(unaryOperatorSQL(v.Op))
		b.WriteByte(' ')
		renderExpr(v.Expr, b)
	case *Nested:
		b.WriteByte('(')
		renderExpr(v.Expr, b)
		b.WriteByte(')')
	case *IsNullExpr:
		renderExpr(v.Expr, b)
		b.WriteString(" IS NULL")
	case *InList:
		renderExpr(v.Expr, b)
		b.WriteString(" IN (")
		for i, item := range v.List {
			if i > 0 {
				b.WriteString(", ")
			}
			renderExpr(item, b)
		}
		b.WriteByte(')')
	default:
		b.WriteString("/* unsupported expr */")
	}
}

func binaryOperatorSQL(op BinaryOperator) string {
	switch op {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpEq:
		return "="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	default:
		return "?"
	}
}

func unaryOperatorSQL(op UnaryOperator) string {
	switch op {
	case OpNot:
		return "NOT"
	default:
		return "?"
	}
}

func renderValue(v Value, b *strings.Builder) {
	switch val := v.(type) {
	case NumberValue:
		b.WriteString(val.Literal)
	case SingleQuotedStringValue:
		b.WriteByte('\'')
		b.WriteString(strings.ReplaceAll(val.Text, `'`, `''`))
		b.WriteByte('\'')
	case BooleanValue:
		if val.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case NullValue:
		b.WriteString("NULL")
	case PlaceholderValue:
		// clickhouse-go/v2's database/sql driver binds named parameters
		// written as @name against sql.Named(name, value) args.
		b.WriteByte('@')
		b.WriteString(val.Name)
	default:
		b.WriteString("NULL")
	}
}

func renderFunction(f *Function, b *strings.Builder) {
	f.Name.render(b)
	b.WriteByte('(')
	if f.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, arg := range f.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if arg.Wildcard {
			b.WriteByte('*')
			continue
		}
		renderExpr(arg.Expr, b)
	}
	b.WriteByte(')')
	if f.Over != nil {
		b.WriteString(" OVER (")
		wrote := false
		if len(f.Over.PartitionBy) > 0 {
			b.WriteString("PARTITION BY ")
			for i, e := range f.Over.PartitionBy {
				if i > 0 {
					b.WriteString(", ")
				}
				renderExpr(e, b)
			}
			wrote = true
		}
		if len(f.Over.OrderBy) > 0 {
			if wrote {
				b.WriteByte(' ')
			}
			b.WriteString("ORDER BY ")
			renderOrderByList(f.Over.OrderBy, b)
		}
		b.WriteByte(')')
	}
}

func renderOrderByList(items []OrderByExpr, b *strings.Builder) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		renderExpr(item.Expr, b)
		if item.Asc != nil {
			if *item.Asc {
				b.WriteString(" ASC")
			} else {
				b.WriteString(" DESC")
			}
		}
		if item.NullsFirst != nil {
			if *item.NullsFirst {
				b.WriteString(" NULLS FIRST")
			} else {
				b.WriteString(" NULLS LAST")
			}
		}
	}
}

func renderSelectItem(item SelectItem, b *strings.Builder) {
	switch v := item.(type) {
	case UnnamedExpr:
		renderExpr(v.Expr, b)
	case ExprWithAlias:
		renderExpr(v.Expr, b)
		b.WriteString(" AS ")
		v.Alias.render(b)
	}
}

func renderTableFactor(t TableFactor, b *strings.Builder) {
	switch v := t.(type) {
	case Table:
		v.Name.render(b)
		if v.Alias != nil {
			b.WriteString(" AS ")
			v.Alias.render(b)
		}
	case Derived:
		b.WriteByte('(')
		v.Subquery.render(b)
		b.WriteByte(')')
		if v.Alias != nil {
			b.WriteString(" AS ")
			v.Alias.render(b)
		}
	case TableFunctionRelation:
		renderFunction(v.Function, b)
		if v.Alias != nil {
			b.WriteString(" AS ")
			v.Alias.render(b)
		}
	}
}

func renderJoinOperator(op JoinOperator, b *strings.Builder) string {
	switch v := op.(type) {
	case LeftOuterJoin:
		b.WriteString("LEFT OUTER JOIN ")
		return renderJoinConstraintSuffix(v.Constraint)
	case FullOuterJoin:
		b.WriteString("FULL OUTER JOIN ")
		return renderJoinConstraintSuffix(v.Constraint)
	case CrossJoin:
		b.WriteString("CROSS JOIN ")
		return ""
	default:
		return ""
	}
}

// renderJoinConstraintSuffix returns the constraint text to be appended
// after the joined relation has been rendered (ON/USING clauses follow the
// relation, not precede it).
func renderJoinConstraintSuffix(c JoinConstraint) string {
	var b strings.Builder
	switch v := c.(type) {
	case OnConstraint:
		b.WriteString(" ON ")
		renderExpr(v.Expr, &b)
	case UsingConstraint:
		b.WriteString(" USING (")
		for i, col := range v.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			col.render(&b)
		}
		b.WriteByte(')')
	}
	return b.String()
}

func renderTableWithJoins(t TableWithJoins, b *strings.Builder) {
	renderTableFactor(t.Relation, b)
	for _, join := range t.Joins {
		b.WriteByte(' ')
		suffix := renderJoinOperator(join.Operator, b)
		renderTableFactor(join.Relation, b)
		b.WriteString(suffix)
	}
}

func (q *Query) render(b *strings.Builder) {
	b.WriteString("SELECT ")
	for i, item := range q.Projection {
		if i > 0 {
			b.WriteString(", ")
		}
		renderSelectItem(item, b)
	}
	if len(q.From) > 0 {
		b.WriteString(" FROM ")
		for i, t := range q.From {
			if i > 0 {
				b.WriteString(", ")
			}
			renderTableWithJoins(t, b)
		}
	}
	if q.Selection != nil {
		b.WriteString(" WHERE ")
		renderExpr(q.Selection, b)
	}
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, e := range q.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			renderExpr(e, b)
		}
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		renderOrderByList(q.OrderBy, b)
	}
	if q.Limit != nil {
		b.WriteString(" LIMIT ")
		renderExpr(q.Limit, b)
	}
}

// Render renders this Query alone as a top-level statement string; useful
// in tests that exercise one sub-query builder in isolation.
func (q *Query) Render() string {
	var b strings.Builder
	q.render(&b)
	return b.String()
}

// NumberLiteral is a convenience constructor for an integer-valued Number.
func NumberLiteral(n int64) Value {
	return NumberValue{Literal: strconv.FormatInt(n, 10)}
}
