package compiler

import (
	"fmt"

	"github.com/chqlbuilder/chqlbuilder/pkg/compileerr"
	"github.com/chqlbuilder/chqlbuilder/pkg/parambinder"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

// selectionExpression compiles one predicate tree into an Expr plus the
// joins its EXISTS sub-expressions need.
//
// origin selects one of two EXISTS compilation modes (see existsExpression):
// true at the top level of a row/aggregate's own selection, where EXISTS can
// become a correlated LEFT OUTER JOIN against the row's real "_origin"
// alias; false everywhere the predicate itself lives inside an already-
// joined derived table (nested EXISTS, order-by relation filters), where the
// join must instead fold into a boolean AND against the enclosing
// selection because there is no outer "_origin" row to correlate against
// across query boundaries.
func (c *Compiler) selectionExpression(expression queryrequest.Expression, existsIndex *int, origin bool, tableAlias string, table queryrequest.TableName) (sqlast.Expr, []sqlast.Join, error) {
	switch e := expression.(type) {
	case queryrequest.AndExpression:
		return c.reduceBoolExpression(e.Expressions, existsIndex, origin, tableAlias, table, sqlast.OpAnd, sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}})

	case queryrequest.OrExpression:
		return c.reduceBoolExpression(e.Expressions, existsIndex, origin, tableAlias, table, sqlast.OpOr, sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: false}})

	case queryrequest.NotExpression:
		expr, joins, err := c.selectionExpression(e.Expression, existsIndex, origin, tableAlias, table)
		if err != nil {
			return nil, nil, err
		}
		return &sqlast.UnaryOp{Op: sqlast.OpNot, Expr: expr}, joins, nil

	case queryrequest.UnaryComparisonExpression:
		col, err := c.comparisonColumn(tableAlias, e.Column)
		if err != nil {
			return nil, nil, err
		}
		switch e.Operator {
		case queryrequest.IsNull:
			return &sqlast.IsNullExpr{Expr: col}, nil, nil
		default:
			return nil, nil, compileerr.Internal("unknown unary comparison operator")
		}

	case queryrequest.BinaryComparisonExpression:
		left, err := c.comparisonColumn(tableAlias, e.Column)
		if err != nil {
			return nil, nil, err
		}

		var right sqlast.Expr
		switch v := e.Value.(type) {
		case queryrequest.ScalarValueComparison:
			right = c.binder.Bind(parambinder.ValueParam(v.Value, v.ValueType))
		case queryrequest.AnotherColumnComparison:
			return nil, nil, compileerr.RightHandColumnComparisonNotSupported(v.Column.Name)
		default:
			return nil, nil, compileerr.Internal("unknown comparison value variant")
		}

		op, err := binaryComparisonOperatorSQL(e.Operator)
		if err != nil {
			return nil, nil, err
		}

		return &sqlast.BinaryOp{Left: left, Op: op, Right: right}, nil, nil

	case queryrequest.BinaryArrayComparisonExpression:
		left, err := c.comparisonColumn(tableAlias, e.Column)
		if err != nil {
			return nil, nil, err
		}
		list := make([]sqlast.Expr, 0, len(e.Values))
		for _, v := range e.Values {
			list = append(list, c.binder.Bind(parambinder.ValueParam(v, e.ValueType)))
		}
		switch e.Operator {
		case queryrequest.In:
			return &sqlast.InList{Expr: left, List: list}, nil, nil
		default:
			return nil, nil, compileerr.Internal("unknown array comparison operator")
		}

	case queryrequest.ExistsExpression:
		return c.existsExpression(e, existsIndex, origin, tableAlias, table)

	default:
		return nil, nil, compileerr.Internal("unknown expression variant")
	}
}

// reduceBoolExpression folds a list of children with the given operator,
// returning the identity value for an empty list, and wrapping the folded
// result in parentheses when it would otherwise collide with its own parent
// operator during rendering (e.g. an Or nested directly inside an And).
func (c *Compiler) reduceBoolExpression(children []queryrequest.Expression, existsIndex *int, origin bool, tableAlias string, table queryrequest.TableName, op sqlast.BinaryOperator, identity sqlast.Expr) (sqlast.Expr, []sqlast.Join, error) {
	if len(children) == 0 {
		return identity, nil, nil
	}

	var expr sqlast.Expr
	var joins []sqlast.Join
	for _, child := range children {
		childExpr, childJoins, err := c.selectionExpression(child, existsIndex, origin, tableAlias, table)
		if err != nil {
			return nil, nil, err
		}
		joins = append(joins, childJoins...)
		if expr == nil {
			expr = childExpr
		} else {
			expr = &sqlast.BinaryOp{Left: expr, Op: op, Right: childExpr}
		}
	}

	if bop, ok := expr.(*sqlast.BinaryOp); ok && bop.Op == op {
		expr = &sqlast.Nested{Expr: expr}
	}

	return expr, joins, nil
}

func binaryComparisonOperatorSQL(op queryrequest.BinaryComparisonOperator) (sqlast.BinaryOperator, error) {
	switch op {
	case queryrequest.LessThan:
		return sqlast.OpLt, nil
	case queryrequest.LessThanOrEqual:
		return sqlast.OpLtEq, nil
	case queryrequest.Equal:
		return sqlast.OpEq, nil
	case queryrequest.GreaterThan:
		return sqlast.OpGt, nil
	case queryrequest.GreaterThanOrEqual:
		return sqlast.OpGtEq, nil
	default:
		return 0, compileerr.Internal("unknown binary comparison operator")
	}
}

// comparisonColumn resolves a predicate's left-hand column reference.
// Traversal paths aren't supported: a comparison can only reach columns of
// the table the predicate is attached to.
func (c *Compiler) comparisonColumn(tableAlias string, column queryrequest.ComparisonColumn) (sqlast.Expr, error) {
	if len(column.Path) > 0 {
		return nil, compileerr.UnsupportedColumnComparisonPath(column.Path)
	}
	return sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(tableAlias), sqlast.Quoted(column.Name)}}, nil
}

// existsInTableSelectExpr builds the target table, the join/select
// correlation predicate, and (for a RelatedTable) the set of target columns
// needed to de-duplicate the EXISTS sub-query, shared between both
// compilation modes of existsExpression.
func (c *Compiler) existsInTableSelectExpr(inTable queryrequest.ExistsInTable, joinAlias, tableAlias string, table queryrequest.TableName) (queryrequest.TableName, sqlast.Expr, error) {
	switch in := inTable.(type) {
	case queryrequest.UnrelatedTable:
		return in.Table, sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}}, nil

	case queryrequest.RelatedTable:
		relationship, err := c.tableRelationship(table, in.Relationship)
		if err != nil {
			return nil, nil, err
		}

		var eqExpr sqlast.Expr
		for pair := relationship.ColumnMapping.Oldest(); pair != nil; pair = pair.Next() {
			sourceCol, targetCol := pair.Key, pair.Value
			left := sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(joinAlias), sqlast.Quoted(targetCol)}}
			right := sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(tableAlias), sqlast.Quoted(sourceCol)}}
			eq := &sqlast.BinaryOp{Left: left, Op: sqlast.OpEq, Right: right}
			eqExpr = andReduce(eqExpr, eq)
		}
		if eqExpr == nil {
			eqExpr = sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}}
		} else if bop, ok := eqExpr.(*sqlast.BinaryOp); ok && bop.Op == sqlast.OpAnd {
			eqExpr = &sqlast.Nested{Expr: eqExpr}
		}
		return relationship.TargetTable, eqExpr, nil

	default:
		return nil, nil, compileerr.Internal("unknown exists target variant")
	}
}

// existsExpression compiles an EXISTS predicate in one of two modes.
//
// origin=true (the predicate is the row/aggregate's own top-level
// selection): the match is pulled out into a correlated derived-table LEFT
// OUTER JOIN and the predicate becomes `<join>._exists = true` (unrelated
// table) or a column-mapping equality against the joined row (related
// table) — this lets one EXISTS serve every row in the partition via a
// single extra join instead of a per-row correlated sub-query.
//
// origin=false (the predicate lives inside an already-joined derived table,
// e.g. nested under another EXISTS or an order-by relation filter): there is
// no stable "_origin" alias left to correlate a LEFT OUTER JOIN against
// across the query boundary, so the target table is joined directly into
// the current FROM clause and the predicate folds into `<correlation> AND
// <inner selection>`.
func (c *Compiler) existsExpression(e queryrequest.ExistsExpression, existsIndex *int, origin bool, tableAlias string, table queryrequest.TableName) (sqlast.Expr, []sqlast.Join, error) {
	if origin {
		joinAlias := fmt.Sprintf("_exists_%d", *existsIndex)
		*existsIndex++

		targetTable, correlation, err := c.existsInTableSelectExpr(e.InTable, joinAlias, tableAlias, table)
		if err != nil {
			return nil, nil, err
		}

		var selectExpr sqlast.Expr
		var projection []sqlast.SelectItem
		var groupBy []sqlast.Expr
		var limit sqlast.Expr

		switch in := e.InTable.(type) {
		case queryrequest.UnrelatedTable:
			selectExpr = &sqlast.BinaryOp{
				Left:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(joinAlias), sqlast.Quoted("_exists")}},
				Op:    sqlast.OpEq,
				Right: sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}},
			}
			projection = []sqlast.SelectItem{
				sqlast.ExprWithAlias{Expr: sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}}, Alias: sqlast.Quoted("_exists")},
			}
			limit = sqlast.ValueExpr{Value: sqlast.NumberValue{Literal: "1"}}

		case queryrequest.RelatedTable:
			relationship, rerr := c.tableRelationship(table, in.Relationship)
			if rerr != nil {
				return nil, nil, rerr
			}
			selectExpr = correlation
			for pair := relationship.ColumnMapping.Oldest(); pair != nil; pair = pair.Next() {
				targetCol := pair.Value
				projection = append(projection, sqlast.ExprWithAlias{
					Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(joinAlias), sqlast.Quoted(targetCol)}},
					Alias: sqlast.Quoted(targetCol),
				})
				groupBy = append(groupBy, sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(joinAlias), sqlast.Quoted(targetCol)}})
			}
		}

		subExistsIndex := 0
		innerSelection, innerJoins, err := c.selectionExpression(e.Selection, &subExistsIndex, false, joinAlias, targetTable)
		if err != nil {
			return nil, nil, err
		}

		from := []sqlast.TableWithJoins{
			{
				Relation: sqlast.Table{Name: tableObjectName(targetTable), Alias: ptr(sqlast.Quoted(joinAlias))},
				Joins:    innerJoins,
			},
		}

		subquery := sqlast.NewQuery().
			WithProjection(projection).
			WithFrom(from).
			WithSelection(innerSelection).
			WithGroupBy(groupBy).
			WithLimit(limit)

		join := sqlast.Join{
			Relation: sqlast.Derived{Subquery: subquery, Alias: ptr(sqlast.Quoted(joinAlias))},
			Operator: sqlast.LeftOuterJoin{Constraint: sqlast.OnConstraint{Expr: correlation}},
		}

		return selectExpr, []sqlast.Join{join}, nil
	}

	joinAlias := fmt.Sprintf("%s.%d", tableAlias, *existsIndex)
	*existsIndex++

	targetTable, correlation, err := c.existsInTableSelectExpr(e.InTable, joinAlias, tableAlias, table)
	if err != nil {
		return nil, nil, err
	}

	innerSelection, innerJoins, err := c.selectionExpression(e.Selection, existsIndex, false, joinAlias, targetTable)
	if err != nil {
		return nil, nil, err
	}

	join := sqlast.Join{
		Relation: sqlast.Table{Name: tableObjectName(targetTable), Alias: ptr(sqlast.Quoted(joinAlias))},
		Operator: sqlast.LeftOuterJoin{Constraint: sqlast.OnConstraint{Expr: correlation}},
	}

	joins := append([]sqlast.Join{join}, innerJoins...)

	return &sqlast.BinaryOp{Left: correlation, Op: sqlast.OpAnd, Right: innerSelection}, joins, nil
}
