package compiler

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/compileerr"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

// rowsSubquery wraps rowSubquery, collecting one row per partition
// (join-column + foreach-column combination) into a groupArray of tuples,
// and applying the pagination predicate.
func (c *Compiler) rowsSubquery(table queryrequest.TableName, joinCols []string, fields *orderedmap.OrderedMap[string, queryrequest.Field], query *queryrequest.QueryNode, foreachColumns []string) (*sqlast.Query, error) {
	rowSub, err := c.rowSubquery(table, joinCols, fields, query, foreachColumns)
	if err != nil {
		return nil, err
	}

	columnExprs := make([]sqlast.Expr, 0, fields.Len())
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		columnExprs = append(columnExprs, sqlast.CompoundIdentifier{
			Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_projection." + pair.Key)},
		})
	}

	projection := make([]sqlast.SelectItem, 0, len(joinCols)+2+len(foreachColumns))
	for _, col := range joinCols {
		ident := sqlast.Quoted("_selection." + col)
		projection = append(projection, sqlast.ExprWithAlias{
			Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), ident}},
			Alias: ident,
		})
	}

	var rowsExpr sqlast.Expr
	if len(columnExprs) == 0 {
		rowsExpr = callFn("groupArray", callFn("map"))
	} else {
		rowsExpr = callFn("groupArray", callFn("tuple", columnExprs...))
	}
	projection = append(projection, sqlast.ExprWithAlias{Expr: rowsExpr, Alias: sqlast.Quoted("rows")})

	for _, col := range foreachColumns {
		projection = append(projection, sqlast.UnnamedExpr{
			Expr: sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_foreach." + col)}},
		})
	}

	from := []sqlast.TableWithJoins{{Relation: sqlast.Derived{Subquery: rowSub, Alias: ptr(sqlast.Quoted("_row"))}}}

	selection, err := c.limitOffsetExpression(query.Limit, query.Offset)
	if err != nil {
		return nil, err
	}

	groupBy := make([]sqlast.Expr, 0, len(joinCols)+len(foreachColumns))
	for _, col := range joinCols {
		groupBy = append(groupBy, sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_selection." + col)}})
	}
	for _, col := range foreachColumns {
		groupBy = append(groupBy, sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_foreach." + col)}})
	}

	return sqlast.NewQuery().WithProjection(projection).WithFrom(from).WithSelection(selection).WithGroupBy(groupBy), nil
}

// rowSubquery builds the per-row projection: field columns (with
// relationship sub-queries joined in), the row-number partitioned by the
// join and foreach columns and ordered by the requested order-by, and the
// selection predicate joined against its EXISTS sub-queries.
func (c *Compiler) rowSubquery(table queryrequest.TableName, joinCols []string, fields *orderedmap.OrderedMap[string, queryrequest.Field], query *queryrequest.QueryNode, foreachColumns []string) (*sqlast.Query, error) {
	var projection []sqlast.SelectItem
	for _, col := range joinCols {
		projection = append(projection, sqlast.ExprWithAlias{
			Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(col)}},
			Alias: sqlast.Quoted("_selection." + col),
		})
	}

	var relationshipJoins []sqlast.Join

	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		alias := pair.Key
		switch f := pair.Value.(type) {
		case queryrequest.ColumnField:
			identifier := sqlast.Expr(sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(f.Column)}})
			expr := identifier
			if f.ColumnType == queryrequest.Complex {
				expr = callFn("toJSONString", identifier)
			}
			projection = append(projection, sqlast.ExprWithAlias{Expr: expr, Alias: sqlast.Quoted("_projection." + alias)})

		case queryrequest.RelationshipField:
			projection = append(projection, sqlast.ExprWithAlias{
				Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_rel." + alias), sqlast.Quoted("query")}},
				Alias: sqlast.Quoted("_projection." + alias),
			})

			relationship, err := c.tableRelationship(table, f.Relationship)
			if err != nil {
				return nil, err
			}

			var joinExpr sqlast.Expr
			targetJoinCols := make([]string, 0, relationship.ColumnMapping.Len())
			for colPair := relationship.ColumnMapping.Oldest(); colPair != nil; colPair = colPair.Next() {
				sourceCol, targetCol := colPair.Key, colPair.Value
				targetJoinCols = append(targetJoinCols, targetCol)
				eq := &sqlast.BinaryOp{
					Left:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(sourceCol)}},
					Op:    sqlast.OpEq,
					Right: sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_rel." + alias), sqlast.Quoted("_selection." + targetCol)}},
				}
				joinExpr = andReduce(joinExpr, eq)
			}
			if joinExpr == nil {
				joinExpr = sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}}
			}

			subquery, err := c.querySubquery(relationship.TargetTable, targetJoinCols, f.Query, nil)
			if err != nil {
				return nil, err
			}

			relationshipJoins = append(relationshipJoins, sqlast.Join{
				Relation: sqlast.Derived{Subquery: subquery, Alias: ptr(sqlast.Quoted("_rel." + alias))},
				Operator: sqlast.LeftOuterJoin{Constraint: sqlast.OnConstraint{Expr: joinExpr}},
			})

		default:
			return nil, compileerr.Internal("unknown field variant")
		}
	}

	for _, col := range foreachColumns {
		projection = append(projection, sqlast.ExprWithAlias{
			Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(col)}},
			Alias: sqlast.Quoted("_foreach." + col),
		})
	}

	orderByExprs, orderByJoins, err := c.orderByExpressionsJoins(table, query.OrderBy)
	if err != nil {
		return nil, err
	}

	partitionCols := make([]string, 0, len(joinCols)+len(foreachColumns))
	partitionCols = append(partitionCols, joinCols...)
	partitionCols = append(partitionCols, foreachColumns...)

	projection = append(projection, sqlast.ExprWithAlias{
		Expr:  c.rowNumberExpression(partitionCols, orderByExprs),
		Alias: sqlast.Quoted("_rn"),
	})

	var rowSelection sqlast.Expr
	var existsJoins []sqlast.Join
	if query.Selection != nil {
		existsIndex := 0
		expr, joins, serr := c.selectionExpression(query.Selection, &existsIndex, true, "_origin", table)
		if serr != nil {
			return nil, serr
		}
		rowSelection = expr
		existsJoins = joins
	}

	allJoins := make([]sqlast.Join, 0, len(relationshipJoins)+len(orderByJoins)+len(existsJoins))
	allJoins = append(allJoins, relationshipJoins...)
	allJoins = append(allJoins, orderByJoins...)
	allJoins = append(allJoins, existsJoins...)

	from := []sqlast.TableWithJoins{
		{
			Relation: sqlast.Table{Name: tableObjectName(table), Alias: ptr(sqlast.Quoted("_origin"))},
			Joins:    allJoins,
		},
	}

	rowOrderBy := []sqlast.OrderByExpr{
		{Expr: sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_rn")}}},
	}

	return sqlast.NewQuery().WithProjection(projection).WithFrom(from).WithSelection(rowSelection).WithOrderBy(rowOrderBy), nil
}

// aggregatesSubquery wraps aggregateSubquery, folding each aggregate's
// per-partition reducer and applying the aggregates pagination predicate.
func (c *Compiler) aggregatesSubquery(table queryrequest.TableName, joinCols []string, aggregates *orderedmap.OrderedMap[string, queryrequest.Aggregate], query *queryrequest.QueryNode, foreachColumns []string) (*sqlast.Query, error) {
	aggregateSub, err := c.aggregateSubquery(table, joinCols, aggregates, query, foreachColumns)
	if err != nil {
		return nil, err
	}

	columnExprs := make([]sqlast.Expr, 0, aggregates.Len())
	for pair := aggregates.Oldest(); pair != nil; pair = pair.Next() {
		switch a := pair.Value.(type) {
		case queryrequest.StarCountAggregate:
			columnExprs = append(columnExprs, &sqlast.Function{
				Name: sqlast.ObjectName{sqlast.Unquoted("COUNT")},
				Args: []sqlast.FunctionArg{{Wildcard: true}},
			})
		case queryrequest.ColumnCountAggregate:
			col := sqlast.Expr(sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_projection." + pair.Key)}})
			columnExprs = append(columnExprs, &sqlast.Function{
				Name:     sqlast.ObjectName{sqlast.Unquoted("COUNT")},
				Args:     []sqlast.FunctionArg{{Expr: col}},
				Distinct: a.Distinct,
			})
		case queryrequest.SingleColumnAggregate:
			col := sqlast.Expr(sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_projection." + pair.Key)}})
			columnExprs = append(columnExprs, singleColumnAggregateExpr(a.Function, col))
		default:
			return nil, compileerr.Internal("unknown aggregate variant")
		}
	}

	projection := make([]sqlast.SelectItem, 0, len(joinCols)+2+len(foreachColumns))
	for _, col := range joinCols {
		ident := sqlast.Quoted("_selection." + col)
		projection = append(projection, sqlast.ExprWithAlias{
			Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), ident}},
			Alias: ident,
		})
	}

	var aggExpr sqlast.Expr
	if len(columnExprs) == 0 {
		aggExpr = callFn("map")
	} else {
		aggExpr = callFn("tuple", columnExprs...)
	}
	projection = append(projection, sqlast.ExprWithAlias{Expr: aggExpr, Alias: sqlast.Quoted("aggregates")})

	for _, col := range foreachColumns {
		projection = append(projection, sqlast.UnnamedExpr{
			Expr: sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_foreach." + col)}},
		})
	}

	from := []sqlast.TableWithJoins{{Relation: sqlast.Derived{Subquery: aggregateSub, Alias: ptr(sqlast.Quoted("_row"))}}}

	selection, err := c.limitOffsetExpression(query.AggregatesLimit, query.Offset)
	if err != nil {
		return nil, err
	}

	groupBy := make([]sqlast.Expr, 0, len(joinCols)+len(foreachColumns))
	for _, col := range joinCols {
		groupBy = append(groupBy, sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_selection." + col)}})
	}
	for _, col := range foreachColumns {
		groupBy = append(groupBy, sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_foreach." + col)}})
	}

	return sqlast.NewQuery().WithProjection(projection).WithFrom(from).WithSelection(selection).WithGroupBy(groupBy), nil
}

// aggregateSubquery mirrors rowSubquery for the aggregates side: the same
// origin table, order-by joins, row-number partitioning and selection, but
// projecting raw reducer input columns instead of groupArray'd tuples, and
// never joining relationship sub-queries (aggregates don't nest).
func (c *Compiler) aggregateSubquery(table queryrequest.TableName, joinCols []string, aggregates *orderedmap.OrderedMap[string, queryrequest.Aggregate], query *queryrequest.QueryNode, foreachColumns []string) (*sqlast.Query, error) {
	var projection []sqlast.SelectItem
	for _, col := range joinCols {
		projection = append(projection, sqlast.ExprWithAlias{
			Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(col)}},
			Alias: sqlast.Quoted("_selection." + col),
		})
	}

	for pair := aggregates.Oldest(); pair != nil; pair = pair.Next() {
		switch a := pair.Value.(type) {
		case queryrequest.ColumnCountAggregate:
			projection = append(projection, sqlast.ExprWithAlias{
				Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(a.Column)}},
				Alias: sqlast.Quoted("_projection." + pair.Key),
			})
		case queryrequest.SingleColumnAggregate:
			projection = append(projection, sqlast.ExprWithAlias{
				Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(a.Column)}},
				Alias: sqlast.Quoted("_projection." + pair.Key),
			})
		case queryrequest.StarCountAggregate:
			// COUNT(*) needs no projected column.
		default:
			return nil, compileerr.Internal("unknown aggregate variant")
		}
	}

	for _, col := range foreachColumns {
		projection = append(projection, sqlast.ExprWithAlias{
			Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(col)}},
			Alias: sqlast.Quoted("_foreach." + col),
		})
	}

	orderByExprs, orderByJoins, err := c.orderByExpressionsJoins(table, query.OrderBy)
	if err != nil {
		return nil, err
	}

	partitionCols := make([]string, 0, len(joinCols)+len(foreachColumns))
	partitionCols = append(partitionCols, joinCols...)
	partitionCols = append(partitionCols, foreachColumns...)

	projection = append(projection, sqlast.ExprWithAlias{
		Expr:  c.rowNumberExpression(partitionCols, orderByExprs),
		Alias: sqlast.Quoted("_rn"),
	})

	var aggregateSelection sqlast.Expr
	var existsJoins []sqlast.Join
	if query.Selection != nil {
		existsIndex := 0
		expr, joins, serr := c.selectionExpression(query.Selection, &existsIndex, true, "_origin", table)
		if serr != nil {
			return nil, serr
		}
		aggregateSelection = expr
		existsJoins = joins
	}

	allJoins := make([]sqlast.Join, 0, len(existsJoins)+len(orderByJoins))
	allJoins = append(allJoins, existsJoins...)
	allJoins = append(allJoins, orderByJoins...)

	from := []sqlast.TableWithJoins{
		{
			Relation: sqlast.Table{Name: tableObjectName(table), Alias: ptr(sqlast.Quoted("_origin"))},
			Joins:    allJoins,
		},
	}

	return sqlast.NewQuery().WithProjection(projection).WithFrom(from).WithSelection(aggregateSelection), nil
}

func singleColumnAggregateExpr(fn queryrequest.SingleColumnAggregateFunction, column sqlast.Expr) sqlast.Expr {
	switch fn {
	case queryrequest.Max:
		return callFn("max", column)
	case queryrequest.Min:
		return callFn("min", column)
	case queryrequest.Sum:
		return callFn("sum", column)
	case queryrequest.StddevPop:
		return callFn("stddevPop", column)
	case queryrequest.StddevSamp:
		return callFn("stddevSamp", column)
	case queryrequest.VarPop:
		return callFn("varPop", column)
	case queryrequest.VarSamp:
		return callFn("varSamp", column)
	case queryrequest.Longest:
		return callFn("max", callFn("length", column))
	case queryrequest.Shortest:
		return callFn("min", callFn("length", column))
	default:
		return callFn("max", column)
	}
}
