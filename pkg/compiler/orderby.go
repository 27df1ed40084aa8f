package compiler

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
	"github.com/chqlbuilder/chqlbuilder/pkg/typecast"
)

// orderByExpressionsJoins builds the ORDER BY expression list plus the
// derived-table joins (_ord.<path>) needed to reach each target path. Order
// is significant: elements keep the request's declared precedence.
func (c *Compiler) orderByExpressionsJoins(table queryrequest.TableName, orderBy *queryrequest.OrderBy) ([]sqlast.OrderByExpr, []sqlast.Join, error) {
	if orderBy == nil {
		return nil, nil, nil
	}

	_, joins, err := c.orderByJoins(table, nil, orderBy.Relations, orderBy)
	if err != nil {
		return nil, nil, err
	}

	exprs := make([]sqlast.OrderByExpr, 0, len(orderBy.Elements))
	for _, element := range orderBy.Elements {
		tableAlias := "_origin"
		if len(element.TargetPath) > 0 {
			tableAlias = "_ord." + strings.Join(element.TargetPath, ".")
		}

		var columnAlias string
		switch t := element.Target.(type) {
		case queryrequest.StarCountAggregateTarget:
			columnAlias = "_count"
		case queryrequest.SingleColumnAggregateTarget:
			columnAlias = fmt.Sprintf("_agg.%s.%s", t.Function.FunctionName(), t.Column)
		case queryrequest.ColumnTarget:
			if len(element.TargetPath) == 0 {
				columnAlias = t.Column
			} else {
				columnAlias = "_col." + t.Column
			}
		}

		exprs = append(exprs, c.orderByExpr(tableAlias, columnAlias, element))
	}

	return exprs, joins, nil
}

// orderByExpr builds one ORDER BY entry, wrapping aggregate targets in a
// COALESCE so that partitions with no matching related rows sort using the
// reducer's identity value instead of NULL.
func (c *Compiler) orderByExpr(tableAlias, columnAlias string, element queryrequest.OrderByElement) sqlast.OrderByExpr {
	column := sqlast.Expr(sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(tableAlias), sqlast.Quoted(columnAlias)}})

	var expr sqlast.Expr
	switch t := element.Target.(type) {
	case queryrequest.StarCountAggregateTarget:
		expr = callFn("COALESCE", column, sqlast.ValueExpr{Value: sqlast.NumberValue{Literal: "0"}})
	case queryrequest.SingleColumnAggregateTarget:
		var def sqlast.Value
		switch {
		case typecast.IsNumeric(t.ResultType):
			def = sqlast.NumberValue{Literal: "0"}
		case typecast.IsString(t.ResultType):
			def = sqlast.SingleQuotedStringValue{Text: ""}
		default:
			def = sqlast.NullValue{}
		}
		expr = callFn("COALESCE", column, sqlast.ValueExpr{Value: def})
	default:
		expr = column
	}

	asc := element.Direction == queryrequest.Asc
	nullsFirst := !asc

	return sqlast.OrderByExpr{Expr: expr, Asc: &asc, NullsFirst: &nullsFirst}
}

// orderByJoins recursively walks the order-by relation tree, building one
// derived-table LEFT OUTER JOIN per relationship traversed. It returns the
// source-side columns the caller needs to join on (the relationship's own
// column mapping, deduplicated) plus the full join list including every
// descendant.
func (c *Compiler) orderByJoins(table queryrequest.TableName, sourcePath []string, relations *orderedmap.OrderedMap[string, queryrequest.OrderByRelation], orderBy *queryrequest.OrderBy) ([]string, []sqlast.Join, error) {
	if relations == nil {
		return nil, nil, nil
	}

	parentAlias := "_origin"
	if len(sourcePath) > 0 {
		parentAlias = "_ord." + strings.Join(sourcePath, ".")
	}

	var parentJoinColumns []string
	var joins []sqlast.Join

	for pair := relations.Oldest(); pair != nil; pair = pair.Next() {
		relationshipName := pair.Key
		orderByRelation := pair.Value

		relationship, err := c.tableRelationship(table, relationshipName)
		if err != nil {
			return nil, nil, err
		}

		for colPair := relationship.ColumnMapping.Oldest(); colPair != nil; colPair = colPair.Next() {
			if !containsString(parentJoinColumns, colPair.Key) {
				parentJoinColumns = append(parentJoinColumns, colPair.Key)
			}
		}

		childPath := append(append([]string{}, sourcePath...), relationshipName)
		childAlias := "_ord." + strings.Join(childPath, ".")

		childColumns, childJoins, err := c.orderByJoins(relationship.TargetTable, childPath, orderByRelation.Subrelations, orderBy)
		if err != nil {
			return nil, nil, err
		}

		projectionCols := orderedmap.New[string, sqlast.SelectItem]()
		groupByCols := orderedmap.New[string, sqlast.Expr]()

		for _, element := range orderBy.Elements {
			if !stringSliceEqual(element.TargetPath, childPath) {
				continue
			}

			var colAlias string
			var projectionExpr sqlast.Expr
			switch t := element.Target.(type) {
			case queryrequest.StarCountAggregateTarget:
				colAlias = "_count"
				projectionExpr = &sqlast.Function{Name: sqlast.ObjectName{sqlast.Unquoted("COUNT")}, Args: []sqlast.FunctionArg{{Wildcard: true}}}
			case queryrequest.SingleColumnAggregateTarget:
				colAlias = fmt.Sprintf("_agg.%s.%s", t.Function.FunctionName(), t.Column)
				projectionExpr = singleColumnAggregateExpr(t.Function, sqlast.Identifier{Ident: sqlast.Quoted(t.Column)})
			case queryrequest.ColumnTarget:
				colAlias = "_col." + t.Column
				projectionExpr = sqlast.Identifier{Ident: sqlast.Quoted(t.Column)}
			}
			projectionCols.Set(colAlias, sqlast.ExprWithAlias{Expr: projectionExpr, Alias: sqlast.Quoted(colAlias)})

			if colTarget, ok := element.Target.(queryrequest.ColumnTarget); ok {
				groupByCols.Set(colTarget.Column, sqlast.Identifier{Ident: sqlast.Quoted(colTarget.Column)})
			}
		}

		for colPair := relationship.ColumnMapping.Oldest(); colPair != nil; colPair = colPair.Next() {
			column := colPair.Value
			colAlias := "_col." + column
			if _, ok := projectionCols.Get(colAlias); !ok {
				projectionCols.Set(colAlias, sqlast.ExprWithAlias{
					Expr:  sqlast.Identifier{Ident: sqlast.Quoted(column)},
					Alias: sqlast.Quoted(colAlias),
				})
			}
			if _, ok := groupByCols.Get(column); !ok {
				groupByCols.Set(column, sqlast.Identifier{Ident: sqlast.Quoted(column)})
			}
		}

		for _, column := range childColumns {
			colAlias := "_col." + column
			if _, ok := projectionCols.Get(colAlias); !ok {
				projectionCols.Set(colAlias, sqlast.ExprWithAlias{
					Expr:  sqlast.Identifier{Ident: sqlast.Quoted(column)},
					Alias: sqlast.Quoted(colAlias),
				})
			}
			if _, ok := groupByCols.Get(column); !ok {
				groupByCols.Set(column, sqlast.Identifier{Ident: sqlast.Quoted(column)})
			}
		}

		var joinSelection sqlast.Expr
		var existsJoins []sqlast.Join
		if orderByRelation.Selection != nil {
			existsIndex := 0
			expr, ejs, serr := c.selectionExpression(orderByRelation.Selection, &existsIndex, false, "_origin", relationship.TargetTable)
			if serr != nil {
				return nil, nil, serr
			}
			joinSelection = expr
			existsJoins = ejs
		}

		joinProjection := make([]sqlast.SelectItem, 0, projectionCols.Len())
		for p := projectionCols.Oldest(); p != nil; p = p.Next() {
			joinProjection = append(joinProjection, p.Value)
		}
		joinGroupBy := make([]sqlast.Expr, 0, groupByCols.Len())
		for p := groupByCols.Oldest(); p != nil; p = p.Next() {
			joinGroupBy = append(joinGroupBy, p.Value)
		}

		joinFrom := []sqlast.TableWithJoins{
			{
				Relation: sqlast.Table{Name: tableObjectName(relationship.TargetTable), Alias: ptr(sqlast.Quoted("_origin"))},
				Joins:    existsJoins,
			},
		}

		joinSubquery := sqlast.NewQuery().WithProjection(joinProjection).WithFrom(joinFrom).WithSelection(joinSelection).WithGroupBy(joinGroupBy)

		var joinOnExpr sqlast.Expr
		for colPair := relationship.ColumnMapping.Oldest(); colPair != nil; colPair = colPair.Next() {
			sourceCol, targetCol := colPair.Key, colPair.Value
			leftCol := sourceCol
			if len(sourcePath) > 0 {
				leftCol = "_col." + sourceCol
			}
			eq := &sqlast.BinaryOp{
				Left:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(parentAlias), sqlast.Quoted(leftCol)}},
				Op:    sqlast.OpEq,
				Right: sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(childAlias), sqlast.Quoted("_col." + targetCol)}},
			}
			joinOnExpr = andReduce(joinOnExpr, eq)
		}
		if joinOnExpr == nil {
			joinOnExpr = sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}}
		}

		joins = append(joins, sqlast.Join{
			Relation: sqlast.Derived{Subquery: joinSubquery, Alias: ptr(sqlast.Quoted(childAlias))},
			Operator: sqlast.LeftOuterJoin{Constraint: sqlast.OnConstraint{Expr: joinOnExpr}},
		})
		joins = append(joins, childJoins...)
	}

	return parentJoinColumns, joins, nil
}

// rowNumberExpression builds row_number() OVER (PARTITION BY ... ORDER BY ...).
func (c *Compiler) rowNumberExpression(partitionBy []string, orderBy []sqlast.OrderByExpr) sqlast.Expr {
	partition := make([]sqlast.Expr, 0, len(partitionBy))
	for _, col := range partitionBy {
		partition = append(partition, sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_origin"), sqlast.Quoted(col)}})
	}
	return &sqlast.Function{
		Name: sqlast.ObjectName{sqlast.Unquoted("row_number")},
		Over: &sqlast.WindowSpec{PartitionBy: partition, OrderBy: orderBy},
	}
}
