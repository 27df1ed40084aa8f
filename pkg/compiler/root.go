package compiler

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/compileerr"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

// foreachSpec carries the foreach binding table factor and the ordered set
// of column names it exposes, threaded down through querySubquery so that
// every level of the recursion can pass its per-row values through.
type foreachSpec struct {
	table   sqlast.TableFactor
	columns []string
}

// foreachJSONColumns serialises the foreach binding rows into the JSON text
// consumed by format(JSONColumns, '...'), preserving the key order of the
// first binding row.
func (c *Compiler) foreachJSONColumns() (string, []string, error) {
	columns := orderedmap.New[string, []interface{}]()
	for _, row := range c.request.Foreach {
		for pair := row.Keys.Oldest(); pair != nil; pair = pair.Next() {
			values, ok := columns.Get(pair.Key)
			if !ok {
				values = []interface{}{}
			}
			values = append(values, pair.Value.Value)
			columns.Set(pair.Key, values)
		}
	}

	data, err := json.Marshal(columns)
	if err != nil {
		return "", nil, compileerr.InternalWrap("failed to serialise foreach bindings", err)
	}

	return string(data), c.request.ForeachColumns(), nil
}

// rootQuery builds the single outermost SELECT: a derived table holding the
// compiled query shape, projected through toJSONString(cast(..., envelope)).
func (c *Compiler) rootQuery() (*sqlast.Query, error) {
	table := c.request.Table
	query := c.request.Query

	var subquery *sqlast.Query
	var envelopeType string
	var err error

	if len(c.request.Foreach) > 0 {
		jsonText, columns, ferr := c.foreachJSONColumns()
		if ferr != nil {
			return nil, ferr
		}

		foreachFn := &sqlast.Function{
			Name: sqlast.ObjectName{sqlast.Unquoted("format")},
			Args: []sqlast.FunctionArg{
				{Expr: sqlast.Identifier{Ident: sqlast.Unquoted("JSONColumns")}},
				{Expr: sqlast.ValueExpr{Value: sqlast.SingleQuotedStringValue{Text: jsonText}}},
			},
		}

		spec := &foreachSpec{
			table:   sqlast.TableFunctionRelation{Function: foreachFn, Alias: ptr(sqlast.Quoted("_foreach"))},
			columns: columns,
		}

		subquery, err = c.querySubquery(table, nil, query, spec)
		if err != nil {
			return nil, err
		}
		envelopeType = foreachObjectType(query)
	} else {
		subquery, err = c.querySubquery(table, nil, query, nil)
		if err != nil {
			return nil, err
		}
		envelopeType = queryObjectType(query)
	}

	queryExpr := sqlast.Expr(sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_query"), sqlast.Quoted("query")}})

	castExpr := callFn("cast", queryExpr, sqlast.ValueExpr{Value: sqlast.SingleQuotedStringValue{Text: envelopeType}})
	projection := []sqlast.SelectItem{
		sqlast.ExprWithAlias{Expr: callFn("toJSONString", castExpr), Alias: sqlast.Quoted("query")},
	}

	from := []sqlast.TableWithJoins{
		{Relation: sqlast.Derived{Subquery: subquery, Alias: ptr(sqlast.Quoted("_query"))}},
	}

	return sqlast.NewQuery().WithProjection(projection).WithFrom(from), nil
}

func foreachJoinExpr(columns []string, sideAlias string) sqlast.Expr {
	var expr sqlast.Expr
	for _, col := range columns {
		left := sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_foreach"), sqlast.Quoted(col)}}
		right := sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted(sideAlias), sqlast.Quoted("_foreach." + col)}}
		eq := &sqlast.BinaryOp{Left: left, Op: sqlast.OpEq, Right: right}
		expr = andReduce(expr, eq)
	}
	if expr == nil {
		return sqlast.ValueExpr{Value: sqlast.BooleanValue{Value: true}}
	}
	return expr
}

// querySubquery builds the shape-producing derived table for one query
// node: a "query" column holding a tuple of (rows, aggregates) as
// applicable, joined on joinCols when both are present, or bound through
// the foreach table function at the top level.
func (c *Compiler) querySubquery(table queryrequest.TableName, joinCols []string, query *queryrequest.QueryNode, foreach *foreachSpec) (*sqlast.Query, error) {
	var foreachColumns []string
	if foreach != nil {
		foreachColumns = foreach.columns
	}

	var rowsSub *sqlast.Query
	var rowsExpr sqlast.Expr
	if query.Fields != nil {
		var err error
		rowsSub, err = c.rowsSubquery(table, joinCols, query.Fields, query, foreachColumns)
		if err != nil {
			return nil, err
		}
		rowsExpr = sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_rows"), sqlast.Quoted("rows")}}
	}

	var aggregatesSub *sqlast.Query
	var aggregatesExpr sqlast.Expr
	if query.Aggregates != nil {
		var err error
		aggregatesSub, err = c.aggregatesSubquery(table, joinCols, query.Aggregates, query, foreachColumns)
		if err != nil {
			return nil, err
		}
		aggregatesExpr = sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_aggregates"), sqlast.Quoted("aggregates")}}
	}

	var shapeExpr sqlast.Expr
	switch {
	case rowsExpr == nil && aggregatesExpr == nil:
		shapeExpr = callFn("map")
	case rowsExpr == nil:
		shapeExpr = callFn("tuple", aggregatesExpr)
	case aggregatesExpr == nil:
		shapeExpr = callFn("tuple", rowsExpr)
	default:
		shapeExpr = callFn("tuple", rowsExpr, aggregatesExpr)
	}

	if foreach != nil {
		shapeExpr = callFn("tuple", callFn("groupArray", callFn("tuple", shapeExpr)))
	}

	projection := []sqlast.SelectItem{
		sqlast.ExprWithAlias{Expr: shapeExpr, Alias: sqlast.Quoted("query")},
	}
	for _, col := range joinCols {
		ident := sqlast.Quoted("_selection." + col)
		projection = append(projection, sqlast.ExprWithAlias{
			Expr:  sqlast.CompoundIdentifier{Parts: []sqlast.Ident{ident}},
			Alias: ident,
		})
	}

	var from []sqlast.TableWithJoins

	switch {
	case foreach != nil:
		var joins []sqlast.Join
		if rowsSub != nil {
			joins = append(joins, sqlast.Join{
				Relation: sqlast.Derived{Subquery: rowsSub, Alias: ptr(sqlast.Quoted("_rows"))},
				Operator: sqlast.LeftOuterJoin{Constraint: sqlast.OnConstraint{Expr: foreachJoinExpr(foreach.columns, "_rows")}},
			})
		}
		if aggregatesSub != nil {
			joins = append(joins, sqlast.Join{
				Relation: sqlast.Derived{Subquery: aggregatesSub, Alias: ptr(sqlast.Quoted("_aggregates"))},
				Operator: sqlast.LeftOuterJoin{Constraint: sqlast.OnConstraint{Expr: foreachJoinExpr(foreach.columns, "_aggregates")}},
			})
		}
		from = []sqlast.TableWithJoins{{Relation: foreach.table, Joins: joins}}

	case rowsSub == nil && aggregatesSub == nil:
		from = nil

	case aggregatesSub == nil:
		from = []sqlast.TableWithJoins{{Relation: sqlast.Derived{Subquery: rowsSub, Alias: ptr(sqlast.Quoted("_rows"))}}}

	case rowsSub == nil:
		from = []sqlast.TableWithJoins{{Relation: sqlast.Derived{Subquery: aggregatesSub, Alias: ptr(sqlast.Quoted("_aggregates"))}}}

	default:
		var operator sqlast.JoinOperator
		if len(joinCols) == 0 {
			operator = sqlast.CrossJoin{}
		} else {
			cols := make([]sqlast.Ident, len(joinCols))
			for i, col := range joinCols {
				cols[i] = sqlast.Quoted("_selection." + col)
			}
			operator = sqlast.FullOuterJoin{Constraint: sqlast.UsingConstraint{Columns: cols}}
		}
		from = []sqlast.TableWithJoins{
			{
				Relation: sqlast.Derived{Subquery: rowsSub, Alias: ptr(sqlast.Quoted("_rows"))},
				Joins: []sqlast.Join{
					{
						Relation: sqlast.Derived{Subquery: aggregatesSub, Alias: ptr(sqlast.Quoted("_aggregates"))},
						Operator: operator,
					},
				},
			},
		}
	}

	return sqlast.NewQuery().WithProjection(projection).WithFrom(from), nil
}
