// Package aliasresolver rewrites the user-visible table and column names in
// a request into physical names, using the source config's alias maps. It
// runs once on the whole request before compilation; the compiler never
// sees an unresolved alias.
package aliasresolver

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/compileerr"
	"github.com/chqlbuilder/chqlbuilder/pkg/config"
	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
)

// Resolver rewrites identifiers for one source's configured alias maps.
type Resolver struct {
	tableAliases  map[string]string
	columnAliases map[string]map[string]string
}

// New builds a Resolver from a source's configuration.
func New(cfg config.SourceConfig) *Resolver {
	return &Resolver{
		tableAliases:  cfg.TableAliases,
		columnAliases: cfg.ColumnAliases,
	}
}

func tableKey(table queryrequest.TableName) string {
	return strings.Join(table, ".")
}

// ResolveTable rewrites a table name through the configured table alias
// map. A table with no configured alias passes through unchanged.
func (r *Resolver) ResolveTable(table queryrequest.TableName) queryrequest.TableName {
	if physical, ok := r.tableAliases[tableKey(table)]; ok {
		return strings.Split(physical, ".")
	}
	return table
}

// ResolveColumn rewrites a column name on the given (already-resolved)
// physical table name. A table with no declared column-alias dictionary
// passes every column through unchanged. A table WITH a declared dictionary
// is in strict mode: any column not present in that dictionary is rejected
// with compileerr.AliasUnknown.
func (r *Resolver) ResolveColumn(physicalTable queryrequest.TableName, column string) (string, error) {
	dict, ok := r.columnAliases[tableKey(physicalTable)]
	if !ok {
		return column, nil
	}
	physical, ok := dict[column]
	if !ok {
		return "", compileerr.AliasUnknown(column)
	}
	return physical, nil
}

// Resolve returns a copy of req with every table and column identifier
// rewritten through the configured alias maps.
func (r *Resolver) Resolve(req *queryrequest.Request) (*queryrequest.Request, error) {
	out := &queryrequest.Request{
		Table:   r.ResolveTable(req.Table),
		Foreach: req.Foreach,
	}

	relationships, err := r.resolveTableRelationships(req.TableRelationships)
	if err != nil {
		return nil, err
	}
	out.TableRelationships = relationships

	lookup := buildRelationshipLookup(relationships)

	query, err := r.resolveQueryNode(out.Table, req.Query, lookup)
	if err != nil {
		return nil, err
	}
	out.Query = query

	return out, nil
}

// relationshipLookup maps a (physical source table, relationship name) pair
// to its already-resolved Relationship, so a nested RelationshipField can
// find its target table's alias scope without re-walking TableRelationships.
type relationshipLookup map[string]map[string]queryrequest.Relationship

func buildRelationshipLookup(trs []queryrequest.TableRelationships) relationshipLookup {
	lookup := make(relationshipLookup, len(trs))
	for _, trs := range trs {
		byName := make(map[string]queryrequest.Relationship, trs.Relationships.Len())
		for pair := trs.Relationships.Oldest(); pair != nil; pair = pair.Next() {
			byName[pair.Key] = pair.Value
		}
		lookup[tableKey(trs.SourceTable)] = byName
	}
	return lookup
}

func (r *Resolver) resolveTableRelationships(in []queryrequest.TableRelationships) ([]queryrequest.TableRelationships, error) {
	out := make([]queryrequest.TableRelationships, 0, len(in))
	for _, trs := range in {
		sourceTable := r.ResolveTable(trs.SourceTable)
		resolvedRels := orderedmap.New[string, queryrequest.Relationship]()
		for pair := trs.Relationships.Oldest(); pair != nil; pair = pair.Next() {
			rel := pair.Value
			targetTable := r.ResolveTable(rel.TargetTable)
			mapping := orderedmap.New[string, string]()
			for colPair := rel.ColumnMapping.Oldest(); colPair != nil; colPair = colPair.Next() {
				srcCol, err := r.ResolveColumn(sourceTable, colPair.Key)
				if err != nil {
					return nil, err
				}
				tgtCol, err := r.ResolveColumn(targetTable, colPair.Value)
				if err != nil {
					return nil, err
				}
				mapping.Set(srcCol, tgtCol)
			}
			resolvedRels.Set(pair.Key, queryrequest.Relationship{
				SourceTable:   sourceTable,
				TargetTable:   targetTable,
				ColumnMapping: mapping,
			})
		}
		out = append(out, queryrequest.TableRelationships{
			SourceTable:   sourceTable,
			Relationships: resolvedRels,
		})
	}
	return out, nil
}

func (r *Resolver) resolveQueryNode(table queryrequest.TableName, node *queryrequest.QueryNode, lookup relationshipLookup) (*queryrequest.QueryNode, error) {
	if node == nil {
		return nil, nil
	}
	out := &queryrequest.QueryNode{
		Limit:           node.Limit,
		Offset:          node.Offset,
		AggregatesLimit: node.AggregatesLimit,
	}

	if node.Fields != nil {
		fields := orderedmap.New[string, queryrequest.Field]()
		for pair := node.Fields.Oldest(); pair != nil; pair = pair.Next() {
			field, err := r.resolveField(table, pair.Value, lookup)
			if err != nil {
				return nil, err
			}
			fields.Set(pair.Key, field)
		}
		out.Fields = fields
	}

	if node.Aggregates != nil {
		aggregates := orderedmap.New[string, queryrequest.Aggregate]()
		for pair := node.Aggregates.Oldest(); pair != nil; pair = pair.Next() {
			agg, err := r.resolveAggregate(table, pair.Value)
			if err != nil {
				return nil, err
			}
			aggregates.Set(pair.Key, agg)
		}
		out.Aggregates = aggregates
	}

	if node.Selection != nil {
		sel, err := r.resolveExpression(table, node.Selection)
		if err != nil {
			return nil, err
		}
		out.Selection = sel
	}

	if node.OrderBy != nil {
		ob, err := r.resolveOrderBy(table, node.OrderBy)
		if err != nil {
			return nil, err
		}
		out.OrderBy = ob
	}

	return out, nil
}

func (r *Resolver) resolveField(table queryrequest.TableName, field queryrequest.Field, lookup relationshipLookup) (queryrequest.Field, error) {
	switch f := field.(type) {
	case queryrequest.ColumnField:
		col, err := r.ResolveColumn(table, f.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.ColumnField{Column: col, ColumnType: f.ColumnType}, nil
	case queryrequest.RelationshipField:
		rel, ok := lookup[tableKey(table)][f.Relationship]
		if !ok {
			return nil, compileerr.RelationshipMissingInTable(f.Relationship, table)
		}
		query, err := r.resolveQueryNode(rel.TargetTable, f.Query, lookup)
		if err != nil {
			return nil, err
		}
		return queryrequest.RelationshipField{Query: query, Relationship: f.Relationship}, nil
	default:
		return nil, compileerr.Internal("unknown field variant")
	}
}

func (r *Resolver) resolveAggregate(table queryrequest.TableName, agg queryrequest.Aggregate) (queryrequest.Aggregate, error) {
	switch a := agg.(type) {
	case queryrequest.StarCountAggregate:
		return a, nil
	case queryrequest.ColumnCountAggregate:
		col, err := r.ResolveColumn(table, a.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.ColumnCountAggregate{Column: col, Distinct: a.Distinct}, nil
	case queryrequest.SingleColumnAggregate:
		col, err := r.ResolveColumn(table, a.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.SingleColumnAggregate{Column: col, Function: a.Function, ResultType: a.ResultType}, nil
	default:
		return nil, compileerr.Internal("unknown aggregate variant")
	}
}

func (r *Resolver) resolveExpression(table queryrequest.TableName, expr queryrequest.Expression) (queryrequest.Expression, error) {
	switch e := expr.(type) {
	case queryrequest.AndExpression:
		children, err := r.resolveExpressions(table, e.Expressions)
		if err != nil {
			return nil, err
		}
		return queryrequest.AndExpression{Expressions: children}, nil
	case queryrequest.OrExpression:
		children, err := r.resolveExpressions(table, e.Expressions)
		if err != nil {
			return nil, err
		}
		return queryrequest.OrExpression{Expressions: children}, nil
	case queryrequest.NotExpression:
		child, err := r.resolveExpression(table, e.Expression)
		if err != nil {
			return nil, err
		}
		return queryrequest.NotExpression{Expression: child}, nil
	case queryrequest.UnaryComparisonExpression:
		col, err := r.resolveComparisonColumn(table, e.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.UnaryComparisonExpression{Column: col, Operator: e.Operator}, nil
	case queryrequest.BinaryComparisonExpression:
		col, err := r.resolveComparisonColumn(table, e.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.BinaryComparisonExpression{Column: col, Operator: e.Operator, Value: e.Value}, nil
	case queryrequest.BinaryArrayComparisonExpression:
		col, err := r.resolveComparisonColumn(table, e.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.BinaryArrayComparisonExpression{
			Column: col, Operator: e.Operator, ValueType: e.ValueType, Values: e.Values,
		}, nil
	case queryrequest.ExistsExpression:
		return queryrequest.ExistsExpression{InTable: e.InTable, Selection: e.Selection}, nil
	default:
		return nil, compileerr.Internal("unknown expression variant")
	}
}

func (r *Resolver) resolveExpressions(table queryrequest.TableName, exprs []queryrequest.Expression) ([]queryrequest.Expression, error) {
	out := make([]queryrequest.Expression, 0, len(exprs))
	for _, e := range exprs {
		resolved, err := r.resolveExpression(table, e)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (r *Resolver) resolveComparisonColumn(table queryrequest.TableName, col queryrequest.ComparisonColumn) (queryrequest.ComparisonColumn, error) {
	if len(col.Path) > 0 {
		// traversal paths are rejected by the compiler itself
		// (compileerr.UnsupportedColumnComparisonPath); pass through
		// unresolved so that error fires with the original name.
		return col, nil
	}
	resolved, err := r.ResolveColumn(table, col.Name)
	if err != nil {
		return queryrequest.ComparisonColumn{}, err
	}
	return queryrequest.ComparisonColumn{Name: resolved, Path: col.Path}, nil
}

func (r *Resolver) resolveOrderBy(table queryrequest.TableName, ob *queryrequest.OrderBy) (*queryrequest.OrderBy, error) {
	elements := make([]queryrequest.OrderByElement, 0, len(ob.Elements))
	for _, el := range ob.Elements {
		target, err := r.resolveOrderByTarget(table, el.Target)
		if err != nil {
			return nil, err
		}
		elements = append(elements, queryrequest.OrderByElement{
			TargetPath: el.TargetPath,
			Target:     target,
			Direction:  el.Direction,
		})
	}
	return &queryrequest.OrderBy{Elements: elements, Relations: ob.Relations}, nil
}

func (r *Resolver) resolveOrderByTarget(table queryrequest.TableName, target queryrequest.OrderByTarget) (queryrequest.OrderByTarget, error) {
	switch t := target.(type) {
	case queryrequest.StarCountAggregateTarget:
		return t, nil
	case queryrequest.SingleColumnAggregateTarget:
		col, err := r.ResolveColumn(table, t.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.SingleColumnAggregateTarget{Column: col, Function: t.Function, ResultType: t.ResultType}, nil
	case queryrequest.ColumnTarget:
		col, err := r.ResolveColumn(table, t.Column)
		if err != nil {
			return nil, err
		}
		return queryrequest.ColumnTarget{Column: col}, nil
	default:
		return nil, compileerr.Internal("unknown order-by target variant")
	}
}
