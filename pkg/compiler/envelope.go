package compiler

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/typecast"
)

// foreachObjectType is the envelope cast for a foreach-bound request: an
// array of one query-shaped tuple per binding row.
func foreachObjectType(query *queryrequest.QueryNode) string {
	return fmt.Sprintf("Tuple(rows Array(Tuple(query %s)))", queryObjectType(query))
}

// queryObjectType is the envelope cast for one query node: rows, aggregates,
// both, or neither.
func queryObjectType(query *queryrequest.QueryNode) string {
	switch {
	case query.Fields == nil && query.Aggregates == nil:
		return "Map(Nothing, Nothing)"
	case query.Aggregates == nil:
		return fmt.Sprintf("Tuple(rows Array(%s))", rowsObjectType(query.Fields))
	case query.Fields == nil:
		return fmt.Sprintf("Tuple(aggregates %s)", aggregatesObjectType(query.Aggregates))
	default:
		return fmt.Sprintf("Tuple(rows Array(%s), aggregates %s)", rowsObjectType(query.Fields), aggregatesObjectType(query.Aggregates))
	}
}

func rowsObjectType(fields *orderedmap.OrderedMap[string, queryrequest.Field]) string {
	if fields == nil || fields.Len() == 0 {
		return "Map(Nothing, Nothing)"
	}
	parts := make([]string, 0, fields.Len())
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		var fieldType string
		switch f := pair.Value.(type) {
		case queryrequest.ColumnField:
			fieldType = typecast.CastString(f.ColumnType)
		case queryrequest.RelationshipField:
			fieldType = queryObjectType(f.Query)
		default:
			fieldType = "Nullable(String)"
		}
		parts = append(parts, fmt.Sprintf("%q %s", pair.Key, fieldType))
	}
	return fmt.Sprintf("Tuple(%s)", strings.Join(parts, ", "))
}

func aggregatesObjectType(aggregates *orderedmap.OrderedMap[string, queryrequest.Aggregate]) string {
	if aggregates == nil || aggregates.Len() == 0 {
		return "Map(Nothing, Nothing)"
	}
	parts := make([]string, 0, aggregates.Len())
	for pair := aggregates.Oldest(); pair != nil; pair = pair.Next() {
		var aggType string
		switch a := pair.Value.(type) {
		case queryrequest.StarCountAggregate:
			aggType = "UInt32"
		case queryrequest.ColumnCountAggregate:
			aggType = "UInt32"
		case queryrequest.SingleColumnAggregate:
			aggType = typecast.CastString(a.ResultType)
		default:
			aggType = "Nullable(String)"
		}
		parts = append(parts, fmt.Sprintf("%q %s", pair.Key, aggType))
	}
	return fmt.Sprintf("Tuple(%s)", strings.Join(parts, ", "))
}
