// Package queryrequest defines the structured query request model: the
// table, relationships, recursive query node, and optional foreach bindings
// that the compiler consumes. Types here are pure data — no compilation
// logic lives in this package.
package queryrequest

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TableName is a qualified, multi-part table identifier, e.g. ["db", "users"].
type TableName []string

// Equal reports whether two table names refer to the same qualified path.
func (t TableName) Equal(other TableName) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// ScalarType tags the type of a column or literal value carried in the
// request. It drives both the envelope cast (typecast package) and literal
// serialisation (parambinder package).
type ScalarType int

const (
	Bool ScalarType = iota
	String
	FixedString
	UInt8
	UInt16
	UInt32
	UInt64
	UInt128
	UInt256
	Int8
	Int16
	Int32
	Int64
	Int128
	Int256
	Float32
	Float64
	Decimal
	Date
	Date32
	DateTime
	DateTime64
	Json
	Uuid
	IPv4
	IPv6
	Complex
)

// Request is the immutable, top-level input to the compiler.
type Request struct {
	Table              TableName            `json:"table"`
	Query              *QueryNode           `json:"query"`
	TableRelationships []TableRelationships `json:"table_relationships,omitempty"`
	Foreach            []ForeachRow         `json:"foreach,omitempty"` // nil/empty means foreach is absent
}

// TableRelationships bundles every relationship declared on one source table.
type TableRelationships struct {
	SourceTable   TableName                                    `json:"source_table"`
	Relationships *orderedmap.OrderedMap[string, Relationship] `json:"relationships"`
}

// Relationship is a named edge from a source table to a target table, with
// an ordered source-column -> target-column mapping used to build joins.
type Relationship struct {
	SourceTable   TableName                              `json:"source_table"`
	TargetTable   TableName                              `json:"target_table"`
	ColumnMapping *orderedmap.OrderedMap[string, string] `json:"column_mapping"`
}

// ForeachRow is one binding row: a mapping from key to a typed scalar value.
// Invariant: every row in a Request.Foreach slice is expected to carry the
// same key set. Nothing in this package checks it; Request.ForeachColumns
// reports the key set of the first row only.
type ForeachRow struct {
	Keys *orderedmap.OrderedMap[string, BoundValue] `json:"keys"`
}

// BoundValue is a typed scalar literal, as carried by a foreach binding or a
// comparison value.
type BoundValue struct {
	Value interface{}
	Type  ScalarType
}

// QueryNode is one level of the recursive query tree.
type QueryNode struct {
	Fields          *orderedmap.OrderedMap[string, Field]     // nil means absent
	Aggregates      *orderedmap.OrderedMap[string, Aggregate] // nil means absent
	Selection       Expression                                // nil means absent
	OrderBy         *OrderBy                                  // nil means absent
	Limit           *uint64
	Offset          *uint64
	AggregatesLimit *uint64
}

// Field is a sum type: Column or Relationship.
type Field interface{ isField() }

// ColumnField projects a raw column with its declared scalar type.
type ColumnField struct {
	Column     string     `json:"column"`
	ColumnType ScalarType `json:"column_type"`
}

func (ColumnField) isField() {}

// RelationshipField nests a sub-query through a named relationship.
type RelationshipField struct {
	Query        *QueryNode `json:"query"`
	Relationship string     `json:"relationship"`
}

func (RelationshipField) isField() {}

// SingleColumnAggregateFunction enumerates the scalar reducers available to
// SingleColumnAggregate.
type SingleColumnAggregateFunction int

const (
	Max SingleColumnAggregateFunction = iota
	Min
	Sum
	StddevPop
	StddevSamp
	VarPop
	VarSamp
	Longest
	Shortest
)

// FunctionName returns the short, valid-SQL-identifier name used to alias
// aggregate columns when such an alias is needed (order-by, for instance).
func (f SingleColumnAggregateFunction) FunctionName() string {
	switch f {
	case Max:
		return "max"
	case Min:
		return "min"
	case Sum:
		return "sum"
	case StddevPop:
		return "stddevPop"
	case StddevSamp:
		return "stddevSamp"
	case VarPop:
		return "varPop"
	case VarSamp:
		return "varSamp"
	case Longest:
		return "longest"
	case Shortest:
		return "shortest"
	default:
		return "unknown"
	}
}

// Aggregate is a sum type: StarCount, ColumnCount, or SingleColumn.
type Aggregate interface{ isAggregate() }

// StarCountAggregate counts every row, regardless of column nullability.
type StarCountAggregate struct{}

func (StarCountAggregate) isAggregate() {}

// ColumnCountAggregate counts non-null values of a projected column,
// optionally deduplicated.
type ColumnCountAggregate struct {
	Column   string `json:"column"`
	Distinct bool   `json:"distinct"`
}

func (ColumnCountAggregate) isAggregate() {}

// SingleColumnAggregate reduces one column through a scalar function.
type SingleColumnAggregate struct {
	Column     string                        `json:"column"`
	Function   SingleColumnAggregateFunction `json:"function"`
	ResultType ScalarType                    `json:"result_type"`
}

func (SingleColumnAggregate) isAggregate() {}

// OrderDirection is the sort direction of an OrderByElement.
type OrderDirection int

const (
	Asc OrderDirection = iota
	Desc
)

// OrderByTarget is a sum type: StarCountAggregate, SingleColumnAggregate, or
// Column.
type OrderByTarget interface{ isOrderByTarget() }

// StarCountAggregateTarget sorts on COUNT(*) of the target path.
type StarCountAggregateTarget struct{}

func (StarCountAggregateTarget) isOrderByTarget() {}

// SingleColumnAggregateTarget sorts on a reduced column of the target path.
type SingleColumnAggregateTarget struct {
	Column     string                        `json:"column"`
	Function   SingleColumnAggregateFunction `json:"function"`
	ResultType ScalarType                    `json:"result_type"`
}

func (SingleColumnAggregateTarget) isOrderByTarget() {}

// ColumnTarget sorts on a raw column, at the root or of the target path.
type ColumnTarget struct {
	Column string `json:"column"`
}

func (ColumnTarget) isOrderByTarget() {}

// OrderByElement is one entry in the order-by list.
type OrderByElement struct {
	TargetPath []string      `json:"target_path,omitempty"` // relationship names from the query node to the target
	Target     OrderByTarget `json:"target"`
	Direction  OrderDirection `json:"direction"`
}

// OrderByRelation is one edge of the order-by relation tree: the
// relationships an OrderByElement's TargetPath may traverse, each carrying
// its own filtering selection.
type OrderByRelation struct {
	Subrelations *orderedmap.OrderedMap[string, OrderByRelation] `json:"subrelations"`
	Selection    Expression                                      `json:"selection,omitempty"` // nil means absent
}

// OrderBy is the full order-by specification of a query node.
type OrderBy struct {
	Elements  []OrderByElement                                 `json:"elements"`
	Relations *orderedmap.OrderedMap[string, OrderByRelation] `json:"relations"`
}

// ComparisonColumn names the column a predicate compares, plus any
// relationship-traversal path (unsupported; see compileerr.UnsupportedColumnComparisonPath).
type ComparisonColumn struct {
	Name string   `json:"name"`
	Path []string `json:"path,omitempty"`
}

// UnaryComparisonOperator enumerates single-operand predicates.
type UnaryComparisonOperator int

const (
	IsNull UnaryComparisonOperator = iota
)

// BinaryComparisonOperator enumerates two-operand scalar predicates.
type BinaryComparisonOperator int

const (
	LessThan BinaryComparisonOperator = iota
	LessThanOrEqual
	Equal
	GreaterThan
	GreaterThanOrEqual
)

// BinaryArrayComparisonOperator enumerates set-membership predicates.
type BinaryArrayComparisonOperator int

const (
	In BinaryArrayComparisonOperator = iota
)

// ComparisonValue is a sum type: a scalar literal, or (unsupported) another
// column reference.
type ComparisonValue interface{ isComparisonValue() }

// ScalarValueComparison compares against a typed literal.
type ScalarValueComparison struct {
	Value     interface{} `json:"value"`
	ValueType ScalarType  `json:"value_type"`
}

func (ScalarValueComparison) isComparisonValue() {}

// AnotherColumnComparison compares against another column; rejected by the
// compiler with compileerr.RightHandColumnComparisonNotSupported.
type AnotherColumnComparison struct {
	Column ComparisonColumn `json:"column"`
}

func (AnotherColumnComparison) isComparisonValue() {}

// ExistsInTable is a sum type: UnrelatedTable or RelatedTable.
type ExistsInTable interface{ isExistsInTable() }

// UnrelatedTable names an EXISTS target with no declared relationship.
type UnrelatedTable struct {
	Table TableName `json:"table"`
}

func (UnrelatedTable) isExistsInTable() {}

// RelatedTable names an EXISTS target reached through a declared
// relationship on the enclosing table.
type RelatedTable struct {
	Relationship string `json:"relationship"`
}

func (RelatedTable) isExistsInTable() {}

// Expression is the predicate sum type: And, Or, Not, UnaryComparison,
// BinaryComparison, BinaryArrayComparison, or Exists.
type Expression interface{ isExpression() }

// AndExpression conjoins its children; an empty And reduces to TRUE.
type AndExpression struct {
	Expressions []Expression `json:"expressions"`
}

func (AndExpression) isExpression() {}

// OrExpression disjoins its children; an empty Or reduces to FALSE.
type OrExpression struct {
	Expressions []Expression `json:"expressions"`
}

func (OrExpression) isExpression() {}

// NotExpression negates its child.
type NotExpression struct {
	Expression Expression `json:"expression"`
}

func (NotExpression) isExpression() {}

// UnaryComparisonExpression applies a single-operand operator to a column.
type UnaryComparisonExpression struct {
	Column   ComparisonColumn        `json:"column"`
	Operator UnaryComparisonOperator `json:"operator"`
}

func (UnaryComparisonExpression) isExpression() {}

// BinaryComparisonExpression compares a column against a value with a scalar
// operator.
type BinaryComparisonExpression struct {
	Column   ComparisonColumn         `json:"column"`
	Operator BinaryComparisonOperator `json:"operator"`
	Value    ComparisonValue          `json:"value"`
}

func (BinaryComparisonExpression) isExpression() {}

// BinaryArrayComparisonExpression tests set membership.
type BinaryArrayComparisonExpression struct {
	Column    ComparisonColumn              `json:"column"`
	Operator  BinaryArrayComparisonOperator `json:"operator"`
	ValueType ScalarType                    `json:"value_type"`
	Values    []interface{}                 `json:"values"`
}

func (BinaryArrayComparisonExpression) isExpression() {}

// ExistsExpression tests for the existence of at least one matching row in
// another table, optionally reached through a relationship.
type ExistsExpression struct {
	InTable   ExistsInTable `json:"in_table"`
	Selection Expression    `json:"selection,omitempty"`
}

func (ExistsExpression) isExpression() {}
