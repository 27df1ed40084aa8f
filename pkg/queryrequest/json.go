package queryrequest

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// This file is the wire-format boundary for the sum types above. encoding/json
// cannot decode an object into a bare interface value, so every sum type here
// is carried over the wire as an object with a "type" discriminator plus its
// own fields, and decoded in two passes: first into an ordered map of raw
// messages (to keep key order for Fields/Aggregates), then dispatched on
// "type" into the concrete struct the discriminator names.

var scalarTypeNames = [...]string{
	"Bool", "String", "FixedString",
	"UInt8", "UInt16", "UInt32", "UInt64", "UInt128", "UInt256",
	"Int8", "Int16", "Int32", "Int64", "Int128", "Int256",
	"Float32", "Float64", "Decimal",
	"Date", "Date32", "DateTime", "DateTime64",
	"Json", "Uuid", "IPv4", "IPv6", "Complex",
}

func (t ScalarType) MarshalJSON() ([]byte, error) {
	if int(t) < 0 || int(t) >= len(scalarTypeNames) {
		return nil, fmt.Errorf("queryrequest: invalid ScalarType %d", t)
	}
	return json.Marshal(scalarTypeNames[t])
}

func (t *ScalarType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range scalarTypeNames {
		if n == name {
			*t = ScalarType(i)
			return nil
		}
	}
	return fmt.Errorf("queryrequest: unknown scalar type %q", name)
}

var aggregateFunctionNames = [...]string{
	"Max", "Min", "Sum", "StddevPop", "StddevSamp", "VarPop", "VarSamp", "Longest", "Shortest",
}

func (f SingleColumnAggregateFunction) MarshalJSON() ([]byte, error) {
	if int(f) < 0 || int(f) >= len(aggregateFunctionNames) {
		return nil, fmt.Errorf("queryrequest: invalid aggregate function %d", f)
	}
	return json.Marshal(aggregateFunctionNames[f])
}

func (f *SingleColumnAggregateFunction) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range aggregateFunctionNames {
		if n == name {
			*f = SingleColumnAggregateFunction(i)
			return nil
		}
	}
	return fmt.Errorf("queryrequest: unknown aggregate function %q", name)
}

func (d OrderDirection) MarshalJSON() ([]byte, error) {
	switch d {
	case Asc:
		return json.Marshal("asc")
	case Desc:
		return json.Marshal("desc")
	default:
		return nil, fmt.Errorf("queryrequest: invalid order direction %d", d)
	}
}

func (d *OrderDirection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "asc":
		*d = Asc
	case "desc":
		*d = Desc
	default:
		return fmt.Errorf("queryrequest: unknown order direction %q", s)
	}
	return nil
}

func (o UnaryComparisonOperator) MarshalJSON() ([]byte, error) {
	if o != IsNull {
		return nil, fmt.Errorf("queryrequest: invalid unary comparison operator %d", o)
	}
	return json.Marshal("is_null")
}

func (o *UnaryComparisonOperator) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != "is_null" {
		return fmt.Errorf("queryrequest: unknown unary comparison operator %q", s)
	}
	*o = IsNull
	return nil
}

var binaryComparisonOperatorNames = [...]string{
	"less_than", "less_than_or_equal", "equal", "greater_than", "greater_than_or_equal",
}

func (o BinaryComparisonOperator) MarshalJSON() ([]byte, error) {
	if int(o) < 0 || int(o) >= len(binaryComparisonOperatorNames) {
		return nil, fmt.Errorf("queryrequest: invalid binary comparison operator %d", o)
	}
	return json.Marshal(binaryComparisonOperatorNames[o])
}

func (o *BinaryComparisonOperator) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, n := range binaryComparisonOperatorNames {
		if n == s {
			*o = BinaryComparisonOperator(i)
			return nil
		}
	}
	return fmt.Errorf("queryrequest: unknown binary comparison operator %q", s)
}

func (o BinaryArrayComparisonOperator) MarshalJSON() ([]byte, error) {
	if o != In {
		return nil, fmt.Errorf("queryrequest: invalid binary array comparison operator %d", o)
	}
	return json.Marshal("in")
}

func (o *BinaryArrayComparisonOperator) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != "in" {
		return fmt.Errorf("queryrequest: unknown binary array comparison operator %q", s)
	}
	*o = In
	return nil
}

// boundValueWire is the tagged wire shape of BoundValue; Type decides how
// Value is re-hydrated (numeric literals decode through json.Number via
// json.Decoder.UseNumber, matching parambinder's own number handling).
type boundValueWire struct {
	Value json.RawMessage `json:"value"`
	Type  ScalarType      `json:"type"`
}

func (v BoundValue) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(boundValueWire{Value: raw, Type: v.Type})
}

func (v *BoundValue) UnmarshalJSON(b []byte) error {
	var wire boundValueWire
	if err := unmarshalUseNumber(b, &wire); err != nil {
		return err
	}
	value, err := decodeLiteral(wire.Value)
	if err != nil {
		return err
	}
	v.Value = value
	v.Type = wire.Type
	return nil
}

// unmarshalUseNumber decodes b the way json.Unmarshal does, except numbers
// land as json.Number instead of float64, matching parambinder.Param's own
// number handling.
func unmarshalUseNumber(b []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeLiteral(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v interface{}
	if err := unmarshalUseNumber(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Request unmarshals TableRelationships and Foreach directly (they carry no
// interface-typed fields) but must hand Query off to QueryNode's own decoder.
func (r *Request) UnmarshalJSON(b []byte) error {
	var wire struct {
		Table              TableName            `json:"table"`
		Query              json.RawMessage      `json:"query"`
		TableRelationships []TableRelationships `json:"table_relationships"`
		Foreach            []ForeachRow         `json:"foreach"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	r.Table = wire.Table
	r.TableRelationships = wire.TableRelationships
	r.Foreach = wire.Foreach
	if len(wire.Query) == 0 || string(wire.Query) == "null" {
		r.Query = nil
		return nil
	}
	node := new(QueryNode)
	if err := json.Unmarshal(wire.Query, node); err != nil {
		return err
	}
	r.Query = node
	return nil
}

func (n *QueryNode) UnmarshalJSON(b []byte) error {
	var wire struct {
		Fields          *orderedmap.OrderedMap[string, json.RawMessage] `json:"fields"`
		Aggregates      *orderedmap.OrderedMap[string, json.RawMessage] `json:"aggregates"`
		Selection       json.RawMessage                                 `json:"selection"`
		OrderBy         *OrderBy                                        `json:"order_by"`
		Limit           *uint64                                         `json:"limit"`
		Offset          *uint64                                         `json:"offset"`
		AggregatesLimit *uint64                                         `json:"aggregates_limit"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	if wire.Fields != nil {
		fields := orderedmap.New[string, Field]()
		for pair := wire.Fields.Oldest(); pair != nil; pair = pair.Next() {
			field, err := decodeField(pair.Value)
			if err != nil {
				return fmt.Errorf("field %q: %w", pair.Key, err)
			}
			fields.Set(pair.Key, field)
		}
		n.Fields = fields
	}

	if wire.Aggregates != nil {
		aggregates := orderedmap.New[string, Aggregate]()
		for pair := wire.Aggregates.Oldest(); pair != nil; pair = pair.Next() {
			aggregate, err := decodeAggregate(pair.Value)
			if err != nil {
				return fmt.Errorf("aggregate %q: %w", pair.Key, err)
			}
			aggregates.Set(pair.Key, aggregate)
		}
		n.Aggregates = aggregates
	}

	if len(wire.Selection) > 0 && string(wire.Selection) != "null" {
		selection, err := decodeExpression(wire.Selection)
		if err != nil {
			return fmt.Errorf("selection: %w", err)
		}
		n.Selection = selection
	}

	n.OrderBy = wire.OrderBy
	n.Limit = wire.Limit
	n.Offset = wire.Offset
	n.AggregatesLimit = wire.AggregatesLimit
	return nil
}

func (n QueryNode) MarshalJSON() ([]byte, error) {
	wire := struct {
		Fields          *orderedmap.OrderedMap[string, json.RawMessage] `json:"fields,omitempty"`
		Aggregates      *orderedmap.OrderedMap[string, json.RawMessage] `json:"aggregates,omitempty"`
		Selection       json.RawMessage                                 `json:"selection,omitempty"`
		OrderBy         *OrderBy                                        `json:"order_by,omitempty"`
		Limit           *uint64                                         `json:"limit,omitempty"`
		Offset          *uint64                                         `json:"offset,omitempty"`
		AggregatesLimit *uint64                                         `json:"aggregates_limit,omitempty"`
	}{OrderBy: n.OrderBy, Limit: n.Limit, Offset: n.Offset, AggregatesLimit: n.AggregatesLimit}

	if n.Fields != nil {
		fields := orderedmap.New[string, json.RawMessage]()
		for pair := n.Fields.Oldest(); pair != nil; pair = pair.Next() {
			raw, err := json.Marshal(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", pair.Key, err)
			}
			fields.Set(pair.Key, raw)
		}
		wire.Fields = fields
	}
	if n.Aggregates != nil {
		aggregates := orderedmap.New[string, json.RawMessage]()
		for pair := n.Aggregates.Oldest(); pair != nil; pair = pair.Next() {
			raw, err := json.Marshal(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("aggregate %q: %w", pair.Key, err)
			}
			aggregates.Set(pair.Key, raw)
		}
		wire.Aggregates = aggregates
	}
	if n.Selection != nil {
		raw, err := json.Marshal(n.Selection)
		if err != nil {
			return nil, fmt.Errorf("selection: %w", err)
		}
		wire.Selection = raw
	}
	return json.Marshal(wire)
}

// --- Field ---

func decodeField(raw json.RawMessage) (Field, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, err
	}
	switch disc.Type {
	case "column":
		var f ColumnField
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		return f, nil
	case "relationship":
		var f RelationshipField
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown field type %q", disc.Type)
	}
}

func (f ColumnField) MarshalJSON() ([]byte, error) {
	type wire ColumnField
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "column", wire: wire(f)})
}

func (f RelationshipField) MarshalJSON() ([]byte, error) {
	type wire RelationshipField
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "relationship", wire: wire(f)})
}

// --- Aggregate ---

func decodeAggregate(raw json.RawMessage) (Aggregate, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, err
	}
	switch disc.Type {
	case "star_count":
		return StarCountAggregate{}, nil
	case "column_count":
		var a ColumnCountAggregate
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	case "single_column":
		var a SingleColumnAggregate
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown aggregate type %q", disc.Type)
	}
}

func (a StarCountAggregate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "star_count"})
}

func (a ColumnCountAggregate) MarshalJSON() ([]byte, error) {
	type wire ColumnCountAggregate
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "column_count", wire: wire(a)})
}

func (a SingleColumnAggregate) MarshalJSON() ([]byte, error) {
	type wire SingleColumnAggregate
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "single_column", wire: wire(a)})
}

// --- OrderByTarget ---

func decodeOrderByTarget(raw json.RawMessage) (OrderByTarget, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, err
	}
	switch disc.Type {
	case "star_count":
		return StarCountAggregateTarget{}, nil
	case "single_column":
		var t SingleColumnAggregateTarget
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		return t, nil
	case "column":
		var t ColumnTarget
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown order-by target type %q", disc.Type)
	}
}

func (t StarCountAggregateTarget) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: "star_count"})
}

func (t SingleColumnAggregateTarget) MarshalJSON() ([]byte, error) {
	type wire SingleColumnAggregateTarget
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "single_column", wire: wire(t)})
}

func (t ColumnTarget) MarshalJSON() ([]byte, error) {
	type wire ColumnTarget
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "column", wire: wire(t)})
}

func (e *OrderByElement) UnmarshalJSON(b []byte) error {
	var wire struct {
		TargetPath []string        `json:"target_path"`
		Target     json.RawMessage `json:"target"`
		Direction  OrderDirection  `json:"direction"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	target, err := decodeOrderByTarget(wire.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	e.TargetPath = wire.TargetPath
	e.Target = target
	e.Direction = wire.Direction
	return nil
}

func (e OrderByElement) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return json.Marshal(struct {
		TargetPath []string        `json:"target_path,omitempty"`
		Target     json.RawMessage `json:"target"`
		Direction  OrderDirection  `json:"direction"`
	}{TargetPath: e.TargetPath, Target: raw, Direction: e.Direction})
}

func (r *OrderByRelation) UnmarshalJSON(b []byte) error {
	var wire struct {
		Subrelations *orderedmap.OrderedMap[string, OrderByRelation] `json:"subrelations"`
		Selection    json.RawMessage                                 `json:"selection"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	r.Subrelations = wire.Subrelations
	if len(wire.Selection) > 0 && string(wire.Selection) != "null" {
		selection, err := decodeExpression(wire.Selection)
		if err != nil {
			return fmt.Errorf("selection: %w", err)
		}
		r.Selection = selection
	}
	return nil
}

func (r OrderByRelation) MarshalJSON() ([]byte, error) {
	wire := struct {
		Subrelations *orderedmap.OrderedMap[string, OrderByRelation] `json:"subrelations,omitempty"`
		Selection    json.RawMessage                                 `json:"selection,omitempty"`
	}{Subrelations: r.Subrelations}
	if r.Selection != nil {
		raw, err := json.Marshal(r.Selection)
		if err != nil {
			return nil, fmt.Errorf("selection: %w", err)
		}
		wire.Selection = raw
	}
	return json.Marshal(wire)
}

// --- ComparisonValue ---

func decodeComparisonValue(raw json.RawMessage) (ComparisonValue, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, err
	}
	switch disc.Type {
	case "scalar":
		var wire struct {
			Value     json.RawMessage `json:"value"`
			ValueType ScalarType      `json:"value_type"`
		}
		if err := unmarshalUseNumber(raw, &wire); err != nil {
			return nil, err
		}
		value, err := decodeLiteral(wire.Value)
		if err != nil {
			return nil, err
		}
		return ScalarValueComparison{Value: value, ValueType: wire.ValueType}, nil
	case "column":
		var v AnotherColumnComparison
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown comparison value type %q", disc.Type)
	}
}

func (v ScalarValueComparison) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type      string          `json:"type"`
		Value     json.RawMessage `json:"value"`
		ValueType ScalarType      `json:"value_type"`
	}{Type: "scalar", Value: raw, ValueType: v.ValueType})
}

func (v AnotherColumnComparison) MarshalJSON() ([]byte, error) {
	type wire AnotherColumnComparison
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "column", wire: wire(v)})
}

// --- ExistsInTable ---

func decodeExistsInTable(raw json.RawMessage) (ExistsInTable, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, err
	}
	switch disc.Type {
	case "unrelated_table":
		var v UnrelatedTable
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "related_table":
		var v RelatedTable
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown exists-in-table type %q", disc.Type)
	}
}

func (t UnrelatedTable) MarshalJSON() ([]byte, error) {
	type wire UnrelatedTable
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "unrelated_table", wire: wire(t)})
}

func (t RelatedTable) MarshalJSON() ([]byte, error) {
	type wire RelatedTable
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "related_table", wire: wire(t)})
}

// --- Expression ---

func decodeExpression(raw json.RawMessage) (Expression, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, err
	}
	switch disc.Type {
	case "and":
		var wire struct {
			Expressions []json.RawMessage `json:"expressions"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		exprs, err := decodeExpressionList(wire.Expressions)
		if err != nil {
			return nil, err
		}
		return AndExpression{Expressions: exprs}, nil
	case "or":
		var wire struct {
			Expressions []json.RawMessage `json:"expressions"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		exprs, err := decodeExpressionList(wire.Expressions)
		if err != nil {
			return nil, err
		}
		return OrExpression{Expressions: exprs}, nil
	case "not":
		var wire struct {
			Expression json.RawMessage `json:"expression"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		inner, err := decodeExpression(wire.Expression)
		if err != nil {
			return nil, err
		}
		return NotExpression{Expression: inner}, nil
	case "unary_comparison":
		var e UnaryComparisonExpression
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	case "binary_comparison":
		var wire struct {
			Column   ComparisonColumn         `json:"column"`
			Operator BinaryComparisonOperator `json:"operator"`
			Value    json.RawMessage          `json:"value"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		value, err := decodeComparisonValue(wire.Value)
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		return BinaryComparisonExpression{Column: wire.Column, Operator: wire.Operator, Value: value}, nil
	case "binary_array_comparison":
		var wire struct {
			Column    ComparisonColumn              `json:"column"`
			Operator  BinaryArrayComparisonOperator `json:"operator"`
			ValueType ScalarType                    `json:"value_type"`
			Values    []json.RawMessage             `json:"values"`
		}
		if err := unmarshalUseNumber(raw, &wire); err != nil {
			return nil, err
		}
		values := make([]interface{}, len(wire.Values))
		for i, rawValue := range wire.Values {
			v, err := decodeLiteral(rawValue)
			if err != nil {
				return nil, fmt.Errorf("values[%d]: %w", i, err)
			}
			values[i] = v
		}
		return BinaryArrayComparisonExpression{Column: wire.Column, Operator: wire.Operator, ValueType: wire.ValueType, Values: values}, nil
	case "exists":
		var wire struct {
			InTable   json.RawMessage `json:"in_table"`
			Selection json.RawMessage `json:"selection"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		inTable, err := decodeExistsInTable(wire.InTable)
		if err != nil {
			return nil, fmt.Errorf("in_table: %w", err)
		}
		var selection Expression
		if len(wire.Selection) > 0 && string(wire.Selection) != "null" {
			selection, err = decodeExpression(wire.Selection)
			if err != nil {
				return nil, fmt.Errorf("selection: %w", err)
			}
		}
		return ExistsExpression{InTable: inTable, Selection: selection}, nil
	default:
		return nil, fmt.Errorf("unknown expression type %q", disc.Type)
	}
}

func decodeExpressionList(raws []json.RawMessage) ([]Expression, error) {
	if raws == nil {
		return nil, nil
	}
	exprs := make([]Expression, len(raws))
	for i, raw := range raws {
		e, err := decodeExpression(raw)
		if err != nil {
			return nil, fmt.Errorf("expressions[%d]: %w", i, err)
		}
		exprs[i] = e
	}
	return exprs, nil
}

func (e AndExpression) MarshalJSON() ([]byte, error) {
	return marshalExpressionList("and", e.Expressions)
}

func (e OrExpression) MarshalJSON() ([]byte, error) {
	return marshalExpressionList("or", e.Expressions)
}

func marshalExpressionList(typeName string, expressions []Expression) ([]byte, error) {
	raws := make([]json.RawMessage, len(expressions))
	for i, e := range expressions {
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("expressions[%d]: %w", i, err)
		}
		raws[i] = raw
	}
	return json.Marshal(struct {
		Type        string            `json:"type"`
		Expressions []json.RawMessage `json:"expressions"`
	}{Type: typeName, Expressions: raws})
}

func (e NotExpression) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Expression)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type       string          `json:"type"`
		Expression json.RawMessage `json:"expression"`
	}{Type: "not", Expression: raw})
}

func (e UnaryComparisonExpression) MarshalJSON() ([]byte, error) {
	type wire UnaryComparisonExpression
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "unary_comparison", wire: wire(e)})
}

func (e BinaryComparisonExpression) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	return json.Marshal(struct {
		Type     string                   `json:"type"`
		Column   ComparisonColumn         `json:"column"`
		Operator BinaryComparisonOperator `json:"operator"`
		Value    json.RawMessage          `json:"value"`
	}{Type: "binary_comparison", Column: e.Column, Operator: e.Operator, Value: raw})
}

func (e BinaryArrayComparisonExpression) MarshalJSON() ([]byte, error) {
	type wire BinaryArrayComparisonExpression
	return json.Marshal(struct {
		Type string `json:"type"`
		wire
	}{Type: "binary_array_comparison", wire: wire(e)})
}

func (e ExistsExpression) MarshalJSON() ([]byte, error) {
	inTableRaw, err := json.Marshal(e.InTable)
	if err != nil {
		return nil, fmt.Errorf("in_table: %w", err)
	}
	wire := struct {
		Type      string          `json:"type"`
		InTable   json.RawMessage `json:"in_table"`
		Selection json.RawMessage `json:"selection,omitempty"`
	}{Type: "exists", InTable: inTableRaw}
	if e.Selection != nil {
		selectionRaw, err := json.Marshal(e.Selection)
		if err != nil {
			return nil, fmt.Errorf("selection: %w", err)
		}
		wire.Selection = selectionRaw
	}
	return json.Marshal(wire)
}
