// Package parambinder collects scalar literals encountered while compiling
// a request into an ordered parameter map, and emits either a placeholder
// reference or an inlined literal expression for each one. Parameter
// ordering is part of the contract with the database client: insertion
// order must equal left-to-right traversal order of the emitted AST, so the
// map is backed by go-ordered-map rather than a plain Go map.
package parambinder

import (
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

// Param is a value awaiting binding: either a bare number (used for limit
// and offset arithmetic) or a typed value (used for selection literals and
// foreach bindings).
type Param struct {
	IsNumber bool
	Number   json.Number
	Value    interface{}
	ValueType queryrequest.ScalarType
}

// NumberParam builds a bare-number Param.
func NumberParam(n json.Number) Param {
	return Param{IsNumber: true, Number: n}
}

// ValueParam builds a typed-value Param.
func ValueParam(value interface{}, valueType queryrequest.ScalarType) Param {
	return Param{Value: value, ValueType: valueType}
}

// Binder accumulates bound parameters across one compile.
type Binder struct {
	bindParams bool
	parameters *orderedmap.OrderedMap[string, Param]
	nextIndex  int
}

// New creates a Binder. When bindParams is true, Bind emits placeholder
// references and records each bound value; when false, Bind inlines the
// literal directly and the parameter map stays empty.
func New(bindParams bool) *Binder {
	return &Binder{
		bindParams: bindParams,
		parameters: orderedmap.New[string, Param](),
	}
}

// Parameters returns the accumulated ordered parameter map.
func (b *Binder) Parameters() *orderedmap.OrderedMap[string, Param] {
	return b.parameters
}

// Bind records p (if binding is enabled) and returns the expression to
// splice into the AST in its place.
func (b *Binder) Bind(p Param) sqlast.Expr {
	if b.bindParams {
		name := fmt.Sprintf("__placeholder__%d", b.nextIndex)
		b.nextIndex++
		b.parameters.Set(name, p)
		return sqlast.ValueExpr{Value: sqlast.PlaceholderValue{Name: name}}
	}
	return sqlast.ValueExpr{Value: inlineValue(p)}
}

func inlineValue(p Param) sqlast.Value {
	if p.IsNumber {
		return sqlast.NumberValue{Literal: p.Number.String()}
	}
	switch v := p.Value.(type) {
	case nil:
		return sqlast.NullValue{}
	case bool:
		return sqlast.BooleanValue{Value: v}
	case json.Number:
		return sqlast.NumberValue{Literal: v.String()}
	case float64:
		return sqlast.NumberValue{Literal: strconv.FormatFloat(v, 'f', -1, 64)}
	case int, int32, int64:
		return sqlast.NumberValue{Literal: fmt.Sprintf("%d", v)}
	case string:
		return sqlast.SingleQuotedStringValue{Text: v}
	default:
		// arrays and objects are re-serialised to their JSON text and
		// embedded as a single-quoted string.
		text, err := json.Marshal(v)
		if err != nil {
			return sqlast.SingleQuotedStringValue{Text: fmt.Sprintf("%v", v)}
		}
		return sqlast.SingleQuotedStringValue{Text: string(text)}
	}
}
