package parambinder

import (
	"encoding/json"
	"testing"

	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

func TestBindWithBindParamsProducesSequentialPlaceholders(t *testing.T) {
	b := New(true)

	e0 := b.Bind(ValueParam("alice", queryrequest.String))
	e1 := b.Bind(NumberParam(json.Number("42")))

	p0, ok := e0.(sqlast.ValueExpr).Value.(sqlast.PlaceholderValue)
	if !ok || p0.Name != "__placeholder__0" {
		t.Fatalf("expected __placeholder__0, got %#v", e0)
	}
	p1, ok := e1.(sqlast.ValueExpr).Value.(sqlast.PlaceholderValue)
	if !ok || p1.Name != "__placeholder__1" {
		t.Fatalf("expected __placeholder__1, got %#v", e1)
	}
	if b.Parameters().Len() != 2 {
		t.Fatalf("expected 2 recorded parameters, got %d", b.Parameters().Len())
	}

	var names []string
	for pair := b.Parameters().Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	if names[0] != "__placeholder__0" || names[1] != "__placeholder__1" {
		t.Fatalf("unexpected parameter insertion order: %v", names)
	}
}

func TestBindWithoutBindParamsInlinesLiterals(t *testing.T) {
	b := New(false)

	e := b.Bind(ValueParam("alice", queryrequest.String))
	s, ok := e.(sqlast.ValueExpr).Value.(sqlast.SingleQuotedStringValue)
	if !ok || s.Text != "alice" {
		t.Fatalf("expected inlined string literal, got %#v", e)
	}

	if b.Parameters().Len() != 0 {
		t.Fatalf("expected no recorded parameters when bind_params=false, got %d", b.Parameters().Len())
	}
}

func TestInlineValueArraysAndObjectsSerialiseToJSONText(t *testing.T) {
	b := New(false)
	e := b.Bind(ValueParam([]interface{}{"a", "b"}, queryrequest.String))
	s, ok := e.(sqlast.ValueExpr).Value.(sqlast.SingleQuotedStringValue)
	if !ok {
		t.Fatalf("expected single-quoted string, got %#v", e)
	}
	if s.Text != `["a","b"]` {
		t.Fatalf("unexpected serialised array: %s", s.Text)
	}
}

func TestInlineValueNullAndBoolean(t *testing.T) {
	b := New(false)

	nullExpr := b.Bind(ValueParam(nil, queryrequest.String))
	if _, ok := nullExpr.(sqlast.ValueExpr).Value.(sqlast.NullValue); !ok {
		t.Fatalf("expected NullValue, got %#v", nullExpr)
	}

	boolExpr := b.Bind(ValueParam(true, queryrequest.Bool))
	bv, ok := boolExpr.(sqlast.ValueExpr).Value.(sqlast.BooleanValue)
	if !ok || !bv.Value {
		t.Fatalf("expected BooleanValue(true), got %#v", boolExpr)
	}
}
