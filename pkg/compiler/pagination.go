package compiler

import (
	"strconv"

	"github.com/chqlbuilder/chqlbuilder/pkg/compileerr"
	"github.com/chqlbuilder/chqlbuilder/pkg/sqlast"
)

// limitOffsetExpression builds the _rn-based pagination predicate. A nil
// limit and offset means no predicate at all (the whole groupArray'd
// partition is kept). limit+offset is computed with an overflow check
// rather than assumed safe, since both are attacker-controlled request
// fields.
func (c *Compiler) limitOffsetExpression(limit, offset *uint64) (sqlast.Expr, error) {
	rn := sqlast.Expr(sqlast.CompoundIdentifier{Parts: []sqlast.Ident{sqlast.Quoted("_row"), sqlast.Quoted("_rn")}})

	switch {
	case limit == nil && offset == nil:
		return nil, nil
	case limit == nil:
		return &sqlast.BinaryOp{
			Left: rn, Op: sqlast.OpGt,
			Right: sqlast.ValueExpr{Value: sqlast.NumberValue{Literal: strconv.FormatUint(*offset, 10)}},
		}, nil
	case offset == nil:
		return &sqlast.BinaryOp{
			Left: rn, Op: sqlast.OpLtEq,
			Right: sqlast.ValueExpr{Value: sqlast.NumberValue{Literal: strconv.FormatUint(*limit, 10)}},
		}, nil
	default:
		sum, overflow := addOverflows(*limit, *offset)
		if overflow {
			return nil, compileerr.Internal("limit+offset overflows u64")
		}
		left := &sqlast.BinaryOp{
			Left: rn, Op: sqlast.OpGt,
			Right: sqlast.ValueExpr{Value: sqlast.NumberValue{Literal: strconv.FormatUint(*offset, 10)}},
		}
		right := &sqlast.BinaryOp{
			Left: rn, Op: sqlast.OpLtEq,
			Right: sqlast.ValueExpr{Value: sqlast.NumberValue{Literal: strconv.FormatUint(sum, 10)}},
		}
		return &sqlast.BinaryOp{Left: left, Op: sqlast.OpAnd, Right: right}, nil
	}
}

func addOverflows(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}
