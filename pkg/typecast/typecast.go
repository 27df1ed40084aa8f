// Package typecast maps the request model's scalar-type tags to the
// ClickHouse type strings used in the envelope cast. Every mapped type is
// wrapped in Nullable(...): the compiler never knows whether the backing
// column is actually nullable, so the cast envelope always allows for it.
package typecast

import "github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"

// CastString returns the ClickHouse type string for scalar_type, wrapped in
// Nullable(...). Complex and Decimal map to Nullable(String): Complex
// because its shape is opaque JSON, Decimal because its precision/scale are
// not carried by the request model.
func CastString(scalarType queryrequest.ScalarType) string {
	switch scalarType {
	case queryrequest.Bool:
		return "Nullable(Bool)"
	case queryrequest.String:
		return "Nullable(String)"
	case queryrequest.FixedString:
		return "Nullable(FixedString)"
	case queryrequest.UInt8:
		return "Nullable(UInt8)"
	case queryrequest.UInt16:
		return "Nullable(UInt16)"
	case queryrequest.UInt32:
		return "Nullable(UInt32)"
	case queryrequest.UInt64:
		return "Nullable(UInt64)"
	case queryrequest.UInt128:
		return "Nullable(UInt128)"
	case queryrequest.UInt256:
		return "Nullable(UInt256)"
	case queryrequest.Int8:
		return "Nullable(Int8)"
	case queryrequest.Int16:
		return "Nullable(Int16)"
	case queryrequest.Int32:
		return "Nullable(Int32)"
	case queryrequest.Int64:
		return "Nullable(Int64)"
	case queryrequest.Int128:
		return "Nullable(Int128)"
	case queryrequest.Int256:
		return "Nullable(Int256)"
	case queryrequest.Float32:
		return "Nullable(Float32)"
	case queryrequest.Float64:
		return "Nullable(Float64)"
	case queryrequest.Decimal:
		return "Nullable(String)"
	case queryrequest.Date:
		return "Nullable(Date)"
	case queryrequest.Date32:
		return "Nullable(Date32)"
	case queryrequest.DateTime:
		return "Nullable(DateTime)"
	case queryrequest.DateTime64:
		return "Nullable(DateTime64(9))"
	case queryrequest.Json:
		return "Nullable(JSON)"
	case queryrequest.Uuid:
		return "Nullable(UUID)"
	case queryrequest.IPv4:
		return "Nullable(IPv4)"
	case queryrequest.IPv6:
		return "Nullable(IPv6)"
	case queryrequest.Complex:
		return "Nullable(String)"
	default:
		return "Nullable(String)"
	}
}

// IsNumeric reports whether scalar_type's natural zero value is a numeric
// literal (used by the order-by default-value rule: numeric types default
// to 0, everything else to NULL or '' for strings).
func IsNumeric(scalarType queryrequest.ScalarType) bool {
	switch scalarType {
	case queryrequest.UInt8, queryrequest.UInt16, queryrequest.UInt32, queryrequest.UInt64,
		queryrequest.UInt128, queryrequest.UInt256, queryrequest.Int8, queryrequest.Int16,
		queryrequest.Int32, queryrequest.Int64, queryrequest.Int128, queryrequest.Int256,
		queryrequest.Float32, queryrequest.Float64, queryrequest.Decimal:
		return true
	default:
		return false
	}
}

// IsString reports whether scalar_type's order-by default value is the
// empty string rather than NULL.
func IsString(scalarType queryrequest.ScalarType) bool {
	return scalarType == queryrequest.String || scalarType == queryrequest.FixedString
}
