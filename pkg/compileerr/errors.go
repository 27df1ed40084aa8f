// Package compileerr defines the taxonomy of query-compile failures.
// Grounded on the dbmanager error pattern this project inherited: sentinel
// kinds plus a wrapper struct carrying per-kind context, Unwrap-able to the
// underlying cause where one exists.
package compileerr

import (
	"fmt"
	"strings"

	"github.com/chqlbuilder/chqlbuilder/pkg/queryrequest"
)

// Kind identifies the category of a compile failure.
type Kind int

const (
	// KindTableMissing: a relationship lookup named a source table that is
	// not listed in the request's table_relationships.
	KindTableMissing Kind = iota
	// KindRelationshipMissingInTable: the named relationship does not exist
	// on an otherwise-known source table.
	KindRelationshipMissingInTable
	// KindRightHandColumnComparisonNotSupported: a predicate compared a
	// column to another column.
	KindRightHandColumnComparisonNotSupported
	// KindUnsupportedColumnComparisonPath: a predicate comparison column
	// carried a non-empty relationship-traversal path.
	KindUnsupportedColumnComparisonPath
	// KindAliasUnknown: the alias resolver found no physical mapping for an
	// identifier declared under strict alias resolution.
	KindAliasUnknown
	// KindInternal: a serialisation or arithmetic invariant was violated
	// (e.g. limit+offset overflow). Preserved verbatim for diagnostics.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindTableMissing:
		return "table_missing"
	case KindRelationshipMissingInTable:
		return "relationship_missing_in_table"
	case KindRightHandColumnComparisonNotSupported:
		return "right_hand_column_comparison_not_supported"
	case KindUnsupportedColumnComparisonPath:
		return "unsupported_column_comparison_path"
	case KindAliasUnknown:
		return "alias_unknown"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the concrete compile-error type returned throughout pkg/compiler
// and pkg/aliasresolver. It is never wrapped in a generic error — callers
// type-assert or use errors.As to recover Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is supports errors.Is comparisons against a bare Kind sentinel created via
// the constructors below (their Err field is nil, so equality is by Kind).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func tableString(table queryrequest.TableName) string {
	return strings.Join(table, ".")
}

// TableMissing builds a KindTableMissing error for the given source table.
func TableMissing(table queryrequest.TableName) *Error {
	return &Error{
		Kind:    KindTableMissing,
		Message: fmt.Sprintf("table %q is not listed in table_relationships", tableString(table)),
	}
}

// RelationshipMissingInTable builds a KindRelationshipMissingInTable error.
func RelationshipMissingInTable(relationship string, table queryrequest.TableName) *Error {
	return &Error{
		Kind:    KindRelationshipMissingInTable,
		Message: fmt.Sprintf("relationship %q not found on table %q", relationship, tableString(table)),
	}
}

// RightHandColumnComparisonNotSupported builds the corresponding error.
func RightHandColumnComparisonNotSupported(column string) *Error {
	return &Error{
		Kind:    KindRightHandColumnComparisonNotSupported,
		Message: fmt.Sprintf("comparison against another column %q is not supported", column),
	}
}

// UnsupportedColumnComparisonPath builds the corresponding error.
func UnsupportedColumnComparisonPath(path []string) *Error {
	return &Error{
		Kind:    KindUnsupportedColumnComparisonPath,
		Message: fmt.Sprintf("comparison column path %q is not supported", strings.Join(path, ".")),
	}
}

// AliasUnknown builds the corresponding error.
func AliasUnknown(name string) *Error {
	return &Error{
		Kind:    KindAliasUnknown,
		Message: fmt.Sprintf("alias %q has no configured mapping", name),
	}
}

// Internal builds a KindInternal error, preserving msg verbatim.
func Internal(msg string) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: msg,
	}
}

// InternalWrap builds a KindInternal error wrapping a lower-level cause.
func InternalWrap(msg string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: fmt.Sprintf("%s: %v", msg, err),
		Err:     err,
	}
}
