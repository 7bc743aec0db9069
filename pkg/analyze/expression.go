// Package analyze computes result types for SQL statements by walking
// PostgreSQL parse trees against a schema catalog.
//
// The entry point is the Analyzer, constructed over an immutable catalog.
// Statement produces one ResultColumn per projected column, carrying the
// SQL type, nullability, and when the analyzer can prove more: the literal
// value of a constant, the branches of a CASE/COALESCE/VALUES column, or
// the per-operand variants of a set operation. The renderer narrows those
// into literal and union TypeScript types.
//
// Analysis is pure tree recursion with no I/O; an Analyzer may be shared by
// concurrent goroutines.
package analyze

import (
	"github.com/pthm/mentat/pkg/catalog"
	"github.com/pthm/mentat/pkg/sqltype"
)

// Expression is the computed description of one expression node.
type Expression struct {
	// Type is the SQL type tag of the expression's value.
	Type sqltype.Type

	// Nullable reports whether the value may be NULL, widened by
	// outer-join position and by null-preserving expression rules.
	Nullable bool

	// Name is the inferred column name. Only a bare column reference
	// produces one.
	Name string

	// Constant holds the rendered literal ("42", "\"abc\"", "true") when
	// the expression is provably a single literal. Empty otherwise; no
	// rendered literal is ever the empty string, string literals render
	// with their quotes.
	Constant string

	// Branches enumerates the possible values of a CASE, COALESCE, or
	// VALUES column, each carrying its own Constant so the renderer can
	// union them.
	Branches []Expression

	// SetVariants holds one expression per operand query of a set
	// operation, in source order.
	SetVariants []Expression
}

// ResultColumn is a named expression: one column of a statement's result.
type ResultColumn struct {
	Name string
	Expression
}

// Analyzer resolves statements against a schema catalog. The catalog maps
// are read, never written; per-query mutations (CTE installation, join
// nullability) happen on scope-local clones.
type Analyzer struct {
	schemas       catalog.Schemas
	defaultSchema string
}

// New returns an Analyzer over the given catalog. The default schema is
// where unqualified table references resolve and where CTE tables are
// installed during analysis.
func New(schemas catalog.Schemas, defaultSchema string) *Analyzer {
	return &Analyzer{schemas: schemas, defaultSchema: defaultSchema}
}
