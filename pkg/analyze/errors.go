package analyze

import (
	"errors"
	"fmt"
)

// Sentinel error categories raised during analysis. Callers discriminate
// with errors.Is; the wrapped message carries the offending name or
// construct.
var (
	// ErrUnknownTable means a referenced table or view is in neither the
	// scope nor the catalog.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn means a column reference resolves against no scoped
	// table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrMissingAlias means a target-list item has no explicit alias and no
	// name can be inferred from it.
	ErrMissingAlias = errors.New("missing alias")

	// ErrUnsupported means a node kind, operator, function, or subscript
	// form is outside the supported set.
	ErrUnsupported = errors.New("unsupported")

	// ErrParse wraps failures surfaced by the SQL parser.
	ErrParse = errors.New("parse error")
)

func unknownTable(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

func unknownColumn(ref string) error {
	return fmt.Errorf("%w: %s", ErrUnknownColumn, ref)
}

func missingAlias(detail string) error {
	return fmt.Errorf("%w: %s", ErrMissingAlias, detail)
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...))
}
