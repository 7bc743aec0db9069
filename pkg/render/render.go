// Package render assembles analyzed result columns into TypeScript type
// expressions.
//
// The per-column key/value pairing and the final pretty-printing are both
// pluggable: the column formatter receives (name, tsType) pairs, and the
// printer receives the full source wrapped in a `type T = ...` sentinel
// which is stripped again afterwards.
package render

import (
	"fmt"
	"strings"

	"github.com/pthm/mentat/pkg/analyze"
	"github.com/pthm/mentat/pkg/sqltype"
)

// ColumnFormatter renders one object property from a column name and its
// TypeScript type.
type ColumnFormatter func(name, tsType string) string

// Printer formats a complete TypeScript source fragment.
type Printer func(source string) (string, error)

// DefaultColumnFormatter quotes the name and terminates with a comma.
func DefaultColumnFormatter(name, tsType string) string {
	return fmt.Sprintf("%q: %s,", name, tsType)
}

const sentinelPrefix = "type T = "

// Renderer renders query result columns through a type mapper.
type Renderer struct {
	mapper *sqltype.Mapper
	format ColumnFormatter
	print  Printer
}

// New returns a Renderer. A nil formatter or printer selects the default.
func New(mapper *sqltype.Mapper, format ColumnFormatter, print Printer) *Renderer {
	if format == nil {
		format = DefaultColumnFormatter
	}
	if print == nil {
		print = DefaultPrinter
	}
	return &Renderer{mapper: mapper, format: format, print: print}
}

// Query renders the result columns of one query. When every column carries
// set variants the output is a union of object types, one per operand
// query; otherwise a single object type.
func (r *Renderer) Query(cols []analyze.ResultColumn) (string, error) {
	body, err := r.body(cols)
	if err != nil {
		return "", err
	}

	printed, err := r.print(sentinelPrefix + body + ";")
	if err != nil {
		return "", fmt.Errorf("pretty-printing: %w", err)
	}
	printed = strings.TrimSpace(printed)
	printed = strings.TrimPrefix(printed, strings.TrimSpace(sentinelPrefix)+" ")
	printed = strings.TrimSuffix(printed, ";")
	return strings.TrimSpace(printed), nil
}

func (r *Renderer) body(cols []analyze.ResultColumn) (string, error) {
	if variants := variantCount(cols); variants > 0 {
		objects := make([]string, variants)
		for v := 0; v < variants; v++ {
			object := make([]string, len(cols))
			for i, col := range cols {
				if len(col.SetVariants) != variants {
					return "", fmt.Errorf("column %q has %d set variants, want %d", col.Name, len(col.SetVariants), variants)
				}
				object[i] = r.format(col.Name, r.columnType(col.SetVariants[v]))
			}
			objects[v] = wrapObject(object)
		}
		return strings.Join(objects, " | "), nil
	}

	object := make([]string, len(cols))
	for i, col := range cols {
		object[i] = r.format(col.Name, r.columnType(col.Expression))
	}
	return wrapObject(object), nil
}

// variantCount returns the shared set-variant count, or 0 when any column
// lacks variants (a plain, non-set query).
func variantCount(cols []analyze.ResultColumn) int {
	if len(cols) == 0 {
		return 0
	}
	for _, col := range cols {
		if len(col.SetVariants) == 0 {
			return 0
		}
	}
	return len(cols[0].SetVariants)
}

// columnType renders one column as a deduplicated union: each branch's
// literal (or mapped type), or the column's own literal or mapped type,
// plus null when the column is nullable.
func (r *Renderer) columnType(e analyze.Expression) string {
	var parts []string
	switch {
	case len(e.Branches) > 0:
		for _, b := range e.Branches {
			parts = append(parts, r.leafType(b))
		}
	default:
		parts = append(parts, r.leafType(e))
	}
	if e.Nullable {
		parts = append(parts, "null")
	}
	return strings.Join(dedup(parts), " | ")
}

func (r *Renderer) leafType(e analyze.Expression) string {
	if e.Constant != "" {
		return e.Constant
	}
	return r.mapper.Map(e.Type)
}

func wrapObject(properties []string) string {
	if len(properties) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(properties, " ") + " }"
}

func dedup(parts []string) []string {
	seen := make(map[string]bool, len(parts))
	out := parts[:0]
	for _, p := range parts {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// DefaultPrinter normalizes whitespace and drops the trailing comma before
// a closing brace, producing stable single-line output.
func DefaultPrinter(source string) (string, error) {
	out := strings.Join(strings.Fields(source), " ")
	out = strings.ReplaceAll(out, ", }", " }")
	return out, nil
}
