// Package catalog models the database schema the analyzer resolves names
// against: columns grouped into tables, tables grouped into schemas, and
// enum types with their declared labels.
//
// Catalogs are built once (see Load) and treated as immutable afterwards;
// per-query analysis works on cheap clones so concurrent analyses can share
// a single catalog without synchronization.
package catalog

import (
	"sort"

	"github.com/pthm/mentat/pkg/sqltype"
)

// Column is a single table column.
type Column struct {
	Type     sqltype.Type
	Nullable bool
}

// ColumnSet is an insertion-ordered mapping from column name to Column.
// Writing an existing name overwrites the value but keeps the original
// position, matching how star expansion folds duplicate names.
type ColumnSet struct {
	names []string
	cols  map[string]Column
}

// NewColumnSet returns an empty ColumnSet.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{cols: make(map[string]Column)}
}

// Set adds or replaces a column. Last write wins; first position is kept.
func (s *ColumnSet) Set(name string, c Column) {
	if _, ok := s.cols[name]; !ok {
		s.names = append(s.names, name)
	}
	s.cols[name] = c
}

// Get returns the column with the given name.
func (s *ColumnSet) Get(name string) (Column, bool) {
	c, ok := s.cols[name]
	return c, ok
}

// Names returns the column names in insertion order.
func (s *ColumnSet) Names() []string { return s.names }

// Len returns the number of columns.
func (s *ColumnSet) Len() int { return len(s.names) }

// Clone returns an independent copy of the set.
func (s *ColumnSet) Clone() *ColumnSet {
	out := &ColumnSet{
		names: append([]string(nil), s.names...),
		cols:  make(map[string]Column, len(s.cols)),
	}
	for name, c := range s.cols {
		out.cols[name] = c
	}
	return out
}

// Table is a relation visible to queries: a base table, view, materialized
// view, CTE, or subquery result. Nullable marks the whole row as possibly
// absent (the outer side of a join); every column then resolves as nullable.
type Table struct {
	Columns  *ColumnSet
	Nullable bool
}

// Schemas maps schema name to table name to Table.
type Schemas map[string]map[string]Table

// Table returns the named table.
func (s Schemas) Table(schema, name string) (Table, bool) {
	tables, ok := s[schema]
	if !ok {
		return Table{}, false
	}
	t, ok := tables[name]
	return t, ok
}

// Put stores a table, creating the schema entry when needed.
func (s Schemas) Put(schema, name string, t Table) {
	tables, ok := s[schema]
	if !ok {
		tables = make(map[string]Table)
		s[schema] = tables
	}
	tables[name] = t
}

// SchemaNames returns the schema names, sorted.
func (s Schemas) SchemaNames() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TableNames returns the table names of one schema, sorted.
func (s Schemas) TableNames(schema string) []string {
	names := make([]string, 0, len(s[schema]))
	for n := range s[schema] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Enums maps an enum type name to its labels in declared sort order.
type Enums map[string][]string

// ViewDef is the source SQL of a view or materialized view, analyzed after
// base tables are loaded so views are queryable as if they were tables.
type ViewDef struct {
	Schema     string
	Name       string
	Definition string
}
