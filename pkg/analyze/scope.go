package analyze

import (
	"github.com/pthm/mentat/pkg/catalog"
)

// Scope is the binding environment of one statement analysis: the tables
// visible to column resolution, in insertion order, over a clone-local view
// of the catalog.
//
// Scopes are cloned on every descent (CTE body, subquery, set-operation
// arm, DML target binding) so mutations never leak outward. Cloning copies
// the visible-table list and the default schema's table map; everything
// else is shared with the parent.
type Scope struct {
	schemas       catalog.Schemas
	defaultSchema string
	tables        []ScopedTable
}

// ScopedTable is one visible table under its scope alias.
type ScopedTable struct {
	Alias string
	Table catalog.Table
}

// newScope builds the root scope of a statement analysis. The catalog maps
// are copied one level deep so CTE installation cannot touch the shared
// catalog.
func newScope(schemas catalog.Schemas, defaultSchema string) *Scope {
	sc := &Scope{
		schemas:       make(catalog.Schemas, len(schemas)+1),
		defaultSchema: defaultSchema,
	}
	for name, tables := range schemas {
		sc.schemas[name] = tables
	}
	sc.copyDefaultSchema()
	return sc
}

// copyDefaultSchema replaces the default schema's table map with a private
// copy, so installCTE writes stay local.
func (s *Scope) copyDefaultSchema() {
	copied := make(map[string]catalog.Table, len(s.schemas[s.defaultSchema])+1)
	for name, t := range s.schemas[s.defaultSchema] {
		copied[name] = t
	}
	s.schemas[s.defaultSchema] = copied
}

// Clone returns a scope the callee may mutate freely.
func (s *Scope) Clone() *Scope {
	out := &Scope{
		schemas:       make(catalog.Schemas, len(s.schemas)),
		defaultSchema: s.defaultSchema,
		tables:        append([]ScopedTable(nil), s.tables...),
	}
	for name, tables := range s.schemas {
		out.schemas[name] = tables
	}
	out.copyDefaultSchema()
	return out
}

// lookupRelation finds a table in the scope's catalog view. An empty schema
// resolves in the default schema.
func (s *Scope) lookupRelation(schema, name string) (catalog.Table, bool) {
	if schema == "" {
		schema = s.defaultSchema
	}
	return s.schemas.Table(schema, name)
}

// installCTE makes a synthesized table visible to subsequent relation
// lookups in this scope (and its future clones) under the default schema.
func (s *Scope) installCTE(name string, t catalog.Table) {
	s.schemas[s.defaultSchema][name] = t
}

// addTable appends a table to the visible list. With forceNullable, or when
// the table itself is row-nullable, every column later resolved from it
// reports nullable.
func (s *Scope) addTable(alias string, t catalog.Table, forceNullable bool) {
	if forceNullable {
		t.Nullable = true
	}
	s.tables = append(s.tables, ScopedTable{Alias: alias, Table: t})
}

// visible returns the scoped tables in insertion order.
func (s *Scope) visible() []ScopedTable { return s.tables }

// table finds a visible table by alias.
func (s *Scope) table(alias string) (catalog.Table, bool) {
	for _, st := range s.tables {
		if st.Alias == alias {
			return st.Table, true
		}
	}
	return catalog.Table{}, false
}

// resolveColumn searches the visible tables in insertion order; the first
// table declaring the name wins. Row-nullable tables widen the column.
func (s *Scope) resolveColumn(name string) (catalog.Column, bool) {
	for _, st := range s.tables {
		if c, ok := st.Table.Columns.Get(name); ok {
			if st.Table.Nullable {
				c.Nullable = true
			}
			return c, true
		}
	}
	return catalog.Column{}, false
}

// resolveQualified resolves alias.column against the exact aliased table.
func (s *Scope) resolveQualified(alias, column string) (catalog.Column, bool, bool) {
	t, ok := s.table(alias)
	if !ok {
		return catalog.Column{}, false, false
	}
	c, ok := t.Columns.Get(column)
	if !ok {
		return catalog.Column{}, true, false
	}
	if t.Nullable {
		c.Nullable = true
	}
	return c, true, true
}
