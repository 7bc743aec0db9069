package analyze

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pthm/mentat/pkg/catalog"
)

// fromItem is one relation collected from the FROM clause before it enters
// scope. nullable marks the outer side of a join: every column of the table
// is widened to nullable when flattened into scope.
type fromItem struct {
	alias    string
	table    catalog.Table
	nullable bool
}

// fromClause analyzes every top-level FROM item and returns a fresh scope:
// a clone of the outer scope with each collected table added under its
// alias. Cross-item nullability is independent (Cartesian product
// semantics).
func (a *Analyzer) fromClause(items []*pg_query.Node, sc *Scope) (*Scope, error) {
	var collected []fromItem
	for _, item := range items {
		if err := a.fromNode(item, sc, &collected, false); err != nil {
			return nil, err
		}
	}

	out := sc.Clone()
	for _, item := range collected {
		out.addTable(item.alias, item.table, item.nullable)
	}
	return out, nil
}

// fromNode collects the relations under one FROM item. For joins, the left
// arm is collected first; a RIGHT or FULL join then floods nullability over
// everything the left arm contributed, and a LEFT or FULL join makes the
// right arm nullable.
func (a *Analyzer) fromNode(node *pg_query.Node, sc *Scope, out *[]fromItem, nullable bool) error {
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		return a.rangeVar(n.RangeVar, sc, out, nullable)

	case *pg_query.Node_RangeSubselect:
		return a.rangeSubselect(n.RangeSubselect, sc, out, nullable)

	case *pg_query.Node_JoinExpr:
		join := n.JoinExpr

		start := len(*out)
		if err := a.fromNode(join.Larg, sc, out, nullable); err != nil {
			return err
		}
		if join.Jointype == pg_query.JoinType_JOIN_RIGHT || join.Jointype == pg_query.JoinType_JOIN_FULL {
			for i := start; i < len(*out); i++ {
				(*out)[i].nullable = true
			}
		}

		rightNullable := nullable ||
			join.Jointype == pg_query.JoinType_JOIN_LEFT ||
			join.Jointype == pg_query.JoinType_JOIN_FULL
		return a.fromNode(join.Rarg, sc, out, rightNullable)
	}
	return unsupported("FROM item %T", node.Node)
}

func (a *Analyzer) rangeVar(rv *pg_query.RangeVar, sc *Scope, out *[]fromItem, nullable bool) error {
	table, ok := sc.lookupRelation(rv.Schemaname, rv.Relname)
	if !ok {
		name := rv.Relname
		if rv.Schemaname != "" {
			name = rv.Schemaname + "." + name
		}
		return unknownTable(name)
	}

	alias := rv.Relname
	if rv.Alias.GetAliasname() != "" {
		alias = rv.Alias.GetAliasname()
	}
	*out = append(*out, fromItem{alias: alias, table: table, nullable: nullable})
	return nil
}

// rangeSubselect analyzes the subquery against a clone of the outer scope
// and wraps its result columns into a synthetic table. Alias column names
// override the subquery's own names positionally.
func (a *Analyzer) rangeSubselect(rs *pg_query.RangeSubselect, sc *Scope, out *[]fromItem, nullable bool) error {
	sel := rs.Subquery.GetSelectStmt()
	if sel == nil {
		return unsupported("subquery FROM item %T", rs.Subquery.Node)
	}
	cols, err := a.selectColumns(sel, sc.Clone())
	if err != nil {
		return err
	}

	var colAliases []string
	if rs.Alias != nil {
		for _, n := range rs.Alias.Colnames {
			colAliases = append(colAliases, stringField(n))
		}
	}

	table := tableFromColumns(cols, colAliases)
	*out = append(*out, fromItem{alias: rs.Alias.GetAliasname(), table: table, nullable: nullable})
	return nil
}

// tableFromColumns wraps analyzed result columns into a synthetic Table.
// aliases, when present, rename columns positionally.
func tableFromColumns(cols []ResultColumn, aliases []string) catalog.Table {
	set := catalog.NewColumnSet()
	for i, col := range cols {
		name := col.Name
		if i < len(aliases) && aliases[i] != "" {
			name = aliases[i]
		}
		set.Set(name, catalog.Column{Type: col.Type, Nullable: col.Nullable})
	}
	return catalog.Table{Columns: set}
}
