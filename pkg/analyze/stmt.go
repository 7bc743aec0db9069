package analyze

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Statement analyzes one parsed statement and returns its result columns in
// source order. Statements without a result (DML without RETURNING) yield
// an empty list.
func (a *Analyzer) Statement(raw *pg_query.RawStmt) ([]ResultColumn, error) {
	if raw == nil || raw.Stmt == nil {
		return nil, unsupported("empty statement")
	}
	sc := newScope(a.schemas, a.defaultSchema)

	switch s := raw.Stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return a.selectColumns(s.SelectStmt, sc)
	case *pg_query.Node_InsertStmt:
		ins := s.InsertStmt
		return a.returning(ins.Relation, ins.WithClause, ins.ReturningList, sc)
	case *pg_query.Node_UpdateStmt:
		upd := s.UpdateStmt
		return a.returning(upd.Relation, upd.WithClause, upd.ReturningList, sc)
	case *pg_query.Node_DeleteStmt:
		del := s.DeleteStmt
		return a.returning(del.Relation, del.WithClause, del.ReturningList, sc)
	}
	return nil, unsupported("statement %T", raw.Stmt.Node)
}

// selectColumns analyzes a SELECT in one of its three forms: set operation,
// VALUES list, or simple projection. The caller owns sc; descent clones it.
func (a *Analyzer) selectColumns(sel *pg_query.SelectStmt, sc *Scope) ([]ResultColumn, error) {
	if sel.WithClause != nil {
		if err := a.withClause(sel.WithClause, sc); err != nil {
			return nil, err
		}
	}

	if sel.Op != pg_query.SetOperation_SETOP_NONE {
		return a.setOperation(sel, sc)
	}

	if len(sel.ValuesLists) > 0 {
		return a.valuesColumns(sel.ValuesLists, sc)
	}

	fromScope := sc
	if len(sel.FromClause) > 0 {
		var err error
		fromScope, err = a.fromClause(sel.FromClause, sc)
		if err != nil {
			return nil, err
		}
	}
	return a.targetList(sel.TargetList, fromScope)
}

// withClause analyzes each CTE in a cloned scope and installs its result
// columns as a synthetic table in the statement's default schema, so later
// CTEs and the statement body see it as an ordinary relation.
func (a *Analyzer) withClause(with *pg_query.WithClause, sc *Scope) error {
	for _, node := range with.Ctes {
		cte := node.GetCommonTableExpr()
		if cte == nil {
			return unsupported("WITH item %T", node.Node)
		}
		sel := cte.Ctequery.GetSelectStmt()
		if sel == nil {
			return unsupported("CTE %s over %T", cte.Ctename, cte.Ctequery.Node)
		}

		cols, err := a.selectColumns(sel, sc.Clone())
		if err != nil {
			return fmt.Errorf("analyzing CTE %s: %w", cte.Ctename, err)
		}

		var aliases []string
		for _, n := range cte.Aliascolnames {
			aliases = append(aliases, stringField(n))
		}
		sc.installCTE(cte.Ctename, tableFromColumns(cols, aliases))
	}
	return nil
}

// setOperation analyzes both arms and pairs their columns positionally.
// Name and type come from the left arm; nullability is the OR of both; the
// variants of nested set operations flatten so each original operand query
// contributes exactly one variant per column.
func (a *Analyzer) setOperation(sel *pg_query.SelectStmt, sc *Scope) ([]ResultColumn, error) {
	left, err := a.selectColumns(sel.Larg, sc.Clone())
	if err != nil {
		return nil, err
	}
	right, err := a.selectColumns(sel.Rarg, sc.Clone())
	if err != nil {
		return nil, err
	}
	if len(left) != len(right) {
		return nil, unsupported("set operation arms with %d and %d columns", len(left), len(right))
	}

	out := make([]ResultColumn, len(left))
	for i := range left {
		expr := Expression{
			Type:        left[i].Type,
			Nullable:    left[i].Nullable || right[i].Nullable,
			SetVariants: append(variantsOf(left[i].Expression), variantsOf(right[i].Expression)...),
		}
		out[i] = ResultColumn{Name: left[i].Name, Expression: expr}
	}
	return out, nil
}

// variantsOf returns a column's existing set variants, or the column itself
// as a single variant when it came from a plain query.
func variantsOf(e Expression) []Expression {
	if len(e.SetVariants) > 0 {
		return e.SetVariants
	}
	return []Expression{e}
}

// valuesColumns synthesizes column1..columnN from a VALUES list. Each row
// contributes one branch per column; the type follows the first row.
func (a *Analyzer) valuesColumns(rows []*pg_query.Node, sc *Scope) ([]ResultColumn, error) {
	var out []ResultColumn
	for rowIdx, rowNode := range rows {
		row := rowNode.GetList()
		if row == nil {
			return nil, unsupported("VALUES row %T", rowNode.Node)
		}
		if rowIdx == 0 {
			out = make([]ResultColumn, len(row.Items))
			for i := range out {
				out[i].Name = fmt.Sprintf("column%d", i+1)
			}
		}
		if len(row.Items) != len(out) {
			return nil, unsupported("VALUES row %d has %d items, want %d", rowIdx+1, len(row.Items), len(out))
		}
		for i, item := range row.Items {
			e, err := a.expr(item, sc)
			if err != nil {
				return nil, err
			}
			if rowIdx == 0 {
				out[i].Type = e.Type
			}
			out[i].Nullable = out[i].Nullable || e.Nullable
			out[i].Branches = append(out[i].Branches, e)
		}
	}
	return out, nil
}

// returning binds the DML target relation into a cloned scope and analyzes
// the RETURNING list as an ordinary target list.
func (a *Analyzer) returning(rel *pg_query.RangeVar, with *pg_query.WithClause, returningList []*pg_query.Node, sc *Scope) ([]ResultColumn, error) {
	sc = sc.Clone()
	if with != nil {
		if err := a.withClause(with, sc); err != nil {
			return nil, err
		}
	}
	if rel == nil {
		return nil, unsupported("DML statement without target relation")
	}

	table, ok := sc.lookupRelation(rel.Schemaname, rel.Relname)
	if !ok {
		return nil, unknownTable(rel.Relname)
	}
	alias := rel.Relname
	if rel.Alias.GetAliasname() != "" {
		alias = rel.Alias.GetAliasname()
	}
	sc.addTable(alias, table, false)

	if len(returningList) == 0 {
		return nil, nil
	}
	return a.targetList(returningList, sc)
}

// resultSet accumulates named result columns with object-key semantics:
// insertion order, last write wins.
type resultSet struct {
	names []string
	cols  map[string]Expression
}

func newResultSet() *resultSet {
	return &resultSet{cols: make(map[string]Expression)}
}

func (s *resultSet) set(name string, e Expression) {
	if _, ok := s.cols[name]; !ok {
		s.names = append(s.names, name)
	}
	s.cols[name] = e
}

func (s *resultSet) columns() []ResultColumn {
	out := make([]ResultColumn, len(s.names))
	for i, name := range s.names {
		out[i] = ResultColumn{Name: name, Expression: s.cols[name]}
	}
	return out
}

// targetList analyzes projection targets, expanding stars against the
// scope. A target's name is its alias, else the inferred column name; a
// target with neither fails.
func (a *Analyzer) targetList(items []*pg_query.Node, sc *Scope) ([]ResultColumn, error) {
	out := newResultSet()
	for i, item := range items {
		rt := item.GetResTarget()
		if rt == nil {
			return nil, unsupported("target list item %T", item.Node)
		}

		if ref := rt.Val.GetColumnRef(); ref != nil && len(ref.Fields) > 0 && isStar(ref.Fields[len(ref.Fields)-1]) {
			if err := a.expandStar(ref, sc, out); err != nil {
				return nil, err
			}
			continue
		}

		expr, err := a.expr(rt.Val, sc)
		if err != nil {
			return nil, err
		}
		name := rt.Name
		if name == "" {
			name = expr.Name
		}
		if name == "" {
			return nil, missingAlias(fmt.Sprintf("target list item %d", i+1))
		}
		out.set(name, expr)
	}
	return out.columns(), nil
}

// expandStar expands `*` over every scoped table, or `tbl.*` over one exact
// table, preserving per-table column order and join-lifted nullability.
func (a *Analyzer) expandStar(ref *pg_query.ColumnRef, sc *Scope, out *resultSet) error {
	expand := func(st ScopedTable) {
		for _, name := range st.Table.Columns.Names() {
			col, _ := st.Table.Columns.Get(name)
			out.set(name, Expression{
				Type:     col.Type,
				Nullable: col.Nullable || st.Table.Nullable,
				Name:     name,
			})
		}
	}

	switch len(ref.Fields) {
	case 1:
		for _, st := range sc.visible() {
			expand(st)
		}
		return nil
	case 2:
		alias := stringField(ref.Fields[0])
		for _, st := range sc.visible() {
			if st.Alias == alias {
				expand(st)
				return nil
			}
		}
		return unknownTable(alias)
	}
	return unsupported("star reference with %d parts", len(ref.Fields))
}
