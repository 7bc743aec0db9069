package analyze

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pthm/mentat/pkg/sqltype"
)

// expr computes the Expression for a single parse-tree node. Dispatch is on
// the node's discriminator; unhandled kinds fail ErrUnsupported rather than
// guessing.
func (a *Analyzer) expr(node *pg_query.Node, sc *Scope) (Expression, error) {
	if node == nil {
		return Expression{Type: sqltype.TypeAny}, nil
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return a.constant(n.AConst)
	case *pg_query.Node_TypeCast:
		return a.typeCast(n.TypeCast, sc)
	case *pg_query.Node_ColumnRef:
		return a.columnRef(n.ColumnRef, sc)
	case *pg_query.Node_ParamRef:
		return Expression{Type: sqltype.TypeAny, Nullable: true}, nil
	case *pg_query.Node_SqlvalueFunction:
		return a.sqlValueFunction(n.SqlvalueFunction)
	case *pg_query.Node_BoolExpr:
		return a.boolExpr(n.BoolExpr, sc)
	case *pg_query.Node_NullTest:
		if _, err := a.expr(n.NullTest.Arg, sc); err != nil {
			return Expression{}, err
		}
		return Expression{Type: "bool"}, nil
	case *pg_query.Node_BooleanTest:
		if _, err := a.expr(n.BooleanTest.Arg, sc); err != nil {
			return Expression{}, err
		}
		return Expression{Type: "bool"}, nil
	case *pg_query.Node_AExpr:
		return a.aExpr(n.AExpr, sc)
	case *pg_query.Node_CaseExpr:
		return a.caseExpr(n.CaseExpr, sc)
	case *pg_query.Node_CoalesceExpr:
		return a.coalesceExpr(n.CoalesceExpr, sc)
	case *pg_query.Node_MinMaxExpr:
		return a.minMaxExpr(n.MinMaxExpr, sc)
	case *pg_query.Node_AArrayExpr:
		return a.arrayExpr(n.AArrayExpr, sc)
	case *pg_query.Node_AIndirection:
		return a.indirection(n.AIndirection, sc)
	case *pg_query.Node_List:
		return a.list(n.List.Items, sc)
	case *pg_query.Node_FuncCall:
		return a.funcCall(n.FuncCall, sc)
	case *pg_query.Node_SubLink:
		return a.subLink(n.SubLink, sc)
	}
	return Expression{}, unsupported("expression node %T", node.Node)
}

// constant types a literal. Integers narrow to int4, floats to float4,
// strings to text; each carries its rendered literal for narrowing. A bare
// NULL has the synthetic null type.
func (a *Analyzer) constant(c *pg_query.A_Const) (Expression, error) {
	if c.Isnull {
		return Expression{Type: sqltype.TypeNull, Nullable: true}, nil
	}
	switch v := c.Val.(type) {
	case *pg_query.A_Const_Ival:
		return Expression{Type: "int4", Constant: strconv.FormatInt(int64(v.Ival.Ival), 10)}, nil
	case *pg_query.A_Const_Fval:
		return Expression{Type: "float4", Constant: v.Fval.Fval}, nil
	case *pg_query.A_Const_Sval:
		return Expression{Type: "text", Constant: strconv.Quote(v.Sval.Sval)}, nil
	case *pg_query.A_Const_Boolval:
		if v.Boolval.Boolval {
			return Expression{Type: "bool", Constant: "true"}, nil
		}
		return Expression{Type: "bool", Constant: "false"}, nil
	case *pg_query.A_Const_Bsval:
		return Expression{Type: "bit"}, nil
	}
	return Expression{}, unsupported("constant value %T", c.Val)
}

// typeCast analyzes the inner expression and replaces its type with the
// cast target, suffixing the array marker when bounds are present. Casting
// the string literals 't'/'f' to bool rewrites them to boolean literals.
func (a *Analyzer) typeCast(tc *pg_query.TypeCast, sc *Scope) (Expression, error) {
	inner, err := a.expr(tc.Arg, sc)
	if err != nil {
		return Expression{}, err
	}

	target := sqltype.TypeAny
	if tc.TypeName != nil && len(tc.TypeName.Names) > 0 {
		target = sqltype.Type(lastName(tc.TypeName.Names))
	}
	if tc.TypeName != nil && len(tc.TypeName.ArrayBounds) > 0 {
		target = target.Array()
	}

	inner.Type = target
	if target == "bool" {
		switch inner.Constant {
		case `"t"`:
			inner.Constant = "true"
		case `"f"`:
			inner.Constant = "false"
		}
	}
	return inner, nil
}

// columnRef resolves the four reference shapes. Star references inside an
// expression degrade to an untyped placeholder; the target-list logic
// expands them before they reach here when they stand alone.
func (a *Analyzer) columnRef(ref *pg_query.ColumnRef, sc *Scope) (Expression, error) {
	fields := ref.Fields
	switch len(fields) {
	case 1:
		if isStar(fields[0]) {
			return Expression{Type: sqltype.TypeAny}, nil
		}
		name := stringField(fields[0])
		col, ok := sc.resolveColumn(name)
		if !ok {
			return Expression{}, unknownColumn(name)
		}
		return Expression{Type: col.Type, Nullable: col.Nullable, Name: name}, nil
	case 2:
		alias := stringField(fields[0])
		if isStar(fields[1]) {
			t, ok := sc.table(alias)
			return Expression{Type: sqltype.TypeAny, Nullable: !ok || t.Nullable}, nil
		}
		name := stringField(fields[1])
		col, tableOK, colOK := sc.resolveQualified(alias, name)
		if !tableOK {
			return Expression{}, unknownTable(alias)
		}
		if !colOK {
			return Expression{}, unknownColumn(alias + "." + name)
		}
		return Expression{Type: col.Type, Nullable: col.Nullable, Name: name}, nil
	}
	return Expression{}, unsupported("qualified column reference with %d parts", len(fields))
}

var valueFunctionTypes = map[pg_query.SQLValueFunctionOp]sqltype.Type{
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_DATE:        "date",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIME:        "timetz",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIME_N:      "timetz",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIMESTAMP:   "timestamptz",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIMESTAMP_N: "timestamptz",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIME:           "time",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIME_N:         "time",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIMESTAMP:      "timestamp",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIMESTAMP_N:    "timestamp",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_ROLE:        "text",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_USER:        "text",
	pg_query.SQLValueFunctionOp_SVFOP_SESSION_USER:        "text",
	pg_query.SQLValueFunctionOp_SVFOP_USER:                "text",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_CATALOG:     "text",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_SCHEMA:      "text",
}

func (a *Analyzer) sqlValueFunction(fn *pg_query.SQLValueFunction) (Expression, error) {
	t, ok := valueFunctionTypes[fn.Op]
	if !ok {
		return Expression{}, unsupported("SQL value function %s", fn.Op)
	}
	return Expression{Type: t}, nil
}

func (a *Analyzer) boolExpr(be *pg_query.BoolExpr, sc *Scope) (Expression, error) {
	nullable := false
	for _, arg := range be.Args {
		e, err := a.expr(arg, sc)
		if err != nil {
			return Expression{}, err
		}
		nullable = nullable || e.Nullable
	}
	return Expression{Type: "bool", Nullable: nullable}, nil
}

// caseExpr collects every WHEN result (and ELSE, when present) as a branch.
// The type comes from the first branch; the column is nullable when the
// ELSE is missing or any branch is nullable.
func (a *Analyzer) caseExpr(ce *pg_query.CaseExpr, sc *Scope) (Expression, error) {
	var branches []Expression
	for _, arg := range ce.Args {
		when := arg.GetCaseWhen()
		if when == nil {
			return Expression{}, unsupported("CASE arm %T", arg.Node)
		}
		branch, err := a.expr(when.Result, sc)
		if err != nil {
			return Expression{}, err
		}
		branches = append(branches, branch)
	}
	nullable := ce.Defresult == nil
	if ce.Defresult != nil {
		branch, err := a.expr(ce.Defresult, sc)
		if err != nil {
			return Expression{}, err
		}
		branches = append(branches, branch)
	}
	for _, b := range branches {
		nullable = nullable || b.Nullable
	}
	out := Expression{Type: sqltype.TypeAny, Nullable: nullable, Branches: branches}
	if len(branches) > 0 {
		out.Type = branches[0].Type
	}
	return out, nil
}

// coalesceExpr walks the arguments in order and stops after the first
// provably non-nullable one; later arguments cannot contribute to the type.
func (a *Analyzer) coalesceExpr(ce *pg_query.CoalesceExpr, sc *Scope) (Expression, error) {
	var branches []Expression
	nullable := true
	for _, arg := range ce.Args {
		branch, err := a.expr(arg, sc)
		if err != nil {
			return Expression{}, err
		}
		branches = append(branches, branch)
		if !branch.Nullable {
			nullable = false
			break
		}
	}
	out := Expression{Type: sqltype.TypeAny, Nullable: nullable, Branches: branches}
	if len(branches) > 0 {
		out.Type = branches[0].Type
	}
	return out, nil
}

// minMaxExpr types GREATEST/LEAST: first argument's type, null only when
// every argument is nullable.
func (a *Analyzer) minMaxExpr(mm *pg_query.MinMaxExpr, sc *Scope) (Expression, error) {
	out := Expression{Type: sqltype.TypeAny, Nullable: true}
	for i, arg := range mm.Args {
		e, err := a.expr(arg, sc)
		if err != nil {
			return Expression{}, err
		}
		if i == 0 {
			out.Type = e.Type
		}
		out.Nullable = out.Nullable && e.Nullable
	}
	return out, nil
}

func (a *Analyzer) arrayExpr(ae *pg_query.A_ArrayExpr, sc *Scope) (Expression, error) {
	elem := sqltype.TypeAny
	for i, el := range ae.Elements {
		e, err := a.expr(el, sc)
		if err != nil {
			return Expression{}, err
		}
		if i == 0 {
			elem = e.Type
		}
	}
	return Expression{Type: elem.Array()}, nil
}

// indirection types array subscripting. A slice keeps the array type; a
// single element access yields the element type and is always nullable
// because the subscript may be out of range. Subscripting json yields any.
func (a *Analyzer) indirection(ind *pg_query.A_Indirection, sc *Scope) (Expression, error) {
	arg, err := a.expr(ind.Arg, sc)
	if err != nil {
		return Expression{}, err
	}

	var indices []*pg_query.A_Indices
	for _, item := range ind.Indirection {
		idx := item.GetAIndices()
		if idx == nil {
			return Expression{}, unsupported("indirection element %T", item.Node)
		}
		indices = append(indices, idx)
	}
	if len(indices) != 1 {
		return Expression{}, unsupported("multi-dimensional subscript")
	}

	if arg.Type.IsJSON() {
		return Expression{Type: sqltype.TypeAny, Nullable: true}, nil
	}

	idx := indices[0]
	if idx.IsSlice {
		nullable := arg.Nullable
		for _, bound := range []*pg_query.Node{idx.Lidx, idx.Uidx} {
			if bound == nil {
				continue
			}
			b, err := a.expr(bound, sc)
			if err != nil {
				return Expression{}, err
			}
			nullable = nullable || b.Nullable
		}
		return Expression{Type: arg.Type, Nullable: nullable}, nil
	}

	if _, err := a.expr(idx.Uidx, sc); err != nil {
		return Expression{}, err
	}
	return Expression{Type: arg.Type.Element(), Nullable: true}, nil
}

// list types a bare expression list: the first item's type, every item as a
// branch.
func (a *Analyzer) list(items []*pg_query.Node, sc *Scope) (Expression, error) {
	out := Expression{Type: sqltype.TypeAny}
	for i, item := range items {
		e, err := a.expr(item, sc)
		if err != nil {
			return Expression{}, err
		}
		if i == 0 {
			out.Type = e.Type
		}
		out.Nullable = out.Nullable || e.Nullable
		out.Branches = append(out.Branches, e)
	}
	return out, nil
}

// subLink types subquery expressions. EXPR takes the first column of the
// inner SELECT forced nullable (no row yields NULL); ARRAY wraps it.
func (a *Analyzer) subLink(sub *pg_query.SubLink, sc *Scope) (Expression, error) {
	switch sub.SubLinkType {
	case pg_query.SubLinkType_EXISTS_SUBLINK, pg_query.SubLinkType_ROWCOMPARE_SUBLINK:
		return Expression{Type: "bool"}, nil
	case pg_query.SubLinkType_ANY_SUBLINK, pg_query.SubLinkType_ALL_SUBLINK:
		return Expression{Type: "bool", Nullable: true}, nil
	case pg_query.SubLinkType_MULTIEXPR_SUBLINK:
		return Expression{Type: sqltype.TypeAny}, nil
	case pg_query.SubLinkType_EXPR_SUBLINK, pg_query.SubLinkType_ARRAY_SUBLINK:
		sel := sub.Subselect.GetSelectStmt()
		if sel == nil {
			return Expression{}, unsupported("sublink over %T", sub.Subselect.Node)
		}
		cols, err := a.selectColumns(sel, sc.Clone())
		if err != nil {
			return Expression{}, err
		}
		if len(cols) == 0 {
			return Expression{}, unsupported("sublink subquery with no columns")
		}
		first := cols[0].Expression
		if sub.SubLinkType == pg_query.SubLinkType_ARRAY_SUBLINK {
			return Expression{Type: first.Type.Array()}, nil
		}
		first.Nullable = true
		first.Name = ""
		return first, nil
	}
	return Expression{}, unsupported("sublink type %s", sub.SubLinkType)
}

// lastName returns the final component of a qualified name list.
func lastName(names []*pg_query.Node) string {
	if len(names) == 0 {
		return ""
	}
	return stringField(names[len(names)-1])
}

func stringField(n *pg_query.Node) string {
	if s := n.GetString_(); s != nil {
		return s.Sval
	}
	return ""
}

func isStar(n *pg_query.Node) bool {
	_, ok := n.Node.(*pg_query.Node_AStar)
	return ok
}

// lowerName normalizes a function or operator identifier.
func lowerName(s string) string { return strings.ToLower(s) }
