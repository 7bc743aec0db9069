package analyze

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pthm/mentat/pkg/sqltype"
)

// opRule computes the result type of a binary operator from its analyzed
// operands. Unary operators see a zero-value left operand.
type opRule func(l, r Expression) sqltype.Type

// operatorRules is the overload-resolution table for AEXPR_OP. Rules follow
// PostgreSQL's operator catalog for the operand families the analyzer
// tracks; the common fallthrough is the right operand's type.
var operatorRules = map[string]opRule{
	"+": func(l, r Expression) sqltype.Type {
		switch {
		case l.Type == "date" && r.Type.IsNumber(), r.Type == "date" && l.Type.IsNumber():
			return "date"
		case l.Type == "date" && (r.Type.IsTime() || r.Type == "interval"),
			r.Type == "date" && (l.Type.IsTime() || l.Type == "interval"):
			return "timestamp"
		case l.Type == "interval" && (r.Type.IsTime() || r.Type.IsTimestamp()):
			return r.Type
		case r.Type == "interval" && (l.Type.IsTime() || l.Type.IsTimestamp()):
			return l.Type
		}
		return r.Type
	},
	"-": func(l, r Expression) sqltype.Type {
		switch {
		case l.Type.IsJSON():
			return l.Type
		case l.Type == "date" && r.Type == "date":
			return "int4"
		case l.Type == "date" && r.Type.IsNumber():
			return "date"
		case l.Type == "date" && r.Type == "interval":
			return "timestamp"
		case l.Type.IsTime() && r.Type.IsTime():
			return "interval"
		case (l.Type.IsTime() || l.Type.IsTimestamp()) && r.Type == "interval":
			return l.Type
		case l.Type.IsTimestamp() && r.Type.IsTimestamp():
			return "interval"
		}
		return r.Type
	},
	"*": func(l, r Expression) sqltype.Type {
		if (l.Type == "interval" && r.Type.IsNumber()) || (r.Type == "interval" && l.Type.IsNumber()) {
			return "interval"
		}
		return r.Type
	},
	"/": func(l, r Expression) sqltype.Type {
		if l.Type == "interval" && r.Type.IsNumber() {
			return "interval"
		}
		return r.Type
	},
	"<<": shiftRule,
	">>": shiftRule,
	"~": func(l, r Expression) sqltype.Type {
		if r.Type.IsNumber() || r.Type.IsBit() {
			return r.Type
		}
		return "bool"
	},
	"||": func(l, r Expression) sqltype.Type {
		switch {
		case l.Type.IsArray():
			return l.Type
		case r.Type.IsArray():
			return r.Type
		case l.Type.IsText() || r.Type.IsText():
			return "text"
		}
		return r.Type
	},
}

func shiftRule(l, r Expression) sqltype.Type {
	if r.Type.IsNumber() {
		return l.Type
	}
	return "bool"
}

func leftRule(l, r Expression) sqltype.Type  { return l.Type }
func rightRule(l, r Expression) sqltype.Type { return r.Type }
func boolRule(l, r Expression) sqltype.Type  { return "bool" }
func textRule(l, r Expression) sqltype.Type  { return "text" }

func init() {
	for _, op := range []string{"=", "<", ">", "<=", ">=", "<>", "!="} {
		operatorRules[op] = boolRule
	}
	// Containment, overlap, pattern and JSON-path tests.
	for _, op := range []string{
		"@>", "<@", "?", "?|", "?&", "@?", "@@",
		"&&", "&<", "&>", "-|-", "~*", "!~", "!~*",
	} {
		operatorRules[op] = boolRule
	}
	// Bitwise and JSON navigation keep the left operand's type.
	for _, op := range []string{"&", "|", "#", "->", "#>", "#-"} {
		operatorRules[op] = leftRule
	}
	// JSON text extraction.
	for _, op := range []string{"->>", "#>>"} {
		operatorRules[op] = textRule
	}
	// Remaining math operators follow the right operand.
	for _, op := range []string{"%", "^", "|/", "||/", "@"} {
		operatorRules[op] = rightRule
	}
}

// aExpr dispatches on the A_Expr kind. AEXPR_OP resolves through the
// operator table; the test-like kinds all yield bool with varying
// nullability; NULLIF keeps the left type but is always nullable.
func (a *Analyzer) aExpr(ae *pg_query.A_Expr, sc *Scope) (Expression, error) {
	// Unary operators have no lexpr; an absent operand contributes neither
	// a type nor nullability.
	var left Expression
	if ae.Lexpr != nil {
		var err error
		left, err = a.expr(ae.Lexpr, sc)
		if err != nil {
			return Expression{}, err
		}
	}
	right, err := a.expr(ae.Rexpr, sc)
	if err != nil {
		return Expression{}, err
	}
	nullable := left.Nullable || right.Nullable

	switch ae.Kind {
	case pg_query.A_Expr_Kind_AEXPR_OP:
		op := lastName(ae.Name)
		rule, ok := operatorRules[op]
		if !ok {
			return Expression{}, unsupported("operator %q", op)
		}
		return Expression{Type: rule(left, right), Nullable: nullable}, nil

	case pg_query.A_Expr_Kind_AEXPR_OP_ANY,
		pg_query.A_Expr_Kind_AEXPR_OP_ALL,
		pg_query.A_Expr_Kind_AEXPR_IN,
		pg_query.A_Expr_Kind_AEXPR_LIKE,
		pg_query.A_Expr_Kind_AEXPR_ILIKE,
		pg_query.A_Expr_Kind_AEXPR_SIMILAR,
		pg_query.A_Expr_Kind_AEXPR_BETWEEN,
		pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN,
		pg_query.A_Expr_Kind_AEXPR_BETWEEN_SYM,
		pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN_SYM:
		return Expression{Type: "bool", Nullable: nullable}, nil

	case pg_query.A_Expr_Kind_AEXPR_DISTINCT,
		pg_query.A_Expr_Kind_AEXPR_NOT_DISTINCT:
		return Expression{Type: "bool"}, nil

	case pg_query.A_Expr_Kind_AEXPR_NULLIF:
		return Expression{Type: left.Type, Nullable: true}, nil
	}
	return Expression{}, unsupported("expression kind %s", ae.Kind)
}
