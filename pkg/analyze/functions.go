package analyze

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pthm/mentat/pkg/sqltype"
)

// funcRule computes a function call's result from its analyzed arguments.
type funcRule func(args []Expression) Expression

// anyNullable is the common propagation rule: the call is nullable when any
// argument is.
func anyNullable(args []Expression) bool {
	for _, a := range args {
		if a.Nullable {
			return true
		}
	}
	return false
}

func firstType(args []Expression) sqltype.Type {
	if len(args) == 0 {
		return sqltype.TypeAny
	}
	return args[0].Type
}

// passthrough keeps the first argument's type (abs, lower, round, ...).
func passthrough(args []Expression) Expression {
	return Expression{Type: firstType(args), Nullable: anyNullable(args)}
}

// firstArg keeps both the type and the nullability of the first argument
// (array_append and friends).
func firstArg(args []Expression) Expression {
	out := Expression{Type: sqltype.TypeAny}
	if len(args) > 0 {
		out.Type = args[0].Type
		out.Nullable = args[0].Nullable
	}
	return out
}

// secondArg keeps the type and nullability of the second argument
// (array_prepend).
func secondArg(args []Expression) Expression {
	out := Expression{Type: sqltype.TypeAny}
	if len(args) > 1 {
		out.Type = args[1].Type
		out.Nullable = args[1].Nullable
	}
	return out
}

// aggregate keeps the first argument's scalar type but is always nullable:
// over an empty set the aggregate yields NULL.
func aggregate(args []Expression) Expression {
	return Expression{Type: firstType(args), Nullable: true}
}

// avgRule follows avg's return-type catalog: interval and float8 stay,
// float4 widens to float8, everything else becomes numeric.
func avgRule(args []Expression) Expression {
	t := firstType(args)
	switch {
	case t == "interval" || t == "float8":
	case t == "float4":
		t = "float8"
	default:
		t = "numeric"
	}
	return Expression{Type: t, Nullable: true}
}

// fixed returns a constant result type with argument null propagation.
func fixed(t sqltype.Type) funcRule {
	return func(args []Expression) Expression {
		return Expression{Type: t, Nullable: anyNullable(args)}
	}
}

// fixedNotNull returns a constant, never-null result type.
func fixedNotNull(t sqltype.Type) funcRule {
	return func([]Expression) Expression {
		return Expression{Type: t}
	}
}

// fixedNullable returns a constant, always-null result type.
func fixedNullable(t sqltype.Type) funcRule {
	return func([]Expression) Expression {
		return Expression{Type: t, Nullable: true}
	}
}

// secondArgType keeps the second argument's type with null propagation
// (date_trunc's result follows its timestamp operand).
func secondArgType(args []Expression) Expression {
	t := sqltype.TypeAny
	if len(args) > 1 {
		t = args[1].Type
	}
	return Expression{Type: t, Nullable: anyNullable(args)}
}

// functionRules is the static return-type catalog, keyed by lowercase
// function name. Unknown functions fall back to a nullable any.
var functionRules = map[string]funcRule{}

func registerFuncs(rule funcRule, names ...string) {
	for _, n := range names {
		functionRules[n] = rule
	}
}

func init() {
	// Shape preservers: numeric and text functions returning their first
	// argument's type.
	registerFuncs(passthrough,
		"abs", "ceil", "ceiling", "floor", "round", "trunc", "degrees", "radians",
		"lower", "upper", "initcap", "substring", "substr",
		"trim", "btrim", "ltrim", "rtrim", "lpad", "rpad",
		"repeat", "reverse", "replace", "regexp_replace", "translate",
		"left", "right", "overlay",
		"md5", "sha224", "sha256", "sha384", "sha512",
	)

	// Aggregates that are NULL over an empty set.
	registerFuncs(aggregate, "sum", "min", "max", "string_agg")
	functionRules["avg"] = avgRule

	// Array shape preservers.
	registerFuncs(firstArg, "array_append", "array_cat", "array_remove", "array_replace")
	functionRules["array_prepend"] = secondArg

	// Sequence and ranking functions: bigint, never null.
	registerFuncs(fixedNotNull("int8"),
		"count", "currval", "nextval", "lastval", "setval",
		"rank", "dense_rank", "row_number",
	)

	// Boolean.
	registerFuncs(fixed("bool"), "bool_and", "bool_or", "every", "isfinite", "starts_with")

	// Binary.
	registerFuncs(fixed("bytea"), "convert_to", "decode")

	// Date and time constructors.
	registerFuncs(fixed("date"), "make_date", "to_date")
	registerFuncs(fixed("time"), "make_time")
	registerFuncs(fixed("timestamp"), "make_timestamp", "date_bin")
	registerFuncs(fixed("timestamptz"), "make_timestamptz", "to_timestamp")
	registerFuncs(fixedNotNull("timestamptz"),
		"clock_timestamp", "now", "statement_timestamp", "transaction_timestamp",
	)
	functionRules["timeofday"] = fixedNotNull("text")
	functionRules["date_trunc"] = secondArgType

	// Integer measurements.
	registerFuncs(fixed("int4"),
		"length", "array_length", "array_lower", "array_upper", "array_ndims",
		"ascii", "bit_length", "cardinality", "char_length", "character_length",
		"chr", "get_bit", "get_byte", "ntile", "octet_length", "position",
		"scale", "strpos", "width_bucket", "num_nulls", "num_nonnulls",
	)
	functionRules["array_position"] = fixedNullable("int4")
	functionRules["bit_count"] = fixed("int8")

	// Interval.
	registerFuncs(fixed("interval"),
		"age", "make_interval", "justify_days", "justify_hours", "justify_interval",
	)

	// Numeric.
	registerFuncs(fixed("numeric"), "extract", "date_part", "div", "mod")
	functionRules["random"] = fixedNotNull("float8")

	// Text.
	registerFuncs(fixed("text"),
		"concat", "concat_ws", "to_char", "quote_ident", "quote_literal",
		"format", "encode", "split_part",
	)
	functionRules["quote_nullable"] = fixedNullable("text")

	// UUID.
	registerFuncs(fixedNotNull("uuid"), "gen_random_uuid", "uuid_generate_v4")
}

// funcCall types a function or window call. The window clause does not
// change the return-type rule; count(*) and count(expr) are both bigint and
// never null.
func (a *Analyzer) funcCall(fc *pg_query.FuncCall, sc *Scope) (Expression, error) {
	name := lowerName(lastName(fc.Funcname))

	args := make([]Expression, 0, len(fc.Args))
	for _, arg := range fc.Args {
		e, err := a.expr(arg, sc)
		if err != nil {
			return Expression{}, err
		}
		args = append(args, e)
	}

	if rule, ok := functionRules[name]; ok {
		return rule(args), nil
	}
	return Expression{Type: sqltype.TypeAny, Nullable: true}, nil
}
