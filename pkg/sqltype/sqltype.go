// Package sqltype maps PostgreSQL type names onto TypeScript types.
//
// A Type is the raw tag PostgreSQL reports for a value (`int4`, `text`,
// `timestamptz`, `mpaa_rating`, `int4[]`, ...). Arrays are encoded with a
// trailing `[]`; stripping it recovers the element type. Three synthetic tags
// exist alongside the catalog names: TypeAny for values the analyzer cannot
// type, TypeNull for a bare NULL literal, and TypeUnknown for PostgreSQL's
// unknown pseudo-type.
//
// The Mapper owns the tag-to-TypeScript table. Enum types render as a union
// of their quoted labels, arrays recurse into their element type, and a
// per-instance override map wins over every built-in rule.
package sqltype

import (
	"sort"
	"strings"
)

// Type is a PostgreSQL type tag.
type Type string

// Synthetic tags used by the analyzer.
const (
	TypeAny     Type = "any"
	TypeNull    Type = "null"
	TypeUnknown Type = "unknown"
)

// ArraySuffix marks array types.
const ArraySuffix = "[]"

var numberTypes = tagSet(
	"int2", "int4", "int8",
	"smallint", "integer", "bigint",
	"serial2", "serial4", "serial8",
	"smallserial", "serial", "bigserial",
	"float2", "float4", "float8",
	"real", "double precision",
	"numeric", "decimal",
	"oid",
)

var textTypes = tagSet(
	"text", "varchar", "bpchar", "citext",
	"character varying", "character", "name",
)

var timeTypes = tagSet("time", "timetz", "time without time zone", "time with time zone")

var timestampTypes = tagSet(
	"timestamp", "timestamptz",
	"timestamp without time zone", "timestamp with time zone",
)

var bitTypes = tagSet("bit", "varbit", "bit varying")

var jsonTypes = tagSet("json", "jsonb")

// stringlyTypes are concrete types without a natural TypeScript shape;
// drivers deliver them as strings.
var stringlyTypes = tagSet(
	"interval", "uuid", "xml", "money",
	"cidr", "inet", "macaddr", "macaddr8",
	"point", "line", "lseg", "box", "path", "polygon", "circle",
	"tsvector", "tsquery",
)

func tagSet(names ...string) map[Type]bool {
	set := make(map[Type]bool, len(names))
	for _, n := range names {
		set[Type(n)] = true
	}
	return set
}

// IsArray reports whether t is an array tag.
func (t Type) IsArray() bool { return strings.HasSuffix(string(t), ArraySuffix) }

// Element returns the element type of an array tag. Non-array tags are
// returned unchanged.
func (t Type) Element() Type {
	return Type(strings.TrimSuffix(string(t), ArraySuffix))
}

// Array returns the array tag for t.
func (t Type) Array() Type { return t + Type(ArraySuffix) }

// IsNumber reports whether t belongs to the numeric family.
func (t Type) IsNumber() bool { return numberTypes[t] }

// IsText reports whether t belongs to the character family.
func (t Type) IsText() bool { return textTypes[t] }

// IsTime reports whether t is a time-of-day type.
func (t Type) IsTime() bool { return timeTypes[t] }

// IsTimestamp reports whether t is a timestamp type.
func (t Type) IsTimestamp() bool { return timestampTypes[t] }

// IsBit reports whether t is a bit-string type.
func (t Type) IsBit() bool { return bitTypes[t] }

// IsJSON reports whether t is a json type.
func (t Type) IsJSON() bool { return jsonTypes[t] }

// Mapper renders Type tags as TypeScript types.
type Mapper struct {
	// Fallback is the TypeScript type used for tags the mapper does not
	// recognize. Defaults to "string" when empty.
	Fallback string

	// Overrides maps a tag to a TypeScript type, winning over every
	// built-in rule including enums and arrays.
	Overrides map[string]string

	// Enums maps an enum type name to its labels in declared order.
	Enums map[string][]string
}

// NewMapper returns a Mapper with the given fallback, overrides and enum
// labels. A nil overrides or enums map is allowed.
func NewMapper(fallback string, overrides map[string]string, enums map[string][]string) *Mapper {
	if fallback == "" {
		fallback = "string"
	}
	return &Mapper{Fallback: fallback, Overrides: overrides, Enums: enums}
}

// Map renders t as a TypeScript type.
func (m *Mapper) Map(t Type) string {
	if ts, ok := m.Overrides[string(t)]; ok {
		return ts
	}
	if t.IsArray() {
		return "Array<" + m.Map(t.Element()) + ">"
	}
	if labels, ok := m.Enums[string(t)]; ok {
		quoted := make([]string, len(labels))
		for i, l := range labels {
			quoted[i] = `"` + l + `"`
		}
		return strings.Join(quoted, " | ")
	}
	switch {
	case t == TypeAny:
		return "any"
	case t == TypeNull:
		return "null"
	case t == TypeUnknown:
		return "unknown"
	case t == "bool" || t == "boolean":
		return "boolean"
	case t == "bytea":
		return "Buffer"
	case t.IsNumber():
		return "number"
	case t.IsText(), t.IsTime(), t.IsBit(), stringlyTypes[t]:
		return "string"
	case t.IsTimestamp(), t == "date":
		return "Date"
	case t.IsJSON():
		return "JsonValue"
	}
	return m.Fallback
}

// KnownEnums returns the enum type names the mapper knows, sorted.
func (m *Mapper) KnownEnums() []string {
	names := make([]string, 0, len(m.Enums))
	for n := range m.Enums {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
