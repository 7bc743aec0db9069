package render_test

import (
	"strings"
	"testing"

	"github.com/pthm/mentat/pkg/analyze"
	"github.com/pthm/mentat/pkg/render"
	"github.com/pthm/mentat/pkg/sqltype"
)

func testRenderer() *render.Renderer {
	mapper := sqltype.NewMapper("string", nil, map[string][]string{
		"mpaa_rating": {"G", "PG", "PG-13", "R", "NC-17"},
	})
	return render.New(mapper, nil, nil)
}

func col(name string, e analyze.Expression) analyze.ResultColumn {
	return analyze.ResultColumn{Name: name, Expression: e}
}

func TestRenderSingleObject(t *testing.T) {
	out, err := testRenderer().Query([]analyze.ResultColumn{
		col("id", analyze.Expression{Type: "int4"}),
		col("email", analyze.Expression{Type: "text", Nullable: true}),
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := `{ "id": number, "email": string | null }`
	if out != want {
		t.Errorf("Query() = %q, want %q", out, want)
	}
}

func TestRenderLiterals(t *testing.T) {
	out, err := testRenderer().Query([]analyze.ResultColumn{
		col("a", analyze.Expression{Type: "bool", Constant: "true"}),
		col("d", analyze.Expression{Type: "int4", Constant: "42"}),
		col("f", analyze.Expression{Type: "text", Constant: `"hi"`}),
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := `{ "a": true, "d": 42, "f": "hi" }`
	if out != want {
		t.Errorf("Query() = %q, want %q", out, want)
	}
}

func TestRenderBranches(t *testing.T) {
	t.Run("branch literals union and dedup", func(t *testing.T) {
		out, err := testRenderer().Query([]analyze.ResultColumn{
			col("a", analyze.Expression{
				Type:     "int4",
				Nullable: true,
				Branches: []analyze.Expression{
					{Type: "int4", Constant: "1"},
					{Type: "int4", Constant: "2"},
					{Type: "int4", Constant: "1"},
				},
			}),
		})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		want := `{ "a": 1 | 2 | null }`
		if out != want {
			t.Errorf("Query() = %q, want %q", out, want)
		}
	})

	t.Run("branch without constant maps its type", func(t *testing.T) {
		out, err := testRenderer().Query([]analyze.ResultColumn{
			col("a", analyze.Expression{
				Type:     "text",
				Nullable: true,
				Branches: []analyze.Expression{
					{Type: "text", Constant: `"foo"`},
					{Type: "text", Nullable: true},
				},
			}),
		})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		want := `{ "a": "foo" | string | null }`
		if out != want {
			t.Errorf("Query() = %q, want %q", out, want)
		}
	})
}

func TestRenderEnum(t *testing.T) {
	out, err := testRenderer().Query([]analyze.ResultColumn{
		col("rating", analyze.Expression{Type: "mpaa_rating", Nullable: true}),
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := `{ "rating": "G" | "PG" | "PG-13" | "R" | "NC-17" | null }`
	if out != want {
		t.Errorf("Query() = %q, want %q", out, want)
	}
}

func TestRenderSetVariants(t *testing.T) {
	t.Run("union of objects", func(t *testing.T) {
		out, err := testRenderer().Query([]analyze.ResultColumn{
			col("k", analyze.Expression{
				Type: "text",
				SetVariants: []analyze.Expression{
					{Type: "text", Constant: `"a"`},
					{Type: "text", Constant: `"b"`},
				},
			}),
			col("n", analyze.Expression{
				Type: "int4",
				SetVariants: []analyze.Expression{
					{Type: "int4", Constant: "42"},
					{Type: "int4", Nullable: true},
				},
			}),
		})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		want := `{ "k": "a", "n": 42 } | { "k": "b", "n": number | null }`
		if out != want {
			t.Errorf("Query() = %q, want %q", out, want)
		}
	})

	t.Run("mismatched variant counts fail", func(t *testing.T) {
		_, err := testRenderer().Query([]analyze.ResultColumn{
			col("a", analyze.Expression{Type: "int4", SetVariants: []analyze.Expression{{Type: "int4"}}}),
			col("b", analyze.Expression{Type: "int4", SetVariants: []analyze.Expression{{Type: "int4"}, {Type: "int4"}}}),
		})
		if err == nil {
			t.Fatal("expected error for mismatched variant counts")
		}
	})
}

func TestRenderEmptyResult(t *testing.T) {
	out, err := testRenderer().Query(nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if out != "{}" {
		t.Errorf("Query() = %q, want {}", out)
	}
}

func TestCustomColumnFormatter(t *testing.T) {
	mapper := sqltype.NewMapper("string", nil, nil)
	r := render.New(mapper, func(name, tsType string) string {
		return name + ": " + tsType + ";"
	}, nil)

	out, err := r.Query([]analyze.ResultColumn{
		col("id", analyze.Expression{Type: "int4"}),
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !strings.Contains(out, "id: number;") {
		t.Errorf("Query() = %q, want custom formatting", out)
	}
}

func TestDefaultPrinter(t *testing.T) {
	out, err := render.DefaultPrinter("type T =  { \"a\": 1, }  ;")
	if err != nil {
		t.Fatalf("DefaultPrinter: %v", err)
	}
	want := `type T = { "a": 1 } ;`
	if out != want {
		t.Errorf("DefaultPrinter() = %q, want %q", out, want)
	}
}
