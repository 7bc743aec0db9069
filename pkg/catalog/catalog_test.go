package catalog_test

import (
	"testing"

	"github.com/pthm/mentat/pkg/catalog"
	"github.com/pthm/mentat/pkg/sqltype"
)

func TestColumnSetOrdering(t *testing.T) {
	set := catalog.NewColumnSet()
	set.Set("b", catalog.Column{Type: "text"})
	set.Set("a", catalog.Column{Type: "int4"})
	set.Set("c", catalog.Column{Type: "bool"})

	want := []string{"b", "a", "c"}
	got := set.Names()
	if len(got) != len(want) {
		t.Fatalf("got %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestColumnSetLastWriteWins(t *testing.T) {
	set := catalog.NewColumnSet()
	set.Set("a", catalog.Column{Type: "int4"})
	set.Set("b", catalog.Column{Type: "text"})
	set.Set("a", catalog.Column{Type: "int8", Nullable: true})

	if set.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", set.Len())
	}
	// Position of the first write is kept.
	if set.Names()[0] != "a" {
		t.Errorf("Names()[0] = %q, want a", set.Names()[0])
	}
	col, ok := set.Get("a")
	if !ok {
		t.Fatal("a not found")
	}
	if col.Type != sqltype.Type("int8") || !col.Nullable {
		t.Errorf("a = %+v, want overwritten value", col)
	}
}

func TestColumnSetClone(t *testing.T) {
	set := catalog.NewColumnSet()
	set.Set("a", catalog.Column{Type: "int4"})

	clone := set.Clone()
	clone.Set("b", catalog.Column{Type: "text"})
	clone.Set("a", catalog.Column{Type: "int8"})

	if set.Len() != 1 {
		t.Errorf("original grew to %d columns", set.Len())
	}
	if col, _ := set.Get("a"); col.Type != sqltype.Type("int4") {
		t.Errorf("original a = %q, want int4", col.Type)
	}
}

func TestSchemasPut(t *testing.T) {
	schemas := catalog.Schemas{}
	set := catalog.NewColumnSet()
	set.Set("id", catalog.Column{Type: "int4"})
	schemas.Put("public", "users", catalog.Table{Columns: set})

	if _, ok := schemas.Table("public", "users"); !ok {
		t.Fatal("users not found")
	}
	if _, ok := schemas.Table("public", "missing"); ok {
		t.Fatal("missing should not be found")
	}
	if _, ok := schemas.Table("other", "users"); ok {
		t.Fatal("wrong schema should not resolve")
	}
}
