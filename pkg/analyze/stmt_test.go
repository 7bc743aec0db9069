package analyze_test

import (
	"errors"
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pthm/mentat/pkg/analyze"
	"github.com/pthm/mentat/pkg/sqltype"
)

func TestJoinNullability(t *testing.T) {
	t.Run("left join widens the right side", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT c.first_name, a.address
			FROM customer c
			LEFT JOIN address a ON a.address_id = c.address_id`)
		checkColumn(t, cols[0], "first_name", "text", false)
		checkColumn(t, cols[1], "address", "text", true)
	})

	t.Run("right join widens the left side", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT c.first_name, a.address
			FROM customer c
			RIGHT JOIN address a ON a.address_id = c.address_id`)
		checkColumn(t, cols[0], "first_name", "text", true)
		checkColumn(t, cols[1], "address", "text", false)
	})

	t.Run("full join widens both sides", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT c.first_name, a.address
			FROM customer c
			FULL JOIN address a ON a.address_id = c.address_id`)
		checkColumn(t, cols[0], "first_name", "text", true)
		checkColumn(t, cols[1], "address", "text", true)
	})

	t.Run("inner join widens nothing", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT c.first_name, a.address
			FROM customer c
			JOIN address a ON a.address_id = c.address_id`)
		checkColumn(t, cols[0], "first_name", "text", false)
		checkColumn(t, cols[1], "address", "text", false)
	})

	t.Run("right join after a left join floods every earlier table", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT c.first_name, a.address, f.title
			FROM customer c
			LEFT JOIN address a ON a.address_id = c.address_id
			RIGHT JOIN film f ON true`)
		checkColumn(t, cols[0], "first_name", "text", true)
		checkColumn(t, cols[1], "address", "text", true)
		checkColumn(t, cols[2], "title", "text", false)
	})
}

func TestStarExpansion(t *testing.T) {
	t.Run("bare star preserves catalog order and nullability", func(t *testing.T) {
		cols := mustAnalyze(t, `SELECT * FROM address`)
		if len(cols) != 4 {
			t.Fatalf("got %d columns, want 4", len(cols))
		}
		checkColumn(t, cols[0], "address_id", "int4", false)
		checkColumn(t, cols[1], "address", "text", false)
		checkColumn(t, cols[2], "postal_code", "text", true)
		checkColumn(t, cols[3], "city_id", "int4", false)
	})

	t.Run("qualified star restricts to one table", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT a.*
			FROM customer c
			LEFT JOIN address a ON a.address_id = c.address_id`)
		if len(cols) != 4 {
			t.Fatalf("got %d columns, want 4", len(cols))
		}
		for _, col := range cols {
			if !col.Nullable {
				t.Errorf("column %s not widened by LEFT JOIN", col.Name)
			}
		}
	})

	t.Run("star over join flattens in table order", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT *
			FROM customer c
			JOIN film f ON true`)
		if len(cols) != 10 {
			t.Fatalf("got %d columns, want 10", len(cols))
		}
		checkColumn(t, cols[0], "customer_id", "int4", false)
		checkColumn(t, cols[5], "film_id", "int4", false)
	})

	t.Run("duplicate names fold with last write winning", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT *
			FROM customer c
			LEFT JOIN address a ON a.address_id = c.address_id`)
		var addressID *analyze.ResultColumn
		count := 0
		for i := range cols {
			if cols[i].Name == "address_id" {
				addressID = &cols[i]
				count++
			}
		}
		if count != 1 {
			t.Fatalf("address_id appears %d times, want 1", count)
		}
		// The later (address-side) column overwrote the customer one, and
		// the join widened it.
		if !addressID.Nullable {
			t.Error("address_id should carry the address table's join nullability")
		}
	})

	t.Run("qualified star against missing alias", func(t *testing.T) {
		_, err := analyzeSQL(t, `SELECT x.* FROM customer c`)
		if !errors.Is(err, analyze.ErrUnknownTable) {
			t.Fatalf("err = %v, want ErrUnknownTable", err)
		}
	})
}

func TestSubquery(t *testing.T) {
	t.Run("subselect wraps its result columns", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT sub.name
			FROM (SELECT first_name name FROM customer) sub`)
		checkColumn(t, cols[0], "name", "text", false)
	})

	t.Run("alias column names rename positionally", func(t *testing.T) {
		cols := mustAnalyze(t, `
			SELECT sub.renamed
			FROM (SELECT first_name FROM customer) sub(renamed)`)
		checkColumn(t, cols[0], "renamed", "text", false)
	})
}

func TestSetOperations(t *testing.T) {
	t.Run("union pairs columns by position", func(t *testing.T) {
		cols := mustAnalyze(t, `SELECT 'a' k, 42 n UNION SELECT 'b' k, null::int n`)
		if len(cols) != 2 {
			t.Fatalf("got %d columns, want 2", len(cols))
		}
		checkColumn(t, cols[0], "k", "text", false)
		checkColumn(t, cols[1], "n", "int4", true)
		if len(cols[0].SetVariants) != 2 || len(cols[1].SetVariants) != 2 {
			t.Fatalf("set variants = %d/%d, want 2/2", len(cols[0].SetVariants), len(cols[1].SetVariants))
		}
		if cols[0].SetVariants[0].Constant != `"a"` || cols[0].SetVariants[1].Constant != `"b"` {
			t.Errorf("k variants = %q, %q", cols[0].SetVariants[0].Constant, cols[0].SetVariants[1].Constant)
		}
	})

	t.Run("nested unions flatten to one variant per operand", func(t *testing.T) {
		cols := mustAnalyze(t, `SELECT 1 n UNION SELECT 2 n UNION SELECT 3 n`)
		if len(cols[0].SetVariants) != 3 {
			t.Fatalf("got %d variants, want 3", len(cols[0].SetVariants))
		}
	})

	t.Run("intersect behaves like union", func(t *testing.T) {
		cols := mustAnalyze(t, `SELECT first_name FROM customer INTERSECT SELECT address FROM address`)
		checkColumn(t, cols[0], "first_name", "text", false)
		if len(cols[0].SetVariants) != 2 {
			t.Fatalf("got %d variants, want 2", len(cols[0].SetVariants))
		}
	})
}

func TestValues(t *testing.T) {
	cols := mustAnalyze(t, `VALUES ('foo', 1), ('bar', 2), (null::text, null::int4)`)
	if len(cols) != 2 {
		t.Fatalf("got %d columns, want 2", len(cols))
	}
	checkColumn(t, cols[0], "column1", "text", true)
	checkColumn(t, cols[1], "column2", "int4", true)
	if len(cols[0].Branches) != 3 {
		t.Fatalf("got %d branches, want 3", len(cols[0].Branches))
	}
	if cols[0].Branches[0].Constant != `"foo"` || cols[0].Branches[1].Constant != `"bar"` {
		t.Errorf("branch constants = %q, %q", cols[0].Branches[0].Constant, cols[0].Branches[1].Constant)
	}
}

func TestCTE(t *testing.T) {
	t.Run("cte is queryable like a table", func(t *testing.T) {
		cols := mustAnalyze(t, `
			WITH names AS (SELECT first_name, email FROM customer)
			SELECT names.email FROM names`)
		checkColumn(t, cols[0], "email", "text", true)
	})

	t.Run("later ctes see earlier ones", func(t *testing.T) {
		cols := mustAnalyze(t, `
			WITH a AS (SELECT customer_id FROM customer),
			     b AS (SELECT customer_id FROM a)
			SELECT customer_id FROM b`)
		checkColumn(t, cols[0], "customer_id", "int4", false)
	})

	t.Run("cte alias column names", func(t *testing.T) {
		cols := mustAnalyze(t, `
			WITH t(id) AS (SELECT customer_id FROM customer)
			SELECT id FROM t`)
		checkColumn(t, cols[0], "id", "int4", false)
	})

	t.Run("cte does not leak into sibling statements", func(t *testing.T) {
		parsed, err := pg_query.Parse(`
			WITH names AS (SELECT customer_id FROM customer)
			SELECT customer_id FROM names;
			SELECT customer_id FROM names`)
		if err != nil {
			t.Fatalf("parsing: %v", err)
		}
		a := analyze.New(testCatalog(), "public")
		if _, err := a.Statement(parsed.Stmts[0]); err != nil {
			t.Fatalf("analyzing CTE statement: %v", err)
		}
		_, err = a.Statement(parsed.Stmts[1])
		if !errors.Is(err, analyze.ErrUnknownTable) {
			t.Fatalf("err = %v, want ErrUnknownTable", err)
		}
	})
}

func TestReturning(t *testing.T) {
	t.Run("insert returning", func(t *testing.T) {
		cols := mustAnalyze(t, `
			INSERT INTO customer (first_name, last_name, address_id)
			VALUES ('A', 'B', 1)
			RETURNING customer_id, email`)
		if len(cols) != 2 {
			t.Fatalf("got %d columns, want 2", len(cols))
		}
		checkColumn(t, cols[0], "customer_id", "int4", false)
		checkColumn(t, cols[1], "email", "text", true)
	})

	t.Run("update with alias", func(t *testing.T) {
		cols := mustAnalyze(t, `UPDATE customer AS c SET email = 'x' RETURNING c.email`)
		checkColumn(t, cols[0], "email", "text", true)
	})

	t.Run("delete returning star", func(t *testing.T) {
		cols := mustAnalyze(t, `DELETE FROM address RETURNING *`)
		if len(cols) != 4 {
			t.Fatalf("got %d columns, want 4", len(cols))
		}
	})

	t.Run("no returning yields no columns", func(t *testing.T) {
		cols := mustAnalyze(t, `DELETE FROM address`)
		if len(cols) != 0 {
			t.Fatalf("got %d columns, want 0", len(cols))
		}
	})
}

func TestMultiStatementIndependence(t *testing.T) {
	// Each statement is analyzed with a fresh scope; the driver isolates
	// per-statement errors, so at this layer a bad statement just errors.
	_, err := analyzeSQL(t, `SELECT nope FROM customer`)
	if !errors.Is(err, analyze.ErrUnknownColumn) {
		t.Fatalf("err = %v, want ErrUnknownColumn", err)
	}
	cols := mustAnalyze(t, `SELECT first_name FROM customer`)
	if cols[0].Type != sqltype.Type("text") {
		t.Fatalf("type = %q, want text", cols[0].Type)
	}
}
