package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/pthm/mentat/pkg/sqltype"
)

// columnsSQL yields one row per column of every non-system relation.
// Array columns report their element type resolved through regtype, with
// the array suffix re-applied so the tag round-trips through sqltype.
const columnsSQL = `
	SELECT c.table_schema,
	       c.table_name,
	       c.column_name,
	       CASE WHEN c.data_type = 'ARRAY'
	            THEN (SELECT pt.typelem::regtype::text
	                  FROM pg_type pt
	                  JOIN pg_namespace pn ON pn.oid = pt.typnamespace
	                  WHERE pt.typname = c.udt_name
	                  AND pn.nspname = c.udt_schema) || '[]'
	            ELSE c.udt_name
	       END,
	       c.is_nullable = 'YES'
	FROM information_schema.columns c
	WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY c.table_schema, c.table_name, c.ordinal_position
`

// viewsSQL yields the defining SQL of views and materialized views.
// Ordinary views sort first so chains of views over views materialize in a
// workable order more often than not.
const viewsSQL = `
	SELECT schemaname, viewname, definition, 0 AS kind
	FROM pg_views
	WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
	UNION ALL
	SELECT schemaname, matviewname, definition, 1 AS kind
	FROM pg_matviews
	WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
	ORDER BY kind, schemaname, viewname
`

// enumsSQL yields each enum type with its labels in declared sort order.
const enumsSQL = `
	SELECT t.typname, array_agg(e.enumlabel ORDER BY e.enumsortorder)
	FROM pg_type t
	JOIN pg_enum e ON e.enumtypid = t.oid
	GROUP BY t.typname
`

// Querier is the database handle the loader needs. Satisfied by *sql.DB,
// *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load introspects the connected database and returns the schema catalog,
// the enum catalog, and the view definitions left for materialization.
//
// The returned Schemas contains base tables only; views appear in the
// ViewDef list and are installed by the view materializer once their
// defining SQL has been analyzed. The default schema is always present,
// even when empty, because per-query analysis installs CTEs into it on a
// clone.
func Load(ctx context.Context, db Querier, defaultSchema string) (Schemas, Enums, []ViewDef, error) {
	schemas := Schemas{defaultSchema: make(map[string]Table)}

	views, err := loadViews(ctx, db)
	if err != nil {
		return nil, nil, nil, err
	}
	viewNames := make(map[string]bool, len(views))
	for _, v := range views {
		viewNames[v.Schema+"."+v.Name] = true
	}

	if err := loadColumns(ctx, db, schemas, viewNames); err != nil {
		return nil, nil, nil, err
	}

	enums, err := loadEnums(ctx, db)
	if err != nil {
		return nil, nil, nil, err
	}

	return schemas, enums, views, nil
}

// loadColumns fills schemas with base-table columns. Columns belonging to
// views are skipped; the materializer synthesizes those tables from the
// view SQL so computed nullability wins over what information_schema says.
func loadColumns(ctx context.Context, db Querier, schemas Schemas, viewNames map[string]bool) error {
	rows, err := db.QueryContext(ctx, columnsSQL)
	if err != nil {
		return fmt.Errorf("querying columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var schema, table, column, typeName string
		var nullable bool
		if err := rows.Scan(&schema, &table, &column, &typeName, &nullable); err != nil {
			return fmt.Errorf("scanning column row: %w", err)
		}
		if viewNames[schema+"."+table] {
			continue
		}

		t, ok := schemas.Table(schema, table)
		if !ok {
			t = Table{Columns: NewColumnSet()}
			schemas.Put(schema, table, t)
		}
		t.Columns.Set(column, Column{Type: sqltype.Type(typeName), Nullable: nullable})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading column rows: %w", err)
	}
	return nil
}

func loadViews(ctx context.Context, db Querier) ([]ViewDef, error) {
	rows, err := db.QueryContext(ctx, viewsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying view definitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []ViewDef
	for rows.Next() {
		var def ViewDef
		var kind int
		if err := rows.Scan(&def.Schema, &def.Name, &def.Definition, &kind); err != nil {
			return nil, fmt.Errorf("scanning view row: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading view rows: %w", err)
	}
	return defs, nil
}

func loadEnums(ctx context.Context, db Querier) (Enums, error) {
	rows, err := db.QueryContext(ctx, enumsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying enum types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	enums := make(Enums)
	for rows.Next() {
		var name string
		var labels []string
		if err := rows.Scan(&name, pq.Array(&labels)); err != nil {
			return nil, fmt.Errorf("scanning enum row: %w", err)
		}
		enums[name] = labels
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading enum rows: %w", err)
	}
	return enums, nil
}
