package analyze

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pthm/mentat/pkg/catalog"
)

// MaterializeViews analyzes each view definition against the in-progress
// catalog and installs the result columns as that view's table, so queries
// can reference views exactly like base tables.
//
// Definitions are processed in the given order; a view over another view
// works when its dependency was materialized first. Cyclic or forward
// dependencies surface as an UnknownTable error for the definition that
// references the not-yet-materialized view.
func MaterializeViews(schemas catalog.Schemas, defs []catalog.ViewDef, defaultSchema string) error {
	for _, def := range defs {
		table, err := materializeView(schemas, def, defaultSchema)
		if err != nil {
			return fmt.Errorf("materializing view %s.%s: %w", def.Schema, def.Name, err)
		}
		schemas.Put(def.Schema, def.Name, table)
	}
	return nil
}

func materializeView(schemas catalog.Schemas, def catalog.ViewDef, defaultSchema string) (catalog.Table, error) {
	result, err := pg_query.Parse(def.Definition)
	if err != nil {
		return catalog.Table{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(result.Stmts) != 1 {
		return catalog.Table{}, unsupported("view defined by %d statements", len(result.Stmts))
	}

	analyzer := New(schemas, defaultSchema)
	cols, err := analyzer.Statement(result.Stmts[0])
	if err != nil {
		return catalog.Table{}, err
	}
	return tableFromColumns(cols, nil), nil
}
