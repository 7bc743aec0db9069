// Package typegen is the end-to-end entry point: connect to a database,
// load and materialize the schema catalog, then generate TypeScript result
// types for SQL sources.
//
// # Usage
//
//	gen, err := typegen.New(ctx, "postgres://localhost/app", typegen.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, res := range gen.Generate("SELECT id, name FROM users") {
//	    if res.Err != nil {
//	        log.Println(res.Err)
//	        continue
//	    }
//	    fmt.Println(res.Type)
//	}
//
// The database connection is used only during New; a constructed Generator
// holds immutable catalogs and is safe for concurrent use.
package typegen

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pthm/mentat/pkg/analyze"
	"github.com/pthm/mentat/pkg/catalog"
	"github.com/pthm/mentat/pkg/render"
	"github.com/pthm/mentat/pkg/sqltype"
)

// DefaultSchema is where unqualified table references resolve unless
// configured otherwise.
const DefaultSchema = "public"

// Options configures a Generator. The zero value is usable.
type Options struct {
	// DefaultSchema for unqualified references and CTE installation.
	// Defaults to "public".
	DefaultSchema string

	// FallbackType is the TypeScript type for unrecognized SQL types.
	// Defaults to "string".
	FallbackType string

	// TypeOverrides maps SQL type names to TypeScript types, winning over
	// every built-in mapping.
	TypeOverrides map[string]string

	// ColumnFormatter renders one object property. Nil selects the
	// default `"<name>": <type>,` form.
	ColumnFormatter render.ColumnFormatter

	// Printer pretty-prints the rendered source. Nil selects the built-in
	// whitespace normalizer.
	Printer render.Printer
}

func (o Options) withDefaults() Options {
	if o.DefaultSchema == "" {
		o.DefaultSchema = DefaultSchema
	}
	if o.FallbackType == "" {
		o.FallbackType = "string"
	}
	return o
}

// Generator turns SQL sources into TypeScript result types.
type Generator struct {
	schemas  catalog.Schemas
	enums    catalog.Enums
	analyzer *analyze.Analyzer
	renderer *render.Renderer
}

// New connects with the given libpq-style connection string, introspects
// the schema, materializes views, and releases the connection pool before
// returning.
func New(ctx context.Context, connString string, opts Options) (*Generator, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	opts = opts.withDefaults()
	schemas, enums, views, err := catalog.Load(ctx, db, opts.DefaultSchema)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	if err := analyze.MaterializeViews(schemas, views, opts.DefaultSchema); err != nil {
		return nil, err
	}
	return NewFromCatalog(schemas, enums, opts), nil
}

// NewFromCatalog builds a Generator over prebuilt catalogs, without any
// database access. Views must already be materialized into schemas.
func NewFromCatalog(schemas catalog.Schemas, enums catalog.Enums, opts Options) *Generator {
	opts = opts.withDefaults()
	mapper := sqltype.NewMapper(opts.FallbackType, opts.TypeOverrides, enums)
	return &Generator{
		schemas:  schemas,
		enums:    enums,
		analyzer: analyze.New(schemas, opts.DefaultSchema),
		renderer: render.New(mapper, opts.ColumnFormatter, opts.Printer),
	}
}

// QueryResult is the outcome for one statement: its rendered TypeScript
// type, or the analysis error that stopped it. A failed statement never
// carries a partial type.
type QueryResult struct {
	Type string
	Err  error
}

// Generate parses the SQL source and produces one QueryResult per
// statement. An analysis failure affects only its own statement; a parse
// failure (which cannot be attributed to one statement) yields a single
// errored result.
func (g *Generator) Generate(source string) []QueryResult {
	parsed, err := pg_query.Parse(source)
	if err != nil {
		return []QueryResult{{Err: fmt.Errorf("%w: %v", analyze.ErrParse, err)}}
	}

	results := make([]QueryResult, 0, len(parsed.Stmts))
	for _, raw := range parsed.Stmts {
		cols, err := g.analyzer.Statement(raw)
		if err != nil {
			results = append(results, QueryResult{Err: err})
			continue
		}
		rendered, err := g.renderer.Query(cols)
		if err != nil {
			results = append(results, QueryResult{Err: err})
			continue
		}
		results = append(results, QueryResult{Type: rendered})
	}
	return results
}

// Schemas exposes the loaded schema catalog for diagnostics.
func (g *Generator) Schemas() catalog.Schemas { return g.schemas }

// Enums exposes the loaded enum catalog for diagnostics.
func (g *Generator) Enums() catalog.Enums { return g.enums }
