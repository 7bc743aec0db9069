// Package main provides a CLI for generating TypeScript result types from
// SQL queries.
//
// The CLI supports:
//   - generate: Analyze SQL sources and print one TypeScript type per query
//   - schema: Dump the introspected database catalog
//   - config: Show effective configuration
//   - version: Print version information
//
// Commands that analyze queries need database access (-via config or
// MENTAT_DATABASE_URL) to introspect the schema the queries run against.
//
// Usage:
//
//	mentat [flags] <command>
package main

func main() {
	Execute()
}
