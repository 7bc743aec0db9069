package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Dump the introspected database catalog",
	Long: `Dump the introspected database catalog.

Connects to the configured database, loads tables, views and enums the same
way generate does, and prints one line per column. Useful for checking what
mentat sees before typing queries against it.`,
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	gen, err := newGenerator(cmd)
	if err != nil {
		return err
	}

	schemas := gen.Schemas()
	for _, schemaName := range schemas.SchemaNames() {
		for _, tableName := range schemas.TableNames(schemaName) {
			table, _ := schemas.Table(schemaName, tableName)
			for _, colName := range table.Columns.Names() {
				col, _ := table.Columns.Get(colName)
				nullability := "not null"
				if col.Nullable {
					nullability = "null"
				}
				fmt.Printf("%s.%s.%s %s %s\n", schemaName, tableName, colName, col.Type, nullability)
			}
		}
	}

	if verbose {
		enums := gen.Enums()
		names := make([]string, 0, len(enums))
		for name := range enums {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("enum %s: %s\n", name, strings.Join(enums[name], ", "))
		}
	}
	return nil
}
