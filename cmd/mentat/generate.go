package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/mentat/internal/cli"
	"github.com/pthm/mentat/pkg/analyze"
	"github.com/pthm/mentat/pkg/typegen"
)

var (
	generateDefaultSchema string
	generateFallbackType  string
)

var generateCmd = &cobra.Command{
	Use:   "generate [file...]",
	Short: "Generate TypeScript types for SQL queries",
	Long: `Generate TypeScript types for SQL queries.

Reads SQL from the given files, or from stdin when no files are named, and
prints the TypeScript result type of every statement. A statement that fails
analysis reports its error without affecting the other statements.`,
	Example: `  # Type every query in a file
  mentat generate queries.sql

  # Type a query from stdin
  echo "SELECT id, name FROM users" | mentat generate`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateDefaultSchema, "default-schema", "", "schema for unqualified table references (default: public)")
	generateCmd.Flags().StringVar(&generateFallbackType, "fallback-type", "", "TypeScript type for unrecognized SQL types (default: string)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	gen, err := newGenerator(cmd)
	if err != nil {
		return err
	}

	sources, err := readSources(args)
	if err != nil {
		return cli.GeneralError("reading SQL sources", err)
	}

	failed := false
	for _, src := range sources {
		for _, res := range gen.Generate(src) {
			if res.Err != nil {
				failed = true
				fmt.Fprintln(os.Stderr, "Error:", res.Err)
				continue
			}
			if !quiet {
				fmt.Println(res.Type)
			}
		}
	}
	if failed {
		return cli.GeneralError("one or more queries failed", nil)
	}
	return nil
}

// newGenerator connects using the resolved configuration and builds the
// generator shared by the query-analyzing commands.
func newGenerator(cmd *cobra.Command) (*typegen.Generator, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, cli.ConfigError("resolving database connection", err)
	}

	opts := typegen.Options{
		DefaultSchema: resolveString(generateDefaultSchema, cfg.Generate.DefaultSchema),
		FallbackType:  resolveString(generateFallbackType, cfg.Generate.FallbackType),
		TypeOverrides: cfg.Generate.TypeOverrides,
	}

	gen, err := typegen.New(cmd.Context(), dsn, opts)
	if err != nil {
		if errors.Is(err, analyze.ErrParse) {
			return nil, cli.ParseError("analyzing schema views", err)
		}
		return nil, cli.DBConnectError("loading database schema", err)
	}
	return gen, nil
}

// readSources collects the SQL inputs: one string per named file, or a
// single string read from stdin.
func readSources(paths []string) ([]string, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []string{string(data)}, nil
	}

	sources := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		sources = append(sources, string(data))
	}
	return sources, nil
}
