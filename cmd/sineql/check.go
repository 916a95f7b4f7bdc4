package main

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	introspection "github.com/hanpama/sineql/internal/introspection"
	schema "github.com/hanpama/sineql/internal/schema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a schema and print its types",
		Example: `  # List the declared types
  sineql check --schema library.schema

  # Print the normalized schema
  sineql check --schema library.schema --format dsl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, sch, err := loadSchema(configFrom(cmd.Context()))
			if err != nil {
				return err
			}
			return renderSchema(cmd.OutOrStdout(), sch, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table|dsl|json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "dsl", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func renderSchema(w io.Writer, sch *schema.Schema, format string) error {
	switch format {
	case "dsl":
		_, err := io.WriteString(w, schema.Render(sch))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(introspection.Describe(sch))
	case "table":
		return renderTypeTable(w, introspection.Describe(sch))
	}
	return fmt.Errorf("unknown format %q (want table, dsl or json)", format)
}

func renderTypeTable(w io.Writer, g *introspection.Graph) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Kind", "Fields"})

	count := 0
	for _, typ := range g.Types {
		if typ.Builtin {
			continue
		}
		fields := make([]string, 0, len(typ.Fields))
		for _, f := range typ.Fields {
			ref := f.Type
			if f.List {
				ref = "[" + ref + "]"
			}
			fields = append(fields, ref+" "+f.Name)
		}
		t.AppendRow(table.Row{typ.Name, strings.ToLower(typ.Kind), strings.Join(fields, "\n")})
		count++
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d types)\n", count)
	return nil
}
