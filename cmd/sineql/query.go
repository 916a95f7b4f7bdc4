package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "query QUERY",
		Short: "Run one query and print the result as JSON",
		Example: `  sineql query --schema library.schema --data library.yaml \
    'Author { match "Frank" name books { title } }'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, closeFn, err := compile(ctx, configFrom(ctx), loggerFrom(ctx))
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			res := engine.Execute(ctx, args[0])
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
			if res.Code != "" {
				return fmt.Errorf("query failed: %s", res.Code)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	return cmd
}
