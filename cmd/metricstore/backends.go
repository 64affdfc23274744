package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/kylerisse/metricstore/pkg/backend/builtin"
	"github.com/kylerisse/metricstore/pkg/backend/database"
	"github.com/spf13/cobra"
)

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered store backends and database drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := builtin.Registry()
			descs := reg.Descriptors()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tDATABASE\tDESCRIPTION")
			for _, kind := range reg.Kinds() {
				d := descs[kind]
				fmt.Fprintf(tw, "%s\t%t\t%s\n", kind, d.Database, d.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\ndatabase drivers: %s\n", strings.Join(database.Drivers(), ", "))
			return nil
		},
	}
}
