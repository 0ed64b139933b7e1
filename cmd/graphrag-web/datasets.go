package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDatasetsCmd(load func(*cobra.Command) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets in listing.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			datasets := a.ask.Datasets(cmd.Context())
			if len(datasets) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no datasets in %s\n", a.registry.Path())
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tPATH")
			for _, d := range datasets {
				fmt.Fprintf(tw, "%s\t%s\n", d.Key, a.ask.ResolvePath(d))
			}
			return tw.Flush()
		},
	}
}
