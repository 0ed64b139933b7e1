package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(load func(*cobra.Command) (*app, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently asked questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.ask.HistoryEnabled() {
				return errors.New("history is disabled, set history_db or HISTORY_DB")
			}
			entries, err := a.ask.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ASKED\tDATASET\tMETHOD\tSTATUS\tDURATION\tQUESTION")
			for _, e := range entries {
				status := "ok"
				if e.Failed {
					status = "failed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.AskedAt.Local().Format(time.DateTime), e.DatasetKey, e.Method,
					status, e.Duration.Round(time.Millisecond), e.Question)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}
