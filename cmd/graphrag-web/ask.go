package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
)

var errQueryFailed = errors.New("graphrag query failed")

func newAskCmd(load func(*cobra.Command) (*app, error)) *cobra.Command {
	var datasetKey, method string

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a single question from the command line",
		Example: `  graphrag-web ask --dataset alpha "What are the main themes?"
  graphrag-web ask -d alpha -m local Who founded the company`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.ask.Ask(cmd.Context(), entities.QueryRequest{
				Question:   strings.Join(args, " "),
				DatasetKey: datasetKey,
				Method:     method,
			})
			if err != nil {
				return err
			}

			if result.Failed {
				fmt.Fprintln(cmd.ErrOrStderr(), result.Answer)
				return errQueryFailed
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&datasetKey, "dataset", "d", "", "dataset key from listing.json")
	cmd.Flags().StringVarP(&method, "method", "m", entities.DefaultMethod, "GraphRAG search method")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
