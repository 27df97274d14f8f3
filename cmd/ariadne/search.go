package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/intent"
	ssearch "github.com/bruno-ribeirodasilva/ariadne-dbt/internal/search"
)

func newSearchCmd() *cobra.Command {
	var projectRoot string
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a hybrid search against the index",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, s, err := loadConfigAndStore(ctx, projectRoot)
			if err != nil {
				return err
			}
			defer s.Close()

			query := joinArgs(args)
			results, err := ssearch.New(s.DB).Search(ctx, query, intent.Classify(query), nil, limit)
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVar(&projectRoot, "project", "", "dbt project root")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}
