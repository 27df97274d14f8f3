package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/patterns"
)

func newStatsCmd() *cobra.Command {
	var projectRoot string
	var showPatterns bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print project-wide stats and inferred conventions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, s, err := loadConfigAndStore(ctx, projectRoot)
			if err != nil {
				return err
			}
			defer s.Close()

			extractor := patterns.New(s.DB)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			if showPatterns {
				p, err := extractor.GetPatterns(ctx)
				if err != nil {
					return fmt.Errorf("getting patterns: %w", err)
				}
				return enc.Encode(p)
			}

			stats, err := extractor.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("getting stats: %w", err)
			}
			return enc.Encode(stats)
		},
	}
	cmd.Flags().StringVar(&projectRoot, "project", "", "dbt project root")
	cmd.Flags().BoolVar(&showPatterns, "patterns", false, "show inferred conventions instead of raw counts")
	return cmd
}
