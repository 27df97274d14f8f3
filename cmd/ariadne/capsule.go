package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/capsule"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/graph"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/patterns"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/search"
)

func newCapsuleCmd() *cobra.Command {
	var projectRoot, focusModel string
	var tokenBudget int
	var discover bool
	cmd := &cobra.Command{
		Use:   "capsule [task description]",
		Short: "Build a context capsule for a task",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, s, err := loadConfigAndStore(ctx, projectRoot)
			if err != nil {
				return err
			}
			defer s.Close()

			builder := capsule.New(graph.New(s.DB), search.New(s.DB), patterns.New(s.DB), cfg.Capsule)
			req := capsule.BuildRequest{
				Task:        joinArgs(args),
				FocusModel:  focusModel,
				TokenBudget: tokenBudget,
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			if discover {
				related, err := builder.Discover(ctx, req)
				if err != nil {
					return fmt.Errorf("discovering: %w", err)
				}
				return enc.Encode(related)
			}

			result, err := builder.Build(ctx, req)
			if err != nil {
				return fmt.Errorf("building capsule: %w", err)
			}
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&projectRoot, "project", "", "dbt project root")
	cmd.Flags().StringVar(&focusModel, "model", "", "focus model name")
	cmd.Flags().IntVar(&tokenBudget, "budget", 0, "token budget (defaults to configured value)")
	cmd.Flags().BoolVar(&discover, "discover", false, "list related models without skeletonization or budgeting")
	return cmd
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
