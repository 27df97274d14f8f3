package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/graph"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/search"
)

func newGraphCmd() *cobra.Command {
	var projectRoot, modelName, direction string
	var depth int
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Walk upstream/downstream neighbors of a model",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, s, err := loadConfigAndStore(ctx, projectRoot)
			if err != nil {
				return err
			}
			defer s.Close()

			model, err := search.New(s.DB).GetModelByName(ctx, modelName)
			if err != nil {
				return fmt.Errorf("looking up model %q: %w", modelName, err)
			}

			ops := graph.New(s.DB)
			var nodes []graph.Node
			switch direction {
			case "upstream":
				nodes, err = ops.Upstream(ctx, model.ID, depth)
			case "downstream":
				nodes, err = ops.Downstream(ctx, model.ID, depth)
			default:
				return fmt.Errorf("unknown direction %q, want upstream or downstream", direction)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(nodes)
		},
	}
	cmd.Flags().StringVar(&projectRoot, "project", "", "dbt project root")
	cmd.Flags().StringVar(&modelName, "model", "", "model name")
	cmd.Flags().StringVar(&direction, "direction", "downstream", "upstream or downstream")
	cmd.Flags().IntVar(&depth, "depth", 2, "maximum hops")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}
