package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/graph"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/ingest"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/store"
	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

func newIndexCmd() *cobra.Command {
	var projectRoot, logPath string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Ingest manifest.json, catalog.json, and run_results.json into the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, s, err := loadConfigAndStore(ctx, projectRoot)
			if err != nil {
				return err
			}
			defer s.Close()

			release, err := store.LockIngestion(s.Path())
			if err != nil {
				return err
			}
			defer release()

			ig := ingest.New(s.DB, ingest.NewLogger(logPath))

			if err := ig.IndexManifest(ctx, cfg.ManifestPath()); err != nil {
				return fmt.Errorf("indexing manifest: %w", err)
			}

			if err := ig.IndexCatalog(ctx, cfg.CatalogPath()); err != nil {
				if !errors.Is(err, types.ErrMissingOptional) {
					return fmt.Errorf("indexing catalog: %w", err)
				}
				fmt.Fprintln(os.Stderr, "catalog.json not found, skipping")
			}

			if err := ig.IndexRunResults(ctx, cfg.RunResultsPath()); err != nil {
				if !errors.Is(err, types.ErrMissingOptional) {
					return fmt.Errorf("indexing run results: %w", err)
				}
				fmt.Fprintln(os.Stderr, "run_results.json not found, skipping")
			}

			if err := graph.RecomputeCentrality(ctx, s.DB); err != nil {
				return fmt.Errorf("recomputing centrality: %w", err)
			}

			fmt.Println("index updated at", s.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&projectRoot, "project", "", "dbt project root (defaults to searching upward from cwd)")
	cmd.Flags().StringVar(&logPath, "log-file", "", "rotating ingestion log path (stderr if unset)")
	return cmd
}
