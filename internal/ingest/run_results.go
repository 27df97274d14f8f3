package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

type runResult struct {
	UniqueID        string  `json:"unique_id"`
	Status          string  `json:"status"`
	ExecutionTime   float64 `json:"execution_time"`
	AdapterResponse struct {
		RowsAffected *int64 `json:"rows_affected"`
	} `json:"adapter_response"`
}

type runResultsFile struct {
	Results []runResult `json:"results"`
}

// IndexRunResults records the outcome of the last dbt run/test invocation
// against each model. run_results.json is optional: a missing file is
// reported via ErrMissingOptional, not treated as a failure.
func (ig *Ingestor) IndexRunResults(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", types.ErrMissingOptional, path)
		}
		return fmt.Errorf("reading run results %s: %w", path, err)
	}

	var rf runResultsFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrCorruptArtifact, path, err)
	}

	tx, err := ig.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning run-results transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var applied int
	for _, r := range rf.Results {
		ok, err := modelExists(ctx, tx, r.UniqueID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE models SET rows_affected = ?, execution_time_seconds = ?, last_run_status = ?
			WHERE id = ?
		`, r.AdapterResponse.RowsAffected, r.ExecutionTime, r.Status, r.UniqueID); err != nil {
			return fmt.Errorf("recording run result for %s: %w", r.UniqueID, err)
		}
		applied++
	}

	if err := setMetadata(ctx, tx, "last_run_results_ingest", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run-results ingestion: %w", err)
	}
	committed = true

	ig.Logger.Info("indexed run results", "models_updated", applied)
	return nil
}
