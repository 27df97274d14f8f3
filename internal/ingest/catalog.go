package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

type catalogColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Comment string `json:"comment"`
}

type catalogEntry struct {
	Columns map[string]catalogColumn `json:"columns"`
	Stats   json.RawMessage          `json:"stats"`
}

type catalogFile struct {
	Nodes   map[string]catalogEntry `json:"nodes"`
	Sources map[string]catalogEntry `json:"sources"`
}

// IndexCatalog enriches already-ingested models with the physical column
// types and descriptions captured in catalog.json. Only the catalog's
// "nodes" entries are applied; its "sources" entries are not.
// catalog.json is optional: a missing file is reported via
// ErrMissingOptional and is not an ingestion failure.
func (ig *Ingestor) IndexCatalog(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", types.ErrMissingOptional, path)
		}
		return fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var cf catalogFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrCorruptArtifact, path, err)
	}

	tx, err := ig.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var enriched int
	for id, entry := range cf.Nodes {
		ok, err := modelExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			continue // unknown model reference: dropped silently, not fatal
		}
		if rowCount, ok := extractStat(entry.Stats, "row_count"); ok {
			if err := mergeModelMeta(ctx, tx, id, "row_count", rowCount); err != nil {
				return fmt.Errorf("recording row_count for %s: %w", id, err)
			}
		}
		for colName, col := range entry.Columns {
			name := col.Name
			if name == "" {
				name = colName
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO columns (model_id, name, data_type, description)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(model_id, name) DO UPDATE SET
					data_type=CASE WHEN excluded.data_type != '' THEN excluded.data_type ELSE columns.data_type END,
					description=CASE WHEN excluded.description != '' THEN excluded.description ELSE columns.description END
			`, id, name, col.Type, col.Comment); err != nil {
				return fmt.Errorf("enriching column %s.%s: %w", id, name, err)
			}
		}
		enriched++
	}

	if err := setMetadata(ctx, tx, "last_catalog_ingest", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog ingestion: %w", err)
	}
	committed = true

	ig.Logger.Info("indexed catalog", "models_enriched", enriched)
	return nil
}

func mergeModelMeta(ctx context.Context, tx *sql.Tx, id, key string, value float64) error {
	var metaJSON string
	if err := tx.QueryRowContext(ctx, `SELECT meta FROM models WHERE id = ?`, id).Scan(&metaJSON); err != nil {
		return err
	}
	meta := map[string]any{}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &meta)
	}
	meta[key] = value
	updated, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE models SET meta = ? WHERE id = ?`, string(updated), id)
	return err
}

func modelExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM models WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
