package ingest

import (
	"context"
	"database/sql"
	"strings"
)

// updateDegreeCounts recomputes upstream_count/downstream_count for every
// model from the edges table, run after all edges for a pass are inserted.
func updateDegreeCounts(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE models SET upstream_count = (
			SELECT COUNT(*) FROM edges WHERE edges.child_id = models.id
		)
	`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE models SET downstream_count = (
			SELECT COUNT(*) FROM edges WHERE edges.parent_id = models.id
		)
	`)
	return err
}

// populateFTS rebuilds the search_index virtual table from the current
// models table. SQL bodies are truncated to 2000 characters, matching the
// original indexer's budget for a single FTS document.
func populateFTS(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM search_index`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, name, description, compiled_sql, tags FROM models`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type row struct {
		id, name, description, sql, tags string
	}
	var buffered []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name, &r.description, &r.sql, &r.tags); err != nil {
			return err
		}
		buffered = append(buffered, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range buffered {
		colNames, err := columnNamesForModel(ctx, tx, r.id)
		if err != nil {
			return err
		}
		sqlText := r.sql
		if len(sqlText) > 2000 {
			sqlText = sqlText[:2000]
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO search_index (model_id, name, description, columns, sql, tags)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.id, r.name, r.description, strings.Join(colNames, " "), sqlText, stripJSONArray(r.tags)); err != nil {
			return err
		}
	}
	return nil
}

func columnNamesForModel(ctx context.Context, tx *sql.Tx, modelID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM columns WHERE model_id = ?`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// stripJSONArray turns the JSON-encoded tag array stored on the model row
// back into a space-joined string suitable for FTS indexing.
func stripJSONArray(jsonArr string) string {
	s := strings.Trim(jsonArr, "[]")
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, ",", " ")
	return s
}
