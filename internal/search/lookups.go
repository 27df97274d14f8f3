package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// GetModelByID fetches a model and its columns by unique_id.
func (h *HybridSearch) GetModelByID(ctx context.Context, id string) (types.Model, error) {
	return h.getModel(ctx, "id = ?", id)
}

// GetModelByName fetches a model and its columns by name. If more than
// one model shares a name (across dbt packages), the highest-centrality
// match wins.
func (h *HybridSearch) GetModelByName(ctx context.Context, name string) (types.Model, error) {
	var id string
	err := h.DB.QueryRowContext(ctx, `
		SELECT id FROM models WHERE name = ? ORDER BY centrality DESC LIMIT 1
	`, name).Scan(&id)
	if err != nil {
		return types.Model{}, fmt.Errorf("looking up model %q: %w", name, err)
	}
	return h.GetModelByID(ctx, id)
}

func (h *HybridSearch) getModel(ctx context.Context, where string, arg any) (types.Model, error) {
	var m types.Model
	var fqnJSON, tagsJSON, metaJSON string
	row := h.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, package_name, path, fqn, description, layer, materialized,
		       tags, compiled_sql, raw_code, meta, centrality, upstream_count, downstream_count, last_run_status
		FROM models WHERE %s
	`, where), arg)
	if err := row.Scan(&m.ID, &m.Name, &m.PackageName, &m.Path, &fqnJSON, &m.Description, &m.Layer,
		&m.Materialized, &tagsJSON, &m.CompiledSQL, &m.RawCode, &metaJSON, &m.Centrality,
		&m.UpstreamCount, &m.DownstreamCount, &m.LastRunStatus); err != nil {
		return types.Model{}, fmt.Errorf("fetching model: %w", err)
	}
	_ = json.Unmarshal([]byte(fqnJSON), &m.FQN)
	_ = json.Unmarshal([]byte(tagsJSON), &m.Tags)
	_ = json.Unmarshal([]byte(metaJSON), &m.Meta)

	cols, err := h.GetColumns(ctx, m.ID)
	if err != nil {
		return types.Model{}, err
	}
	m.Columns = cols
	return m, nil
}

// GetColumns returns every column of a model with its derived test list
// and PK/FK flags. A column is a primary key if it has both a not_null
// and a unique test; it is a foreign key if it has a relationships test.
func (h *HybridSearch) GetColumns(ctx context.Context, modelID string) ([]types.Column, error) {
	rows, err := h.DB.QueryContext(ctx, `
		SELECT name, data_type, description FROM columns WHERE model_id = ? ORDER BY name
	`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []types.Column
	for rows.Next() {
		var c types.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Description); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	testRows, err := h.DB.QueryContext(ctx, `
		SELECT column_name, test_type FROM tests WHERE model_id = ? AND column_name != ''
	`, modelID)
	if err != nil {
		return nil, err
	}
	defer testRows.Close()

	testsByColumn := map[string][]string{}
	for testRows.Next() {
		var col, testType string
		if err := testRows.Scan(&col, &testType); err != nil {
			return nil, err
		}
		testsByColumn[col] = append(testsByColumn[col], testType)
	}
	if err := testRows.Err(); err != nil {
		return nil, err
	}

	for i := range cols {
		ts := testsByColumn[cols[i].Name]
		cols[i].Tests = ts
		hasNotNull, hasUnique, hasRelationships := false, false, false
		for _, t := range ts {
			switch t {
			case "not_null":
				hasNotNull = true
			case "unique":
				hasUnique = true
			case "relationships":
				hasRelationships = true
			}
		}
		cols[i].IsPrimaryKey = hasNotNull && hasUnique
		cols[i].IsForeignKey = hasRelationships
	}
	return cols, nil
}

// GetTestsForModel returns every test that targets modelID.
func (h *HybridSearch) GetTestsForModel(ctx context.Context, modelID string) ([]types.Test, error) {
	rows, err := h.DB.QueryContext(ctx, `
		SELECT id, name, test_type, model_id, column_name FROM tests WHERE model_id = ? ORDER BY name
	`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Test
	for rows.Next() {
		var t types.Test
		if err := rows.Scan(&t.ID, &t.Name, &t.TestType, &t.ModelID, &t.ColumnName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetMacrosForModel returns macros whose name appears as a substring of
// the model's compiled SQL. This is a coarse heuristic — it does not
// parse the SQL's Jinja/macro calls — and may both over- and
// under-match; it is a documented limitation, not a bug.
func (h *HybridSearch) GetMacrosForModel(ctx context.Context, modelID string) ([]types.Macro, error) {
	var sqlText string
	if err := h.DB.QueryRowContext(ctx, `SELECT compiled_sql FROM models WHERE id = ?`, modelID).Scan(&sqlText); err != nil {
		return nil, fmt.Errorf("fetching model sql: %w", err)
	}

	rows, err := h.DB.QueryContext(ctx, `SELECT id, name, package_name, description, macro_sql FROM macros`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Macro
	lowerSQL := strings.ToLower(sqlText)
	for rows.Next() {
		var m types.Macro
		if err := rows.Scan(&m.ID, &m.Name, &m.PackageName, &m.Description, &m.MacroSQL); err != nil {
			return nil, err
		}
		if m.Name != "" && strings.Contains(lowerSQL, strings.ToLower(m.Name)) {
			out = append(out, m)
		}
	}
	return out, rows.Err()
}

// GetDependsOn returns the names of modelID's immediate upstream models,
// via the edges table, filtered to parent ids in the model namespace.
func (h *HybridSearch) GetDependsOn(ctx context.Context, modelID string) ([]string, error) {
	rows, err := h.DB.QueryContext(ctx, `
		SELECT m.name
		FROM edges e
		JOIN models m ON m.id = e.parent_id
		WHERE e.child_id = ?
		ORDER BY m.name
	`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// GetSourcesForModel returns modelID's immediate-upstream sources via the
// edges table (a source is a direct edge parent with no row in models).
func (h *HybridSearch) GetSourcesForModel(ctx context.Context, modelID string) ([]types.Source, error) {
	rows, err := h.DB.QueryContext(ctx, `
		SELECT s.id, s.source_name, s.name, s.description, s.loader
		FROM sources s
		JOIN edges e ON e.parent_id = s.id
		WHERE e.child_id = ?
	`, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Source
	for rows.Next() {
		var s types.Source
		if err := rows.Scan(&s.ID, &s.SourceName, &s.Name, &s.Description, &s.LoaderName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetTestCoverage reports how many of a model's columns have at least one
// test, and suggests adding not_null/unique tests for untested columns
// that look like identifiers.
func (h *HybridSearch) GetTestCoverage(ctx context.Context, modelID string) (types.TestCoverageReport, error) {
	cols, err := h.GetColumns(ctx, modelID)
	if err != nil {
		return types.TestCoverageReport{}, err
	}
	var name string
	if err := h.DB.QueryRowContext(ctx, `SELECT name FROM models WHERE id = ?`, modelID).Scan(&name); err != nil && err != sql.ErrNoRows {
		return types.TestCoverageReport{}, err
	}

	report := types.TestCoverageReport{ModelID: modelID, ModelName: name, TotalColumns: len(cols)}
	for _, c := range cols {
		if len(c.Tests) > 0 {
			report.TestedColumns++
			continue
		}
		report.UntestedColumns = append(report.UntestedColumns, c.Name)
		if looksLikeIdentifier(c.Name) {
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("consider adding not_null and unique tests to %s", c.Name))
		}
	}
	return report, nil
}

func looksLikeIdentifier(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "_id") || lower == "id"
}
