// Package patterns infers project-wide conventions (naming, materialization,
// test coverage) from the indexed models, so a capsule can describe "how
// this project does things" alongside "what this specific model does".
package patterns

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// Extractor computes stats and patterns from a *sql.DB.
type Extractor struct {
	DB *sql.DB
}

// New returns an Extractor bound to db.
func New(db *sql.DB) *Extractor {
	return &Extractor{DB: db}
}

// GetStats returns project-wide counts and overall test coverage.
func (e *Extractor) GetStats(ctx context.Context) (types.ProjectStats, error) {
	var stats types.ProjectStats
	stats.LayerCounts = map[string]int{}

	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM models`).Scan(&stats.ModelCount); err != nil {
		return stats, err
	}
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&stats.SourceCount); err != nil {
		return stats, err
	}
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests`).Scan(&stats.TestCount); err != nil {
		return stats, err
	}
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM macros`).Scan(&stats.MacroCount); err != nil {
		return stats, err
	}
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM exposures`).Scan(&stats.ExposureCount); err != nil {
		return stats, err
	}

	rows, err := e.DB.QueryContext(ctx, `SELECT layer, COUNT(*) FROM models GROUP BY layer`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var layer string
		var count int
		if err := rows.Scan(&layer, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.LayerCounts[layer] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	rows.Close()

	var testedModels int
	if err := e.DB.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT model_id) FROM tests WHERE model_id != ''
	`).Scan(&testedModels); err != nil {
		return stats, err
	}
	if stats.ModelCount > 0 {
		stats.TestCoveragePct = round1(100 * float64(testedModels) / float64(stats.ModelCount))
	}
	return stats, nil
}

// GetPatterns infers naming conventions, per-layer materialization
// defaults, per-layer test coverage, and the most common tags.
func (e *Extractor) GetPatterns(ctx context.Context) (types.ProjectPatterns, error) {
	naming, err := e.extractNamingPatterns(ctx)
	if err != nil {
		return types.ProjectPatterns{}, err
	}
	materialization, err := e.materializationByLayer(ctx)
	if err != nil {
		return types.ProjectPatterns{}, err
	}
	coverage, err := e.coverageByLayer(ctx)
	if err != nil {
		return types.ProjectPatterns{}, err
	}
	tags, err := e.commonTags(ctx, 10)
	if err != nil {
		return types.ProjectPatterns{}, err
	}
	return types.ProjectPatterns{
		Naming:                 naming,
		MaterializationByLayer: materialization,
		CoverageByLayer:        coverage,
		CommonTags:             tags,
	}, nil
}

// extractNamingPatterns looks for the project's staging "__" double
// underscore convention, an intermediate "int_" prefix, and a marts
// "fct_"/"dim_" pairing. yaml_pattern has no manifest signal at all, so
// it keeps the conventional dbt default.
func (e *Extractor) extractNamingPatterns(ctx context.Context) (types.NamingPatterns, error) {
	names, err := e.namesByLayer(ctx, "staging")
	if err != nil {
		return types.NamingPatterns{}, err
	}
	stagingPrefix := ""
	for _, n := range names {
		if strings.Contains(n, "__") {
			stagingPrefix = "stg_<source>__<entity>"
			break
		}
	}

	names, err = e.namesByLayer(ctx, "intermediate")
	if err != nil {
		return types.NamingPatterns{}, err
	}
	intPrefix := ""
	for _, n := range names {
		if strings.HasPrefix(n, "int_") {
			intPrefix = "int_<entity>"
			break
		}
	}

	names, err = e.namesByLayer(ctx, "marts")
	if err != nil {
		return types.NamingPatterns{}, err
	}
	var martsPrefixes []string
	hasFct, hasDim := false, false
	for _, n := range names {
		if strings.HasPrefix(n, "fct_") {
			hasFct = true
		}
		if strings.HasPrefix(n, "dim_") {
			hasDim = true
		}
	}
	if hasFct {
		martsPrefixes = append(martsPrefixes, "fct_<entity>")
	}
	if hasDim {
		martsPrefixes = append(martsPrefixes, "dim_<entity>")
	}

	return types.NamingPatterns{
		StagingPrefix:      stagingPrefix,
		IntermediatePrefix: intPrefix,
		MartsPrefixes:      martsPrefixes,
		YAMLPattern:        "__{folder_name}_models.yml",
	}, nil
}

func (e *Extractor) namesByLayer(ctx context.Context, layer string) ([]string, error) {
	rows, err := e.DB.QueryContext(ctx, `SELECT name FROM models WHERE layer = ?`, layer)
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

func (e *Extractor) materializationByLayer(ctx context.Context) (map[string]string, error) {
	rows, err := e.DB.QueryContext(ctx, `
		SELECT layer, materialized, COUNT(*) AS n
		FROM models
		WHERE materialized != ''
		GROUP BY layer, materialized
		ORDER BY layer, n DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]string{}
	for rows.Next() {
		var layer, materialized string
		var n int
		if err := rows.Scan(&layer, &materialized, &n); err != nil {
			return nil, err
		}
		if _, seen := result[layer]; !seen {
			result[layer] = materialized // first row per layer is the mode, thanks to ORDER BY n DESC
		}
	}
	return result, rows.Err()
}

func (e *Extractor) coverageByLayer(ctx context.Context) (map[string]float64, error) {
	rows, err := e.DB.QueryContext(ctx, `
		SELECT m.layer,
		       COUNT(DISTINCT m.id) AS total,
		       COUNT(DISTINCT t.model_id) AS tested
		FROM models m
		LEFT JOIN tests t ON t.model_id = m.id
		GROUP BY m.layer
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]float64{}
	for rows.Next() {
		var layer string
		var total, tested int
		if err := rows.Scan(&layer, &total, &tested); err != nil {
			return nil, err
		}
		if total > 0 {
			result[layer] = round1(100 * float64(tested) / float64(total))
		}
	}
	return result, rows.Err()
}

func (e *Extractor) commonTags(ctx context.Context, limit int) ([]string, error) {
	rows, err := e.DB.QueryContext(ctx, `SELECT tags FROM models WHERE tags != '[]'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, err
		}
		for _, t := range splitJSONStrings(tagsJSON) {
			counts[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	type tagCount struct {
		tag   string
		count int
	}
	var list []tagCount
	for t, c := range counts {
		list = append(list, tagCount{t, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].tag < list[j].tag
	})
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]string, len(list))
	for i, tc := range list {
		out[i] = tc.tag
	}
	return out, nil
}

// GetExampleModel returns the model in layer with the most columns,
// breaking ties by the longest description — the most fully-documented
// representative of that layer.
func (e *Extractor) GetExampleModel(ctx context.Context, layer string) (string, error) {
	var id string
	err := e.DB.QueryRowContext(ctx, `
		SELECT m.id FROM models m
		LEFT JOIN columns c ON c.model_id = m.id
		WHERE m.layer = ?
		GROUP BY m.id
		ORDER BY COUNT(c.name) DESC, LENGTH(m.description) DESC
		LIMIT 1
	`, layer).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("finding example model for layer %s: %w", layer, err)
	}
	return id, nil
}

// GetExampleTestYAML renders a schema.yml-style test block for the model
// with the greatest variety of test types, covering up to three of its
// tested columns.
func (e *Extractor) GetExampleTestYAML(ctx context.Context) (string, error) {
	modelID, modelName, err := e.modelWithMostTestVariety(ctx)
	if err != nil {
		return "", err
	}
	if modelID == "" {
		return "", nil
	}

	rows, err := e.DB.QueryContext(ctx, `
		SELECT DISTINCT column_name, test_type FROM tests
		WHERE model_id = ? AND column_name != ''
		ORDER BY column_name
	`, modelID)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	testsByColumn := map[string][]string{}
	var order []string
	for rows.Next() {
		var col, testType string
		if err := rows.Scan(&col, &testType); err != nil {
			return "", err
		}
		if _, seen := testsByColumn[col]; !seen {
			order = append(order, col)
		}
		testsByColumn[col] = append(testsByColumn[col], testType)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(order) > 3 {
		order = order[:3]
	}

	type columnYAML struct {
		Name  string   `yaml:"name"`
		Tests []string `yaml:"tests"`
	}
	type modelYAML struct {
		Name    string       `yaml:"name"`
		Columns []columnYAML `yaml:"columns"`
	}
	doc := struct {
		Version int         `yaml:"version"`
		Models  []modelYAML `yaml:"models"`
	}{
		Version: 2,
		Models: []modelYAML{{
			Name: modelName,
		}},
	}
	for _, col := range order {
		doc.Models[0].Columns = append(doc.Models[0].Columns, columnYAML{Name: col, Tests: testsByColumn[col]})
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("rendering example test yaml: %w", err)
	}
	return string(out), nil
}

func (e *Extractor) modelWithMostTestVariety(ctx context.Context) (id, name string, err error) {
	row := e.DB.QueryRowContext(ctx, `
		SELECT m.id, m.name FROM models m
		JOIN tests t ON t.model_id = m.id
		GROUP BY m.id
		ORDER BY COUNT(DISTINCT t.test_type) DESC
		LIMIT 1
	`)
	err = row.Scan(&id, &name)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	return id, name, err
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// splitJSONStrings parses the JSON-encoded tag array stored on a model row.
func splitJSONStrings(jsonArr string) []string {
	var out []string
	_ = json.Unmarshal([]byte(jsonArr), &out)
	return out
}
