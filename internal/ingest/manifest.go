package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// Ingestor parses dbt artifacts and loads them into the index. Each public
// method runs inside its own transaction so a malformed artifact never
// leaves the index half-written.
type Ingestor struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// New returns an Ingestor. If logger is nil, a text logger writing to
// stderr is used.
func New(db *sql.DB, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Ingestor{DB: db, Logger: logger}
}

type manifestColumn struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description"`
}

type manifestNode struct {
	ResourceType string                    `json:"resource_type"`
	Name         string                    `json:"name"`
	PackageName  string                    `json:"package_name"`
	Path         string                    `json:"path"`
	FQN          []string                  `json:"fqn"`
	Description  string                    `json:"description"`
	Tags         []string                  `json:"tags"`
	Columns      map[string]manifestColumn `json:"columns"`
	CompiledCode string                    `json:"compiled_code"`
	CompiledSQL  string                    `json:"compiled_sql"`
	RawCode      string                    `json:"raw_code"`
	RawSQL       string                    `json:"raw_sql"`
	Meta         map[string]any            `json:"meta"`
	Config       struct {
		Materialized string `json:"materialized"`
	} `json:"config"`
	DependsOn struct {
		Nodes []string `json:"nodes"`
	} `json:"depends_on"`
	TestMetadata *struct {
		Name string `json:"name"`
	} `json:"test_metadata"`
	ColumnName   string `json:"column_name"`
	MacroSQL     string `json:"macro_sql"`
}

type manifestSource struct {
	SourceName  string                    `json:"source_name"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Loader      string                    `json:"loader"`
	Columns     map[string]manifestColumn `json:"columns"`
}

type manifestExposure struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	DependsOn struct {
		Nodes []string `json:"nodes"`
	} `json:"depends_on"`
}

type manifestFile struct {
	Nodes     map[string]manifestNode     `json:"nodes"`
	Sources   map[string]manifestSource   `json:"sources"`
	Macros    map[string]manifestNode     `json:"macros"`
	Exposures map[string]manifestExposure `json:"exposures"`
}

// IndexManifest parses manifest.json and loads models, tests, macros,
// exposures, sources, and dependency edges in a single transaction.
func (ig *Ingestor) IndexManifest(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", types.ErrMissingArtifact, path)
		}
		return fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var mf manifestFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrCorruptArtifact, path, err)
	}
	if mf.Nodes == nil {
		return fmt.Errorf("%w: %s: no nodes", types.ErrCorruptArtifact, path)
	}

	start := time.Now()
	tx, err := ig.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning manifest transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var modelCount, testCount, macroCount, exposureCount, sourceCount, edgeCount int

	for id, node := range mf.Nodes {
		switch node.ResourceType {
		case "model":
			if err := insertModel(ctx, tx, id, node); err != nil {
				return fmt.Errorf("inserting model %s: %w", id, err)
			}
			modelCount++
			for _, dep := range node.DependsOn.Nodes {
				if err := insertEdge(ctx, tx, dep, id); err != nil {
					return fmt.Errorf("inserting edge %s->%s: %w", dep, id, err)
				}
				edgeCount++
			}
		case "test":
			if err := insertTest(ctx, tx, id, node); err != nil {
				return fmt.Errorf("inserting test %s: %w", id, err)
			}
			testCount++
		}
	}

	for id, macro := range mf.Macros {
		if err := insertMacro(ctx, tx, id, macro); err != nil {
			return fmt.Errorf("inserting macro %s: %w", id, err)
		}
		macroCount++
	}

	for id, src := range mf.Sources {
		if err := insertSource(ctx, tx, id, src); err != nil {
			return fmt.Errorf("inserting source %s: %w", id, err)
		}
		sourceCount++
	}

	for id, exp := range mf.Exposures {
		if err := insertExposure(ctx, tx, id, exp); err != nil {
			return fmt.Errorf("inserting exposure %s: %w", id, err)
		}
		exposureCount++
		for _, dep := range exp.DependsOn.Nodes {
			if err := insertEdge(ctx, tx, dep, id); err != nil {
				return fmt.Errorf("inserting edge %s->%s: %w", dep, id, err)
			}
			edgeCount++
		}
	}

	if err := updateDegreeCounts(ctx, tx); err != nil {
		return fmt.Errorf("updating degree counts: %w", err)
	}
	if err := populateFTS(ctx, tx); err != nil {
		return fmt.Errorf("populating search index: %w", err)
	}
	if err := setMetadata(ctx, tx, "last_manifest_ingest", time.Now().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing manifest ingestion: %w", err)
	}
	committed = true

	ig.Logger.Info("indexed manifest",
		"models", modelCount, "tests", testCount, "macros", macroCount,
		"sources", sourceCount, "exposures", exposureCount, "edges", edgeCount,
		"duration", time.Since(start))
	return nil
}

func insertModel(ctx context.Context, tx *sql.Tx, id string, node manifestNode) error {
	layer := detectLayer(node.FQN, node.Name, node.Tags)
	sqlText := node.CompiledCode
	if sqlText == "" {
		sqlText = node.CompiledSQL
	}
	rawText := node.RawCode
	if rawText == "" {
		rawText = node.RawSQL
	}
	metaJSON, err := json.Marshal(node.Meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO models (id, name, package_name, path, fqn, description, layer, materialized, tags, compiled_sql, raw_code, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, package_name=excluded.package_name, path=excluded.path,
			fqn=excluded.fqn, description=excluded.description, layer=excluded.layer,
			materialized=excluded.materialized, tags=excluded.tags,
			compiled_sql=excluded.compiled_sql, raw_code=excluded.raw_code, meta=excluded.meta
	`, id, node.Name, node.PackageName, node.Path, joinCSV(node.FQN), node.Description,
		layer, node.Config.Materialized, joinCSV(node.Tags), sqlText, rawText, string(metaJSON))
	if err != nil {
		return err
	}

	for colName, col := range node.Columns {
		name := col.Name
		if name == "" {
			name = colName
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO columns (model_id, name, data_type, description)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(model_id, name) DO UPDATE SET data_type=excluded.data_type, description=excluded.description
		`, id, name, col.DataType, col.Description); err != nil {
			return err
		}
	}
	return nil
}

func insertTest(ctx context.Context, tx *sql.Tx, id string, node manifestNode) error {
	testType := "singular"
	if node.TestMetadata != nil {
		testType = classifyTest(node.TestMetadata.Name)
	}
	var modelID string
	if len(node.DependsOn.Nodes) > 0 {
		modelID = node.DependsOn.Nodes[0]
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tests (id, name, test_type, model_id, column_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, test_type=excluded.test_type,
			model_id=excluded.model_id, column_name=excluded.column_name
	`, id, node.Name, testType, modelID, node.ColumnName)
	return err
}

// knownTestTypes are the generic dbt test names classified explicitly;
// anything else with test_metadata present is "generic", and anything
// without test_metadata at all is "singular" (handled by the caller).
var knownTestTypes = map[string]bool{
	"not_null":         true,
	"unique":           true,
	"accepted_values":  true,
	"relationships":    true,
}

func classifyTest(name string) string {
	if knownTestTypes[name] {
		return name
	}
	return "generic"
}

func insertMacro(ctx context.Context, tx *sql.Tx, id string, node manifestNode) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO macros (id, name, package_name, description, macro_sql)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, package_name=excluded.package_name,
			description=excluded.description, macro_sql=excluded.macro_sql
	`, id, node.Name, node.PackageName, node.Description, node.MacroSQL)
	return err
}

func insertSource(ctx context.Context, tx *sql.Tx, id string, src manifestSource) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sources (id, source_name, name, description, loader)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET source_name=excluded.source_name, name=excluded.name,
			description=excluded.description, loader=excluded.loader
	`, id, src.SourceName, src.Name, src.Description, src.Loader)
	if err != nil {
		return err
	}
	for colName, col := range src.Columns {
		name := col.Name
		if name == "" {
			name = colName
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO source_columns (source_id, name, data_type, description)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(source_id, name) DO UPDATE SET data_type=excluded.data_type, description=excluded.description
		`, id, name, col.DataType, col.Description); err != nil {
			return err
		}
	}
	return nil
}

func insertExposure(ctx context.Context, tx *sql.Tx, id string, exp manifestExposure) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO exposures (id, name, type, depends_on)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, type=excluded.type, depends_on=excluded.depends_on
	`, id, exp.Name, exp.Type, joinCSV(exp.DependsOn.Nodes))
	return err
}

func insertEdge(ctx context.Context, tx *sql.Tx, parentID, childID string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO edges (parent_id, child_id) VALUES (?, ?)`, parentID, childID)
	return err
}

func setMetadata(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO index_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, key, value)
	return err
}

func joinCSV(parts []string) string {
	b, _ := json.Marshal(parts)
	return string(b)
}

// extractStat pulls a numeric field out of dbt's catalog "stats" map, which
// wraps each value as {"value": ...} rather than storing it bare. gjson
// handles both shapes without a type assertion chain.
func extractStat(statsJSON []byte, key string) (float64, bool) {
	v := gjson.GetBytes(statsJSON, key+".value")
	if v.Exists() {
		return v.Float(), true
	}
	v = gjson.GetBytes(statsJSON, key)
	if v.Exists() && v.Type != gjson.JSON {
		return v.Float(), true
	}
	return 0, false
}
