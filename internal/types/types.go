// Package types defines the entities shared across the ingestion, graph,
// search, patterns, and capsule packages.
package types

// Column describes a single column on a model or source.
type Column struct {
	Name        string   `json:"name"`
	DataType    string   `json:"data_type,omitempty"`
	Description string   `json:"description,omitempty"`
	Tests       []string `json:"tests,omitempty"`
	IsPrimaryKey bool    `json:"is_primary_key,omitempty"`
	IsForeignKey bool    `json:"is_foreign_key,omitempty"`
}

// Model is a dbt model node (unique_id with resource_type "model").
type Model struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	FQN           []string       `json:"fqn"`
	PackageName   string         `json:"package_name"`
	Path          string         `json:"path"`
	Description   string         `json:"description,omitempty"`
	Layer         string         `json:"layer"`
	Materialized  string         `json:"materialized,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	CompiledSQL   string         `json:"compiled_sql,omitempty"`
	RawCode       string         `json:"raw_code,omitempty"`
	Columns       []Column       `json:"columns,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
	Centrality    float64        `json:"centrality,omitempty"`
	UpstreamCount int            `json:"upstream_count,omitempty"`
	DownstreamCount int          `json:"downstream_count,omitempty"`
	RowsAffected  *int64         `json:"rows_affected,omitempty"`
	ExecutionTimeSeconds *float64 `json:"execution_time_seconds,omitempty"`
	LastRunStatus string         `json:"last_run_status,omitempty"`
}

// Source is a dbt source table (manifest "sources" map).
type Source struct {
	ID            string   `json:"id"`
	SourceName    string   `json:"source_name"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Columns       []Column `json:"columns,omitempty"`
	LoaderName    string   `json:"loader,omitempty"`
}

// Test is a dbt generic or singular test node.
type Test struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TestType   string `json:"test_type"`
	ModelID    string `json:"model_id,omitempty"`
	ColumnName string `json:"column_name,omitempty"`
}

// Macro is a dbt macro definition.
type Macro struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PackageName string `json:"package_name"`
	Description string `json:"description,omitempty"`
	MacroSQL    string `json:"macro_sql,omitempty"`
}

// Exposure is a dbt exposure node (a downstream consumer, e.g. a dashboard).
type Exposure struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Type  string   `json:"type,omitempty"`
	Depends []string `json:"depends_on,omitempty"`
}

// SkeletonColumn is the compact column representation used in skeleton and
// minimal model tiers.
type SkeletonColumn struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type,omitempty"`
	IsPrimaryKey bool   `json:"is_primary_key,omitempty"`
	IsForeignKey bool   `json:"is_foreign_key,omitempty"`
}

// FullModelContext is the pivot-tier model representation: everything.
type FullModelContext struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Layer        string   `json:"layer"`
	Description  string   `json:"description,omitempty"`
	Materialized string   `json:"materialized,omitempty"`
	FilePath     string   `json:"file_path,omitempty"`
	Columns      []Column `json:"columns"`
	CompiledSQL  string   `json:"compiled_sql,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	DependsOn    []string `json:"depends_on,omitempty"`
}

// SkeletonModelContext is the upstream-tier model representation:
// schema-only name+type pairs.
type SkeletonModelContext struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Layer   string           `json:"layer"`
	Columns []SkeletonColumn `json:"columns"`
}

// MinimalModelContext is the downstream-tier model representation: name,
// column count, and up to five key (PK/FK) columns.
type MinimalModelContext struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Layer       string           `json:"layer"`
	ColumnCount int              `json:"column_count"`
	KeyColumns  []SkeletonColumn `json:"key_columns,omitempty"`
}

// SearchResult is one hit from a hybrid search query.
type SearchResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Layer       string  `json:"layer"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// NamingPatterns captures detected naming conventions per layer.
type NamingPatterns struct {
	StagingPrefix      string `json:"staging_prefix,omitempty"`
	IntermediatePrefix string `json:"intermediate_prefix,omitempty"`
	MartsPrefixes      []string `json:"marts_prefixes,omitempty"`
	YAMLPattern        string `json:"yaml_pattern,omitempty"`
}

// ProjectPatterns is the set of inferred conventions for a project.
type ProjectPatterns struct {
	Naming              NamingPatterns     `json:"naming"`
	MaterializationByLayer map[string]string `json:"materialization_by_layer,omitempty"`
	CoverageByLayer     map[string]float64 `json:"coverage_by_layer,omitempty"`
	CommonTags          []string           `json:"common_tags,omitempty"`
}

// ProjectStats summarizes the indexed project.
type ProjectStats struct {
	ModelCount      int     `json:"model_count"`
	SourceCount     int     `json:"source_count"`
	TestCount       int     `json:"test_count"`
	MacroCount      int     `json:"macro_count"`
	ExposureCount   int     `json:"exposure_count"`
	LayerCounts     map[string]int `json:"layer_counts"`
	TestCoveragePct float64 `json:"test_coverage_pct"`
}

// ContextCapsule is the assembled, token-bounded output of a capsule build.
type ContextCapsule struct {
	Task                 string                 `json:"task"`
	Intent               string                 `json:"intent"`
	TokenBudget          int                    `json:"token_budget"`
	TokenEstimate        int                    `json:"token_estimate"`
	Confidence           string                 `json:"confidence"`
	Pivot                []FullModelContext     `json:"pivot"`
	Upstream             []SkeletonModelContext `json:"upstream"`
	Downstream           []MinimalModelContext  `json:"downstream"`
	Tests                []Test                 `json:"tests,omitempty"`
	Macros               []Macro                `json:"macros,omitempty"`
	RelevantSources      []Source               `json:"relevant_sources,omitempty"`
	Patterns             *ProjectPatterns       `json:"patterns,omitempty"`
	SimilarModels        []string               `json:"similar_models,omitempty"`
	SessionContext       map[string]any         `json:"session_context"`
	SuggestedRefinements []string               `json:"suggested_refinements,omitempty"`
}

// TestCoverageReport is the per-model/column test coverage view.
type TestCoverageReport struct {
	ModelID          string   `json:"model_id"`
	ModelName        string   `json:"model_name"`
	TestedColumns    int      `json:"tested_columns"`
	TotalColumns     int      `json:"total_columns"`
	UntestedColumns  []string `json:"untested_columns,omitempty"`
	Suggestions      []string `json:"suggestions,omitempty"`
}
