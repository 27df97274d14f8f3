package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS models (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	package_name   TEXT NOT NULL DEFAULT '',
	path           TEXT NOT NULL DEFAULT '',
	fqn            TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	layer          TEXT NOT NULL DEFAULT 'other',
	materialized   TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '',
	compiled_sql   TEXT NOT NULL DEFAULT '',
	raw_code       TEXT NOT NULL DEFAULT '',
	meta           TEXT NOT NULL DEFAULT '{}',
	centrality     REAL NOT NULL DEFAULT 0,
	upstream_count   INTEGER NOT NULL DEFAULT 0,
	downstream_count INTEGER NOT NULL DEFAULT 0,
	rows_affected        INTEGER,
	execution_time_seconds REAL,
	last_run_status      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS columns (
	model_id       TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	data_type      TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (model_id, name)
);
CREATE INDEX IF NOT EXISTS idx_columns_model ON columns(model_id);

CREATE TABLE IF NOT EXISTS sources (
	id             TEXT PRIMARY KEY,
	source_name    TEXT NOT NULL,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	loader         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS source_columns (
	source_id      TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	data_type      TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_id, name)
);

CREATE TABLE IF NOT EXISTS tests (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	test_type      TEXT NOT NULL,
	model_id       TEXT NOT NULL DEFAULT '',
	column_name    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_tests_model ON tests(model_id);
CREATE INDEX IF NOT EXISTS idx_tests_model_column ON tests(model_id, column_name);

CREATE TABLE IF NOT EXISTS macros (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	package_name   TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	macro_sql      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS exposures (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT '',
	depends_on     TEXT NOT NULL DEFAULT ''
);

-- edges is the entire dependency graph: one row per parent->child
-- relationship, regardless of node kind (model, source, exposure). The
-- graph package issues one query per BFS hop against this table rather
-- than holding the graph in memory.
CREATE TABLE IF NOT EXISTS edges (
	parent_id      TEXT NOT NULL,
	child_id       TEXT NOT NULL,
	PRIMARY KEY (parent_id, child_id)
);
CREATE INDEX IF NOT EXISTS idx_edges_parent ON edges(parent_id);
CREATE INDEX IF NOT EXISTS idx_edges_child ON edges(child_id);

CREATE TABLE IF NOT EXISTS index_metadata (
	key            TEXT PRIMARY KEY,
	value          TEXT NOT NULL
);
`

const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS search_index USING fts5(
	model_id UNINDEXED,
	name,
	description,
	columns,
	sql,
	tags
);
`
