package store

const schemaVersion = 1

// schemaSQL is portable between SQLite and PostgreSQL.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	rule_id         TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	layer           INTEGER NOT NULL DEFAULT 0,
	source_id       TEXT NOT NULL DEFAULT '',
	mirror_of       TEXT NOT NULL DEFAULT '',
	environment     TEXT NOT NULL DEFAULT '',
	object          TEXT NOT NULL DEFAULT '',
	condition       TEXT NOT NULL DEFAULT '',
	action          TEXT NOT NULL DEFAULT '',
	tool            TEXT NOT NULL DEFAULT '',
	result          TEXT NOT NULL,
	anchor          TEXT NOT NULL DEFAULT '',
	semantic_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	score           DOUBLE PRECISION NOT NULL DEFAULT 0,
	success_rate    DOUBLE PRECISION NOT NULL DEFAULT 0,
	support_count   INTEGER NOT NULL DEFAULT 0,
	rejection_count INTEGER NOT NULL DEFAULT 0,
	indirect_count  INTEGER NOT NULL DEFAULT 0,
	total_count     INTEGER NOT NULL DEFAULT 0,
	usage_count     INTEGER NOT NULL DEFAULT 0,
	success_count   INTEGER NOT NULL DEFAULT 0,
	validated       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_confidence ON rules(confidence);
`
