package store

// SchemaVersion is bumped whenever the entries or meta layout changes.
const SchemaVersion = "1"

// Meta keys written by the index builder.
const (
	MetaSchemaVersion = "schema_version"
	MetaBuildID       = "build_id"
	MetaBuiltAt       = "built_at"
	MetaRoots         = "roots"
	MetaEntryCount    = "entry_count"
	MetaSkippedCount  = "skipped_count"
	MetaDurationMS    = "duration_ms"
	MetaVersion       = "version"
)

// schemaSQL creates the tables. Secondary indexes (indexSQL) are only
// added after the bulk load.
const schemaSQL = `
CREATE TABLE entries (
	path     TEXT    NOT NULL UNIQUE,
	parent   TEXT    NOT NULL,
	name     TEXT    NOT NULL,
	type     INTEGER NOT NULL,
	size     INTEGER,
	created  INTEGER NOT NULL,
	modified INTEGER NOT NULL
);

CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

var indexSQL = []string{
	`CREATE INDEX idx_entries_parent ON entries(parent)`,
	`CREATE INDEX idx_entries_name ON entries(name)`,
	`CREATE INDEX idx_entries_size ON entries(size)`,
	`CREATE INDEX idx_entries_created ON entries(created)`,
	`CREATE INDEX idx_entries_modified ON entries(modified)`,
}

const insertEntrySQL = `INSERT INTO entries (path, parent, name, type, size, created, modified) VALUES (?, ?, ?, ?, ?, ?, ?)`

const selectEntryColumns = `path, parent, name, type, size, created, modified`
