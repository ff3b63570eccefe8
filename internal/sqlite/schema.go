package sqlite

// Database file name inside the data directory.
const dbFile = "filestore.db"

// Schema DDL for the two document collections.
const (
	createResource = `CREATE TABLE IF NOT EXISTS resource (
    _id TEXT PRIMARY KEY,
    spec TEXT NOT NULL,
    resource_path TEXT NOT NULL,
    resource_kwargs TEXT NOT NULL
);`

	createDatum = `CREATE TABLE IF NOT EXISTS datum (
    _id TEXT PRIMARY KEY,
    datum_id TEXT NOT NULL UNIQUE,
    resource TEXT NOT NULL,
    datum_kwargs TEXT NOT NULL,
    FOREIGN KEY (resource) REFERENCES resource(_id)
);`
)

// Index DDL. The unique index on datum_id comes from the column constraint.
const (
	idxDatumResource = `CREATE INDEX IF NOT EXISTS idx_datum_resource ON datum(resource);`
	idxResourceSpec  = `CREATE INDEX IF NOT EXISTS idx_resource_spec ON resource(spec);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createResource,
	createDatum,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxDatumResource,
	idxResourceSpec,
}
