package store

// Dialect abstracts the SQL differences between SQLite and PostgreSQL
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// Placeholder returns the parameter placeholder for a 1-indexed position
	Placeholder(position int) string

	// SupportsLastInsertID reports whether Result.LastInsertId works.
	// PostgreSQL needs a RETURNING clause instead.
	SupportsLastInsertID() bool

	// ReturningClause returns the RETURNING suffix for INSERT statements
	ReturningClause(column string) string

	// InitStatements run once after the connection opens
	InitStatements() []string

	// IsDuplicateKeyError reports a unique constraint violation
	IsDuplicateKeyError(err error) bool

	// SerialPrimaryKey returns the column definition of an auto-assigned id
	SerialPrimaryKey() string
}

// DialectType identifies the database dialect
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect creates a Dialect for the given type, defaulting to SQLite
func NewDialect(dialectType DialectType) Dialect {
	switch dialectType {
	case DialectPostgres:
		return &PostgresDialect{}
	default:
		return &SQLiteDialect{}
	}
}
