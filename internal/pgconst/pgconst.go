package pgconst

const (
	// MaxDatabaseNameLength is the maximum length of a database name in PostgreSQL.
	MaxDatabaseNameLength = 63

	// DefaultPort is the port libpq-compatible clients use when none is given.
	DefaultPort = 5432
)
