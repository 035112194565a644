// Package sqlconn provides dbpool sessions over database/sql drivers.
//
// Each session owns one *sql.Conn, so it maps to exactly one server session
// the way the pool expects. Importing the package registers four drivers:
//
//   - "mysql" using github.com/go-sql-driver/mysql
//   - "postgres" using github.com/lib/pq
//   - "pgx-stdlib" using github.com/jackc/pgx/v5/stdlib
//   - "sqlite" using modernc.org/sqlite; Credentials.Database is the file path
//     and the other credentials are ignored
//
// Text columns that drivers return as []byte are converted to string.
package sqlconn
