// Package pgxconn provides a dbpool session backed by a single pgx connection.
//
// Importing the package registers the "pgx" driver:
//
//	import (
//		"github.com/yuku/dbpool"
//		_ "github.com/yuku/dbpool/pgxconn"
//	)
//
//	exec, err := dbpool.Open(dbpool.Config{Driver: "pgx"},
//		dbpool.WithHost("localhost"),
//		dbpool.WithDatabase("orders"),
//	)
//
// Credentials that are not given fall back to pgx's own defaults, which read
// the standard libpq environment variables (PGHOST, PGPORT, PGUSER, ...).
//
// Rows are returned as dbpool.Row values built with pgx.RowToMap, so column
// values keep the Go types pgx decodes them to (int32, int64, string,
// time.Time, ...).
package pgxconn
