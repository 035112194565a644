// Package dbpool runs SQL on a bounded pool of reusable database handles.
//
// A Pool owns up to MaxHandles handles. Each handle wraps one driver Session
// and is checked out by at most one borrower at a time. Handles are created on
// demand and connected lazily by the first borrower that needs them, so a pool
// that is never used never opens a connection. Handles left idle for longer
// than IdleTimeout are destroyed in the background.
//
// An Executor borrows a handle for every operation and releases it exactly
// once, whether the operation succeeded, failed to connect or failed to run:
//
//   - Query returns every row
//   - QuerySingle returns the first row, or nil when there is none
//   - NonQuery returns a Result with the affected row count
//   - QueryMany pushes rows to a callback and then reports the outcome once
//
// # Basic Usage
//
// Drivers register themselves on import, the same way database/sql drivers do:
//
//	import (
//		"github.com/yuku/dbpool"
//		_ "github.com/yuku/dbpool/pgxconn"
//	)
//
//	func main() {
//		exec, err := dbpool.Open(dbpool.Config{Driver: "pgx", MaxHandles: 10},
//			dbpool.WithHost("localhost"),
//			dbpool.WithDatabase("orders"),
//		)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer exec.Close()
//
//		rows, err := exec.Query(ctx, "SELECT id, item FROM orders WHERE qty > $1", 2)
//		...
//	}
//
// Session parameters that are not given are left to the driver, which usually
// falls back to its own defaults or environment variables.
//
// # Streaming
//
// QueryMany delivers rows in result order while the statement runs. The handle
// goes back to the pool before the end callback is called, so the end callback
// may safely start another operation on the same executor:
//
//	exec.QueryMany(ctx, "SELECT * FROM events", nil,
//		func(row dbpool.Row) error {
//			return process(row)
//		},
//		func(err error) {
//			if err != nil {
//				log.Printf("stream failed: %v", err)
//			}
//		},
//	)
//
// # Errors
//
// Every failed operation returns an *Error. KindOf tells whether the handle
// could not be acquired, its session could not connect, the statement failed
// or a row callback stopped the stream. The driver's own error stays reachable
// through errors.Is and errors.As.
//
// # Drivers
//
//   - pgxconn: "pgx", one *pgx.Conn per handle
//   - sqlconn: "postgres" (lib/pq), "mysql" (go-sql-driver/mysql) and
//     "sqlite" (modernc.org/sqlite), one *sql.Conn per handle
//
// Other drivers implement Session and call RegisterDriver from init, or pass a
// Dialer in Config directly.
package dbpool
