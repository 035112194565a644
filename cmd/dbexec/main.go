// Command dbexec runs SQL through a dbpool executor and prints the rows as JSON.
//
// Usage:
//
//	dbexec --driver sqlite --database ./orders.db query "SELECT * FROM orders WHERE qty > ?" 2
//	dbexec --config dbpool.yaml stream "SELECT * FROM events"
//	dbexec --driver pgx --host localhost --database orders exec "DELETE FROM carts WHERE stale"
//
// Connection settings come from the optional config file, then DBPOOL_*
// environment variables (a .env file in the working directory is loaded
// first), then flags.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
