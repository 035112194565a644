package testhelper

import (
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/yuku/dbpool"
	"github.com/yuku/dbpool/internal/pgconst"
)

// PostgresCredentials returns credentials for the PostgreSQL server named by
// DATABASE_URL. The test is skipped in short mode or when DATABASE_URL is unset.
func PostgresCredentials(t *testing.T) dbpool.Credentials {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL is not set")
	}

	config, err := pgx.ParseConfig(connString)
	if err != nil {
		t.Fatalf("failed to parse DATABASE_URL: %v", err)
	}

	port := int(config.Port)
	if port == 0 {
		port = pgconst.DefaultPort
	}
	return dbpool.Credentials{
		User:     config.User,
		Password: config.Password,
		Database: config.Database,
		Host:     config.Host,
		Port:     port,
	}
}
