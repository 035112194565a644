package sqlconn

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/yuku/dbpool"
)

func TestMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		creds    dbpool.Credentials
		wantAddr string
		wantNet  string
	}{
		{
			name:     "no address given",
			creds:    dbpool.Credentials{User: "app", Database: "orders"},
			wantAddr: "127.0.0.1:3306",
			wantNet:  "tcp",
		},
		{
			name:     "host only",
			creds:    dbpool.Credentials{Host: "db.internal"},
			wantAddr: "db.internal:3306",
			wantNet:  "tcp",
		},
		{
			name:     "port only",
			creds:    dbpool.Credentials{Port: 3307},
			wantAddr: "127.0.0.1:3307",
			wantNet:  "tcp",
		},
		{
			name:     "ipv6 host",
			creds:    dbpool.Credentials{Host: "::1", Port: 3306},
			wantAddr: "[::1]:3306",
			wantNet:  "tcp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := mysql.ParseDSN(MySQLDSN(tt.creds))
			require.NoError(t, err)
			require.Equal(t, tt.creds.User, cfg.User)
			require.Equal(t, tt.creds.Password, cfg.Passwd)
			require.Equal(t, tt.creds.Database, cfg.DBName)
			require.Equal(t, tt.wantNet, cfg.Net)
			require.Equal(t, tt.wantAddr, cfg.Addr)
		})
	}

	t.Run("password with special characters", func(t *testing.T) {
		creds := dbpool.Credentials{User: "app", Password: "p@ss/w:rd", Database: "orders"}
		cfg, err := mysql.ParseDSN(MySQLDSN(creds))
		require.NoError(t, err)
		require.Equal(t, "p@ss/w:rd", cfg.Passwd)
	})
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name  string
		creds dbpool.Credentials
		want  string
	}{
		{name: "empty", creds: dbpool.Credentials{}, want: ""},
		{name: "database only", creds: dbpool.Credentials{Database: "orders"}, want: "dbname=orders"},
		{
			name:  "all fields",
			creds: dbpool.Credentials{User: "app", Password: "secret", Database: "orders", Host: "localhost", Port: 5433},
			want:  "host=localhost port=5433 user=app password=secret dbname=orders",
		},
		{
			name:  "quoted values",
			creds: dbpool.Credentials{User: "app", Password: `it's a \secret`},
			want:  `user=app password='it\'s a \\secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PostgresDSN(tt.creds))
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	require.Equal(t, ":memory:", SQLiteDSN(dbpool.Credentials{}))
	require.Equal(t, "/tmp/orders.db", SQLiteDSN(dbpool.Credentials{Database: "/tmp/orders.db", User: "ignored"}))
}

func TestRegisteredDrivers(t *testing.T) {
	drivers := dbpool.Drivers()
	for _, name := range []string{"mysql", "postgres", PgxStdlibDriver, "sqlite"} {
		require.Contains(t, drivers, name)
	}
}
