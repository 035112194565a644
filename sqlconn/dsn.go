package sqlconn

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/yuku/dbpool"
	_ "modernc.org/sqlite"
)

// PgxStdlibDriver runs PostgreSQL through pgx's database/sql adapter. The
// "pgx" name is taken by the pgxconn package, which talks to pgx directly.
const PgxStdlibDriver = "pgx-stdlib"

const (
	defaultMySQLHost = "127.0.0.1"
	defaultMySQLPort = 3306
)

func init() {
	dbpool.RegisterDriver("mysql", dialWith("mysql", MySQLDSN))
	dbpool.RegisterDriver("postgres", dialWith("postgres", PostgresDSN))
	dbpool.RegisterDriver(PgxStdlibDriver, dialWith("pgx", PostgresDSN))
	dbpool.RegisterDriver("sqlite", dialWith("sqlite", SQLiteDSN))
}

func dialWith(driverName string, dsn func(dbpool.Credentials) string) dbpool.Dialer {
	return func(creds dbpool.Credentials) (dbpool.Session, error) {
		return New(driverName, dsn(creds)), nil
	}
}

// MySQLDSN builds a go-sql-driver/mysql DSN. An address is only set when a
// host or port is given; the missing half defaults to 127.0.0.1:3306.
func MySQLDSN(creds dbpool.Credentials) string {
	cfg := mysql.NewConfig()
	cfg.User = creds.User
	cfg.Passwd = creds.Password
	cfg.DBName = creds.Database

	if creds.Host != "" || creds.Port != 0 {
		host := creds.Host
		if host == "" {
			host = defaultMySQLHost
		}
		port := creds.Port
		if port == 0 {
			port = defaultMySQLPort
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return cfg.FormatDSN()
}

// PostgresDSN builds a libpq keyword/value DSN holding only the credentials
// that are set. Both lib/pq and pgx fill the rest from PG* environment variables.
func PostgresDSN(creds dbpool.Credentials) string {
	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+quoteDSNValue(value))
		}
	}
	add("host", creds.Host)
	if creds.Port != 0 {
		add("port", strconv.Itoa(creds.Port))
	}
	add("user", creds.User)
	add("password", creds.Password)
	add("dbname", creds.Database)
	return strings.Join(parts, " ")
}

// SQLiteDSN uses the database as a file path, or an in-memory database when unset.
func SQLiteDSN(creds dbpool.Credentials) string {
	if creds.Database == "" {
		return ":memory:"
	}
	return creds.Database
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
