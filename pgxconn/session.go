package pgxconn

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yuku/dbpool"
	"github.com/yuku/dbpool/internal/pgconst"
)

// DriverName is the name the package registers with dbpool.
const DriverName = "pgx"

func init() {
	dbpool.RegisterDriver(DriverName, Dial)
}

// Session is a dbpool.Session over one *pgx.Conn.
type Session struct {
	config *pgx.ConnConfig
	conn   *pgx.Conn
}

var _ dbpool.Session = (*Session)(nil)

// Dial builds an unconnected Session. Only the credentials that are set
// override pgx's defaults.
func Dial(creds dbpool.Credentials) (dbpool.Session, error) {
	config, err := ConnConfig(creds)
	if err != nil {
		return nil, err
	}
	return &Session{config: config}, nil
}

// ConnConfig returns the pgx connection config for creds.
func ConnConfig(creds dbpool.Credentials) (*pgx.ConnConfig, error) {
	if len(creds.Database) > pgconst.MaxDatabaseNameLength {
		return nil, fmt.Errorf(
			"database name exceeds maximum length of %d characters: %s",
			pgconst.MaxDatabaseNameLength, creds.Database,
		)
	}

	config, err := pgx.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to parse default pgx config: %w", err)
	}

	if creds.User != "" {
		config.User = creds.User
	}
	if creds.Password != "" {
		config.Password = creds.Password
	}
	if creds.Database != "" {
		config.Database = creds.Database
	}
	if creds.Host != "" {
		config.Host = creds.Host
	}
	if creds.Port != 0 {
		config.Port = uint16(creds.Port)
	}
	return config, nil
}

// Conn returns the underlying connection, or nil before Connect.
func (s *Session) Conn() *pgx.Conn {
	return s.conn
}

// Connect opens the connection.
func (s *Session) Connect(ctx context.Context) error {
	conn, err := pgx.ConnectConfig(ctx, s.config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.conn = conn
	return nil
}

// Connected reports whether the connection is open. pgx closes the
// connection itself on fatal errors, including a statement cancelled through
// its context.
func (s *Session) Connected() bool {
	return s.conn != nil && !s.conn.IsClosed()
}

// Query runs sql and collects all rows.
func (s *Session) Query(ctx context.Context, sql string, args []any) ([]dbpool.Row, error) {
	if s.conn == nil {
		return nil, errNotConnected
	}
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, rowToRow)
}

// Exec runs sql and reports the affected row count. PostgreSQL has no
// last-insert-id; use RETURNING with Query instead.
func (s *Session) Exec(ctx context.Context, sql string, args []any) (dbpool.Result, error) {
	if s.conn == nil {
		return dbpool.Result{}, errNotConnected
	}
	tag, err := s.conn.Exec(ctx, sql, args...)
	if err != nil {
		return dbpool.Result{}, err
	}
	return dbpool.Result{RowsAffected: tag.RowsAffected()}, nil
}

// Stream runs sql and pushes rows to emit as they are read from the wire.
func (s *Session) Stream(ctx context.Context, sql string, args []any, emit func(dbpool.Row) error) error {
	if s.conn == nil {
		return errNotConnected
	}
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		row, err := rowToRow(rows)
		if err != nil {
			return err
		}
		if err := emit(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the connection.
func (s *Session) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(ctx)
	s.conn = nil
	return err
}

var errNotConnected = errors.New("pgx session is not connected")

func rowToRow(row pgx.CollectableRow) (dbpool.Row, error) {
	m, err := pgx.RowToMap(row)
	if err != nil {
		return nil, err
	}
	return dbpool.Row(m), nil
}
