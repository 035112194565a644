package sqlconn

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/yuku/dbpool"
)

// Session is a dbpool.Session over a single database/sql connection.
type Session struct {
	driverName string
	dsn        string

	db   *sql.DB
	conn *sql.Conn

	// lost is set once the driver reports the connection unusable.
	lost bool
}

var _ dbpool.Session = (*Session)(nil)

// New returns an unconnected Session for a registered database/sql driver.
func New(driverName, dsn string) *Session {
	return &Session{driverName: driverName, dsn: dsn}
}

// DSN returns the data source name the session connects with.
func (s *Session) DSN() string {
	return s.dsn
}

// Connect opens a dedicated connection, dropping any previous one.
func (s *Session) Connect(ctx context.Context) error {
	if s.conn != nil || s.db != nil {
		_ = s.Close(ctx)
	}

	db, err := sql.Open(s.driverName, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", s.driverName, err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to %s database: %w", s.driverName, err)
	}
	s.db = db
	s.conn = conn
	s.lost = false
	return nil
}

// Connected reports whether the connection is open and the driver has not
// reported it broken.
func (s *Session) Connected() bool {
	return s.conn != nil && !s.lost
}

// check records a broken connection and returns err unchanged.
func (s *Session) check(err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		s.lost = true
	}
	return err
}

// Query runs sql and collects all rows.
func (s *Session) Query(ctx context.Context, sql string, args []any) ([]dbpool.Row, error) {
	var out []dbpool.Row
	err := s.Stream(ctx, sql, args, func(row dbpool.Row) error {
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exec runs sql. RowsAffected and LastInsertID are zero when the driver
// doesn't support them.
func (s *Session) Exec(ctx context.Context, sql string, args []any) (dbpool.Result, error) {
	if s.conn == nil {
		return dbpool.Result{}, errNotConnected
	}
	res, err := s.conn.ExecContext(ctx, sql, args...)
	if err != nil {
		return dbpool.Result{}, s.check(err)
	}

	var result dbpool.Result
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertID = id
	}
	return result, nil
}

// Stream runs sql and pushes rows to emit as they are scanned.
func (s *Session) Stream(ctx context.Context, sql string, args []any, emit func(dbpool.Row) error) error {
	if s.conn == nil {
		return errNotConnected
	}
	rows, err := s.conn.QueryContext(ctx, sql, args...)
	if err != nil {
		return s.check(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}

	for rows.Next() {
		row, err := scanRow(rows, columns)
		if err != nil {
			return s.check(err)
		}
		if err := emit(row); err != nil {
			return err
		}
	}
	return s.check(rows.Err())
}

// Close closes the connection and its database handle.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
		s.conn = nil
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	s.lost = false
	return errors.Join(errs...)
}

var errNotConnected = errors.New("sql session is not connected")

func scanRow(rows *sql.Rows, columns []string) (dbpool.Row, error) {
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	row := make(dbpool.Row, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}
