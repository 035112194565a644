package dbpool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Result summarizes a statement that returns no rows.
type Result struct {
	// RowsAffected is the number of rows changed by the statement.
	RowsAffected int64

	// LastInsertID is the identifier generated by the statement, if the
	// driver reports one. It is zero for drivers that don't.
	LastInsertID int64
}

// Credentials holds the session parameters a handle is created with.
// A zero field means the parameter was not provided and the driver default applies.
type Credentials struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
}

// Session is one physical database session as implemented by a driver.
//
// A Session is never used by two goroutines at once: the pool hands it to a
// single borrower at a time.
type Session interface {
	// Connect opens the underlying connection. It is also called to replace a
	// connection the session has reported lost, after Close.
	Connect(ctx context.Context) error

	// Connected reports whether the connection is open and usable. It turns
	// false once the driver has seen the connection die, e.g. after a server
	// restart or a cancelled statement that forced the driver to hang up.
	Connected() bool

	// Query runs sql and collects every result row in order.
	Query(ctx context.Context, sql string, args []any) ([]Row, error)

	// Exec runs sql that is not expected to return rows.
	Exec(ctx context.Context, sql string, args []any) (Result, error)

	// Stream runs sql and pushes each row to emit in result order. It returns
	// when the result is exhausted (nil) or on the first error, including an
	// error returned by emit. emit is never called after Stream returns.
	Stream(ctx context.Context, sql string, args []any, emit func(Row) error) error

	// Close ends the session. It is only called by the pool's teardown.
	Close(ctx context.Context) error
}

// Dialer builds an unconnected Session for the given credentials.
type Dialer func(creds Credentials) (Session, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Dialer)
)

// RegisterDriver makes a Dialer available by name. It is meant to be called
// from a driver package's init function and panics on duplicate names.
func RegisterDriver(name string, dialer Dialer) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if dialer == nil {
		panic("dbpool: RegisterDriver dialer is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("dbpool: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = dialer
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupDriver(name string) (Dialer, error) {
	driversMu.RLock()
	dialer, ok := drivers[name]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown driver %q (forgotten import?)", name)
	}
	return dialer, nil
}
