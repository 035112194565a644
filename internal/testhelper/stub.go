package testhelper

import (
	"context"
	"sync"

	"github.com/yuku/dbpool"
)

// StubSession is an in-memory dbpool.Session that records how it is used.
type StubSession struct {
	// ConnectErr is returned by Connect.
	ConnectErr error
	// QueryErr is returned by Query, Exec and Stream (after Rows for Stream).
	QueryErr error
	// Rows are returned by Query and emitted by Stream.
	Rows []dbpool.Row
	// Result is returned by Exec.
	Result dbpool.Result
	// CloseErr is returned by Close.
	CloseErr error
	// ClosePanic, if non-nil, makes Close panic with it.
	ClosePanic any
	// OnQuery runs at the start of Query, Exec and Stream.
	OnQuery func()

	mu        sync.Mutex
	creds     dbpool.Credentials
	connected bool
	connects  int
	queries   int
	closes    int
	lastEmit  func(dbpool.Row) error
}

var _ dbpool.Session = (*StubSession)(nil)

func (s *StubSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.connected = true
	return nil
}

func (s *StubSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Disconnect simulates the driver losing the connection.
func (s *StubSession) Disconnect() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

func (s *StubSession) Query(ctx context.Context, sql string, args []any) ([]dbpool.Row, error) {
	s.begin()
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}
	return append([]dbpool.Row(nil), s.Rows...), nil
}

func (s *StubSession) Exec(ctx context.Context, sql string, args []any) (dbpool.Result, error) {
	s.begin()
	if s.QueryErr != nil {
		return dbpool.Result{}, s.QueryErr
	}
	return s.Result, nil
}

func (s *StubSession) Stream(ctx context.Context, sql string, args []any, emit func(dbpool.Row) error) error {
	s.begin()
	s.mu.Lock()
	s.lastEmit = emit
	s.mu.Unlock()
	for _, row := range s.Rows {
		if err := emit(row); err != nil {
			return err
		}
	}
	return s.QueryErr
}

func (s *StubSession) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closes++
	s.connected = false
	s.mu.Unlock()
	if s.ClosePanic != nil {
		panic(s.ClosePanic)
	}
	return s.CloseErr
}

func (s *StubSession) begin() {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()
	if s.OnQuery != nil {
		s.OnQuery()
	}
}

// EmitLate pushes row through the emit function of the last Stream call,
// as a misbehaving driver would after the stream has ended.
func (s *StubSession) EmitLate(row dbpool.Row) error {
	s.mu.Lock()
	emit := s.lastEmit
	s.mu.Unlock()
	if emit == nil {
		return nil
	}
	return emit(row)
}

// Credentials returns the credentials the session was dialed with.
func (s *StubSession) Credentials() dbpool.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// Connects returns how many times Connect was called.
func (s *StubSession) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// Queries returns how many statements ran on the session.
func (s *StubSession) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// Closes returns how many times Close was called.
func (s *StubSession) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// StubDialer creates StubSessions and remembers them.
type StubDialer struct {
	// Template configures every new session. It is copied field by field.
	Template StubSession
	// Err, if set, is returned instead of a session.
	Err error

	mu       sync.Mutex
	sessions []*StubSession
}

// Dial implements dbpool.Dialer.
func (d *StubDialer) Dial(creds dbpool.Credentials) (dbpool.Session, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	s := &StubSession{
		ConnectErr: d.Template.ConnectErr,
		QueryErr:   d.Template.QueryErr,
		Rows:       d.Template.Rows,
		Result:     d.Template.Result,
		CloseErr:   d.Template.CloseErr,
		ClosePanic: d.Template.ClosePanic,
		OnQuery:    d.Template.OnQuery,
		creds:      creds,
	}

	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

// Sessions returns the sessions created so far, oldest first.
func (d *StubDialer) Sessions() []*StubSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*StubSession(nil), d.sessions...)
}
