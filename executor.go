package dbpool

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RowFunc receives one streamed row. Returning an error stops the stream.
type RowFunc func(Row) error

// EndFunc receives the terminal outcome of a stream: nil on normal end.
type EndFunc func(error)

// Executor runs statements on handles borrowed from a Pool.
//
// Every operation acquires its own handle, connects it if needed, runs the
// statement and releases the handle exactly once before reporting the outcome.
// Operations may be called from many goroutines; they only contend on the
// pool's capacity. Nothing is retried.
type Executor struct {
	pool   *Pool
	logger *zap.Logger
}

// NewExecutor creates an Executor over pool. The pool must outlive the executor.
func NewExecutor(pool *Pool) *Executor {
	return &Executor{
		pool:   pool,
		logger: pool.config.Logger.With(zap.String("component", "executor"), zap.String("pool", pool.config.Name)),
	}
}

// Open creates the handle pool described by config and an Executor over it.
// opts are applied on top of config.Credentials; parameters that are not
// given stay unset. Call it once, before any query, and Close the executor
// when done.
func Open(config Config, opts ...Option) (*Executor, error) {
	for _, opt := range opts {
		opt(&config.Credentials)
	}
	pool, err := NewPool(&config)
	if err != nil {
		return nil, err
	}
	return NewExecutor(pool), nil
}

// Pool returns the pool the executor borrows handles from.
func (e *Executor) Pool() *Pool {
	return e.pool
}

// Close closes the underlying pool.
func (e *Executor) Close() {
	e.pool.Close()
}

// obtain acquires a handle and makes sure it is connected. A connect failure
// returns the Conn together with the error: the caller still owns the Conn and
// must release it. An acquire failure returns a nil Conn.
func (e *Executor) obtain(ctx context.Context, op string) (*Conn, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, wrapErr(op, KindAcquire, err)
	}
	h := conn.Handle()
	if h.connected && !h.session.Connected() {
		e.logger.Info("reconnecting lost session", zap.String("op", op), zap.Stringer("handle_id", h.ID()))
	}
	if err := h.ensureConnected(ctx); err != nil {
		e.pool.metrics.connectErrors.Inc()
		e.logger.Debug("connect failed", zap.String("op", op),
			zap.Stringer("handle_id", h.ID()), zap.Error(err))
		return conn, wrapErr(op, KindConnect, err)
	}
	return conn, nil
}

// release returns conn to the pool. It tolerates a nil conn so it can be
// deferred right after obtain.
func release(conn *Conn) {
	if conn != nil {
		conn.Release()
	}
}

// Query runs sql and returns every result row in order.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (rows []Row, err error) {
	const op = "query"
	start := time.Now()
	defer func() { e.pool.metrics.observe(op, start, err) }()

	conn, err := e.obtain(ctx, op)
	defer release(conn)
	if err != nil {
		return nil, err
	}

	rows, err = conn.Handle().session.Query(ctx, sql, args)
	if err != nil {
		return nil, wrapErr(op, KindQuery, err)
	}
	return rows, nil
}

// QuerySingle runs sql and returns its first row. A query that returns no rows
// yields (nil, nil); only acquire, connect and query failures are errors.
func (e *Executor) QuerySingle(ctx context.Context, sql string, args ...any) (row Row, err error) {
	const op = "query_single"
	start := time.Now()
	defer func() { e.pool.metrics.observe(op, start, err) }()

	conn, err := e.obtain(ctx, op)
	defer release(conn)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Handle().session.Query(ctx, sql, args)
	if err != nil {
		return nil, wrapErr(op, KindQuery, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// NonQuery runs sql that is not expected to return rows.
func (e *Executor) NonQuery(ctx context.Context, sql string, args ...any) (result Result, err error) {
	const op = "non_query"
	start := time.Now()
	defer func() { e.pool.metrics.observe(op, start, err) }()

	conn, err := e.obtain(ctx, op)
	defer release(conn)
	if err != nil {
		return Result{}, err
	}

	result, err = conn.Handle().session.Exec(ctx, sql, args)
	if err != nil {
		return Result{}, wrapErr(op, KindQuery, err)
	}
	return result, nil
}

// QueryMany streams the rows of sql to onRow, one call per row in result
// order, then calls onEnd exactly once with nil on normal end or the error
// that stopped the stream. onEnd may be nil. onRow is never called after
// onEnd. The handle is released before onEnd runs.
//
// If onRow returns an error the stream stops and that error is the terminal
// one. If onRow or onEnd panics, the handle is still released and the panic
// propagates to the caller.
func (e *Executor) QueryMany(ctx context.Context, sql string, args []any, onRow RowFunc, onEnd EndFunc) {
	const op = "query_many"
	start := time.Now()

	err := e.stream(ctx, op, sql, args, onRow)
	e.pool.metrics.observe(op, start, err)

	if onEnd != nil {
		onEnd(err)
	}
}

// stream holds the handle for the duration of the row events only, so the
// deferred release runs before QueryMany delivers the terminal event.
func (e *Executor) stream(ctx context.Context, op, sql string, args []any, onRow RowFunc) error {
	conn, err := e.obtain(ctx, op)
	defer release(conn)
	if err != nil {
		return err
	}

	h := conn.Handle()
	var ended atomic.Bool
	defer ended.Store(true)

	var callbackErr error
	emit := func(row Row) error {
		if ended.Load() {
			e.logger.Warn("dropped row delivered after end of stream", zap.Stringer("handle_id", h.ID()))
			return nil
		}
		if onRow == nil {
			return nil
		}
		if err := onRow(row); err != nil {
			callbackErr = err
			return err
		}
		return nil
	}

	err = h.session.Stream(ctx, sql, args, emit)
	if callbackErr != nil {
		return wrapErr(op, KindCallback, callbackErr)
	}
	if err != nil {
		return wrapErr(op, KindQuery, err)
	}
	return nil
}
