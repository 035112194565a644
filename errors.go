package dbpool

import (
	"errors"
	"fmt"
)

// ErrPoolClosed is returned when acquiring from a closed pool.
var ErrPoolClosed = errors.New("pool is closed")

// Kind classifies where an executor operation failed.
type Kind int

const (
	// KindUnknown is reported for errors that did not come from the executor.
	KindUnknown Kind = iota
	// KindAcquire means no handle could be obtained from the pool.
	KindAcquire
	// KindConnect means a handle was obtained but its session failed to connect.
	KindConnect
	// KindQuery means the statement itself failed.
	KindQuery
	// KindCallback means a caller-supplied row callback returned an error.
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindAcquire:
		return "acquire"
	case KindConnect:
		return "connect"
	case KindQuery:
		return "query"
	case KindCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Error is returned by every Executor operation that fails.
// Callers that don't care where the failure happened can treat it as a plain error;
// the cause is reachable with errors.Is and errors.As.
type Error struct {
	// Op is the executor operation, e.g. "query" or "non_query".
	Op string
	// Kind is the stage that failed.
	Kind Kind
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func wrapErr(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
