package dbpool

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Handle is a reusable database session owned by the pool.
// It is either idle in the pool or checked out by exactly one borrower.
type Handle struct {
	// id identifies the handle in logs.
	id uuid.UUID

	// creds are the credentials the handle was created with. They never change.
	creds Credentials

	// session is the driver session behind this handle.
	session Session

	// connected reports whether Connect has succeeded on session and the
	// pool has not closed it since.
	connected bool
}

func newHandle(creds Credentials, session Session) *Handle {
	return &Handle{
		id:      uuid.New(),
		creds:   creds,
		session: session,
	}
}

// ID returns the handle's identifier.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Credentials returns the credentials the handle was created with.
func (h *Handle) Credentials() Credentials {
	return h.creds
}

// Session returns the driver session behind the handle.
func (h *Handle) Session() Session {
	return h.session
}

// Connected reports whether the handle's session is connected and still usable.
func (h *Handle) Connected() bool {
	return h.connected && h.session.Connected()
}

// ensureConnected connects the session unless it already is. A session that
// reports its connection lost is closed and connected again. The flag is only
// set on success so a failed connect is retried by the next borrower.
func (h *Handle) ensureConnected(ctx context.Context) error {
	if h.connected {
		if h.session.Connected() {
			return nil
		}
		h.connected = false
		// The connection is already gone; Close only frees what is left of it.
		_ = h.session.Close(ctx)
	}
	if err := h.session.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect handle %s: %w", h.id, err)
	}
	h.connected = true
	return nil
}
