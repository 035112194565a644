package dbpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"go.uber.org/zap"
)

// closeTimeout bounds how long teardown waits for a session to close.
const closeTimeout = 5 * time.Second

// Pool manages a bounded set of reusable handles.
//
// Acquire blocks while every handle is checked out; that is the only
// backpressure the pool applies. Handles idle for longer than IdleTimeout are
// destroyed by a background reaper. Checked-out handles are never reaped.
type Pool struct {
	config  Config
	dialer  Dialer
	res     *puddle.Pool[*Handle]
	logger  *zap.Logger
	metrics *poolMetrics

	closeOnce  sync.Once
	stopCh     chan struct{}
	reaperDone chan struct{}
}

// Stat is a snapshot of the pool's bookkeeping.
type Stat struct {
	// Acquired is the number of handles currently checked out.
	Acquired int32
	// Idle is the number of handles waiting in the pool.
	Idle int32
	// Constructing is the number of handles being created.
	Constructing int32
	// Total is Acquired + Idle + Constructing.
	Total int32
	// Max is the configured capacity.
	Max int32
	// AcquireCount is the number of successful acquires since creation.
	AcquireCount int64
}

// NewPool creates a new handle pool. No handle is created until the first Acquire.
func NewPool(config *Config) (*Pool, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg := config.withDefaults()

	dialer := cfg.Dialer
	if dialer == nil {
		d, err := lookupDriver(cfg.Driver)
		if err != nil {
			return nil, err
		}
		dialer = d
	}

	p := &Pool{
		config:     cfg,
		dialer:     dialer,
		logger:     cfg.Logger.With(zap.String("component", "handle_pool"), zap.String("pool", cfg.Name)),
		stopCh:     make(chan struct{}),
		reaperDone: make(chan struct{}),
	}

	res, err := puddle.NewPool(&puddle.Config[*Handle]{
		Constructor: p.construct,
		Destructor:  p.teardown,
		MaxSize:     int32(cfg.MaxHandles),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	p.res = res
	metrics, err := newPoolMetrics(cfg.Registerer, cfg.Name, p.Stat)
	if err != nil {
		res.Close()
		return nil, err
	}
	p.metrics = metrics

	go p.reapLoop()

	return p, nil
}

// Acquire checks out a handle, creating one if the pool is below capacity and
// no handle is idle. The returned handle may not be connected yet.
// Every successful Acquire must be paired with exactly one Conn.Release.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	res, err := p.res.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrPoolClosed
		}
		return nil, fmt.Errorf("failed to acquire handle: %w", err)
	}
	return &Conn{pool: p, res: res, handle: res.Value()}, nil
}

// Stat returns the current pool statistics.
func (p *Pool) Stat() Stat {
	s := p.res.Stat()
	return Stat{
		Acquired:     s.AcquiredResources(),
		Idle:         s.IdleResources(),
		Constructing: s.ConstructingResources(),
		Total:        s.TotalResources(),
		Max:          s.MaxResources(),
		AcquireCount: s.AcquireCount(),
	}
}

// Config returns the effective configuration, defaults applied.
func (p *Pool) Config() Config {
	return p.config
}

// Close stops the reaper and destroys every handle. It blocks until all
// checked-out handles have been released, then unregisters the pool's
// metrics. Acquire fails with ErrPoolClosed afterwards.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.stopCh)
		<-p.reaperDone
		p.res.Close()
		p.metrics.unregister()
		p.logger.Debug("pool closed")
	})
}

// construct is the pool's factory. It never connects; the executor connects lazily.
func (p *Pool) construct(ctx context.Context) (*Handle, error) {
	session, err := p.dialer(p.config.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	h := newHandle(p.config.Credentials, session)
	p.metrics.handlesCreated.Inc()
	p.logger.Debug("created handle", zap.Stringer("handle_id", h.id))
	return h, nil
}

// teardown is the pool's destroy hook. Close errors and panics stop here.
func (p *Pool) teardown(h *Handle) {
	p.metrics.handlesDestroyed.Inc()
	p.logger.Debug("destroying handle", zap.Stringer("handle_id", h.id), zap.Bool("connected", h.connected))

	if !h.connected {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.metrics.teardownErrors.Inc()
			p.logger.Warn("panic while closing handle",
				zap.Stringer("handle_id", h.id), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	h.connected = false
	if err := h.session.Close(ctx); err != nil {
		p.metrics.teardownErrors.Inc()
		p.logger.Warn("failed to close handle", zap.Stringer("handle_id", h.id), zap.Error(err))
	}
}

func (p *Pool) reapLoop() {
	defer close(p.reaperDone)

	ticker := time.NewTicker(p.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.reapIdle()
		case <-p.stopCh:
			return
		}
	}
}

// reapIdle destroys idle handles unused for longer than IdleTimeout and
// returns how many it destroyed.
func (p *Pool) reapIdle() int {
	reaped := 0
	for _, res := range p.res.AcquireAllIdle() {
		if res.IdleDuration() > p.config.IdleTimeout {
			res.Destroy()
			reaped++
			continue
		}
		res.ReleaseUnused()
	}
	if reaped > 0 {
		p.logger.Debug("reaped idle handles", zap.Int("reaped", reaped), zap.Int32("idle", p.res.Stat().IdleResources()))
	}
	return reaped
}

// Conn is a checked-out handle.
type Conn struct {
	pool     *Pool
	res      *puddle.Resource[*Handle]
	handle   *Handle
	released atomic.Bool
}

// Handle returns the checked-out handle. The handle must not be used after
// Release, but its ID stays valid for logging.
func (c *Conn) Handle() *Handle {
	return c.handle
}

// Release returns the handle to the pool. Only the first call has an effect.
func (c *Conn) Release() {
	if !c.released.CompareAndSwap(false, true) {
		c.pool.logger.Warn("handle released twice", zap.Stringer("handle_id", c.handle.id))
		return
	}
	c.res.Release()
}
