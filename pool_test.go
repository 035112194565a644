package dbpool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yuku/dbpool"
	"github.com/yuku/dbpool/internal/testhelper"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// newTestPool creates a pool over dialer with warn-level logs captured.
func newTestPool(t *testing.T, dialer *testhelper.StubDialer, mutate ...func(*dbpool.Config)) (*dbpool.Pool, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.WarnLevel)
	config := &dbpool.Config{
		Name:        "test",
		Dialer:      dialer.Dial,
		MaxHandles:  2,
		IdleTimeout: time.Minute,
		Logger:      zap.New(core),
	}
	for _, m := range mutate {
		m(config)
	}

	pool, err := dbpool.NewPool(config)
	require.NoError(t, err, "failed to create pool")
	t.Cleanup(pool.Close)
	return pool, logs
}

func TestNewPool(t *testing.T) {
	t.Run("returns error if nil is given", func(t *testing.T) {
		_, err := dbpool.NewPool(nil)
		require.Error(t, err)
	})

	t.Run("returns error if invalid config is given", func(t *testing.T) {
		_, err := dbpool.NewPool(&dbpool.Config{MaxHandles: 1})
		require.ErrorContains(t, err, "invalid config")
	})

	t.Run("returns error for unknown driver", func(t *testing.T) {
		_, err := dbpool.NewPool(&dbpool.Config{Driver: "no-such-driver"})
		require.ErrorContains(t, err, `unknown driver "no-such-driver"`)
	})

	t.Run("creates handles lazily", func(t *testing.T) {
		dialer := &testhelper.StubDialer{}
		pool, _ := newTestPool(t, dialer)

		stat := pool.Stat()
		require.Equal(t, int32(0), stat.Total)
		require.Equal(t, int32(2), stat.Max)
		require.Empty(t, dialer.Sessions())
	})

	t.Run("applies defaults", func(t *testing.T) {
		pool, _ := newTestPool(t, &testhelper.StubDialer{}, func(c *dbpool.Config) {
			c.MaxHandles = 0
			c.IdleTimeout = 0
		})
		cfg := pool.Config()
		require.Equal(t, dbpool.DefaultMaxHandles, cfg.MaxHandles)
		require.Equal(t, dbpool.DefaultIdleTimeout, cfg.IdleTimeout)
		require.Equal(t, dbpool.DefaultIdleTimeout/2, cfg.ReapInterval)
	})
}

func TestPool_AcquireRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("reuses released handle", func(t *testing.T) {
		dialer := &testhelper.StubDialer{}
		pool, _ := newTestPool(t, dialer)

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		first := conn.Handle()
		require.False(t, first.Connected(), "new handles are not connected")
		conn.Release()

		conn, err = pool.Acquire(ctx)
		require.NoError(t, err)
		require.Same(t, first, conn.Handle())
		conn.Release()

		require.Len(t, dialer.Sessions(), 1)
		require.Equal(t, int32(0), pool.Stat().Acquired)
		require.Equal(t, int32(1), pool.Stat().Idle)
	})

	t.Run("second release is ignored", func(t *testing.T) {
		pool, logs := newTestPool(t, &testhelper.StubDialer{})

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		id := conn.Handle().ID()
		conn.Release()
		require.NotPanics(t, conn.Release)
		require.Equal(t, id, conn.Handle().ID())

		require.Equal(t, 1, logs.FilterMessage("handle released twice").Len())
		require.Equal(t, int32(1), pool.Stat().Idle)
	})

	t.Run("returns acquisition error from dialer", func(t *testing.T) {
		dialErr := errors.New("no route to host")
		pool, _ := newTestPool(t, &testhelper.StubDialer{Err: dialErr})

		conn, err := pool.Acquire(ctx)
		require.Nil(t, conn)
		require.ErrorIs(t, err, dialErr)
		require.Equal(t, int32(0), pool.Stat().Total)
	})
}

func TestPool_Capacity(t *testing.T) {
	ctx := context.Background()
	pool, _ := newTestPool(t, &testhelper.StubDialer{})

	c1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	c2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.NotSame(t, c1.Handle(), c2.Handle())

	t.Run("blocks until timeout when exhausted", func(t *testing.T) {
		timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := pool.Acquire(timeoutCtx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, int32(2), pool.Stat().Total)
	})

	t.Run("waiter gets released handle", func(t *testing.T) {
		got := make(chan *dbpool.Conn, 1)
		go func() {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				close(got)
				return
			}
			got <- conn
		}()

		select {
		case <-got:
			t.Fatal("acquire should block while the pool is exhausted")
		case <-time.After(20 * time.Millisecond):
		}

		c1.Release()

		select {
		case conn, ok := <-got:
			require.True(t, ok, "acquire failed")
			require.Same(t, c1.Handle(), conn.Handle())
			conn.Release()
		case <-time.After(time.Second):
			t.Fatal("waiter was not woken by release")
		}
	})

	c2.Release()
	require.Equal(t, int32(0), pool.Stat().Acquired)
}

func TestPool_IdleReaping(t *testing.T) {
	ctx := context.Background()

	t.Run("destroys handles idle past the timeout", func(t *testing.T) {
		dialer := &testhelper.StubDialer{}
		pool, _ := newTestPool(t, dialer, func(c *dbpool.Config) {
			c.IdleTimeout = 10 * time.Millisecond
			c.ReapInterval = time.Hour
		})

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		conn.Release()

		require.Equal(t, 0, pool.ReapIdle(), "fresh idle handle must survive")
		time.Sleep(30 * time.Millisecond)
		require.Equal(t, 1, pool.ReapIdle())

		require.Eventually(t, func() bool {
			return pool.Stat().Total == 0
		}, time.Second, 5*time.Millisecond)
		require.Equal(t, 0, dialer.Sessions()[0].Closes(), "unconnected handles are not closed")
	})

	t.Run("never touches checked out handles", func(t *testing.T) {
		pool, _ := newTestPool(t, &testhelper.StubDialer{}, func(c *dbpool.Config) {
			c.IdleTimeout = time.Millisecond
			c.ReapInterval = time.Hour
		})

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		require.Equal(t, 0, pool.ReapIdle())
		require.Equal(t, int32(1), pool.Stat().Acquired)
		conn.Release()
	})

	t.Run("background reaper runs on its own", func(t *testing.T) {
		pool, _ := newTestPool(t, &testhelper.StubDialer{}, func(c *dbpool.Config) {
			c.IdleTimeout = 5 * time.Millisecond
			c.ReapInterval = 5 * time.Millisecond
		})

		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		conn.Release()

		require.Eventually(t, func() bool {
			return pool.Stat().Total == 0
		}, time.Second, 5*time.Millisecond)
	})
}

func TestPool_Teardown(t *testing.T) {
	ctx := context.Background()

	connectAndRelease := func(t *testing.T, pool *dbpool.Pool) {
		t.Helper()
		exec := dbpool.NewExecutor(pool)
		_, err := exec.NonQuery(ctx, "SELECT 1")
		require.NoError(t, err)
	}

	t.Run("closes connected sessions", func(t *testing.T) {
		dialer := &testhelper.StubDialer{}
		pool, _ := newTestPool(t, dialer)
		connectAndRelease(t, pool)

		pool.Close()
		require.Equal(t, 1, dialer.Sessions()[0].Closes())
	})

	t.Run("logs close errors instead of returning them", func(t *testing.T) {
		dialer := &testhelper.StubDialer{Template: testhelper.StubSession{CloseErr: errors.New("broken pipe")}}
		pool, logs := newTestPool(t, dialer)
		connectAndRelease(t, pool)

		require.NotPanics(t, pool.Close)
		require.Equal(t, 1, logs.FilterMessage("failed to close handle").Len())
	})

	t.Run("recovers panics from close", func(t *testing.T) {
		dialer := &testhelper.StubDialer{Template: testhelper.StubSession{ClosePanic: "boom"}}
		pool, logs := newTestPool(t, dialer)
		connectAndRelease(t, pool)

		require.NotPanics(t, pool.Close)
		require.Equal(t, 1, logs.FilterMessage("panic while closing handle").Len())
	})

	t.Run("rejects acquire after close", func(t *testing.T) {
		pool, _ := newTestPool(t, &testhelper.StubDialer{})
		pool.Close()

		_, err := pool.Acquire(ctx)
		require.ErrorIs(t, err, dbpool.ErrPoolClosed)
	})
}

func TestPool_MetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	newConfig := func() *dbpool.Config {
		return &dbpool.Config{Name: "orders", Dialer: (&testhelper.StubDialer{}).Dial, Registerer: reg}
	}

	first, err := dbpool.NewPool(newConfig())
	require.NoError(t, err)
	t.Cleanup(first.Close)

	t.Run("same name on a shared registerer is an error", func(t *testing.T) {
		pool, err := dbpool.NewPool(newConfig())
		require.Nil(t, pool)
		var already prometheus.AlreadyRegisteredError
		require.ErrorAs(t, err, &already)
		require.ErrorContains(t, err, `failed to register metrics for pool "orders"`)
	})

	t.Run("other names register alongside", func(t *testing.T) {
		config := newConfig()
		config.Name = "invoices"
		pool, err := dbpool.NewPool(config)
		require.NoError(t, err)
		pool.Close()
	})

	t.Run("name is free again after close", func(t *testing.T) {
		first.Close()

		pool, err := dbpool.NewPool(newConfig())
		require.NoError(t, err)
		pool.Close()
	})
}
