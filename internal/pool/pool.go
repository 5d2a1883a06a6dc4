// Package pool implements a synchronous, thread-safe connection pool:
// idle/active lists, check-out with overdue reclaim, and liveness
// pinging, plus the connection-managed and externally-managed
// transaction flavors.
package pool

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/gogf/gf/container/gtype"
	"github.com/gogf/gf/errors/gerror"
	"github.com/gogf/gf/os/glog"
)

var logger = glog.New()

// Opener creates the single real connection type the pool manages. It is
// supplied by the environment/datasource layer so the pool itself never
// depends on a concrete driver.
type Opener interface {
	Open(ctx context.Context) (*sql.Conn, error)
	// Ping checks liveness using the configured ping query.
	Ping(ctx context.Context, conn *sql.Conn, query string) error
}

// Config holds the pool's tunable knobs.
type Config struct {
	MaxActive      int
	MaxIdle        int
	MaxCheckoutTime time.Duration
	WaitTime       time.Duration
	MaxBadTolerance int
	PingQuery      string
	PingEnabled    bool
	PingIfIdleFor  time.Duration

	URL, User, Password string
}

// TypeCode is hash(url,user,password), used to detect a returned wrapper's
// connection still belongs to the pool it's being returned to.
func (c Config) TypeCode() uint32 {
	h := fnv.New32a()
	h.Write([]byte(c.URL + "\x00" + c.User + "\x00" + c.Password))
	return h.Sum32()
}

// PooledConnection wraps a raw *sql.Conn with the pool's bookkeeping:
// type code, timestamps, and a validity flag.
type PooledConnection struct {
	real        *sql.Conn
	pool        *Pool
	typeCode    uint32
	createdAt   time.Time
	lastUsedAt  time.Time
	checkedOutAt time.Time
	valid       bool
	mu          sync.Mutex
}

func (pc *PooledConnection) Valid() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.valid
}

func (pc *PooledConnection) invalidate() {
	pc.mu.Lock()
	pc.valid = false
	pc.mu.Unlock()
}

// Raw exposes the underlying *sql.Conn for executing SQL.
func (pc *PooledConnection) Raw() *sql.Conn { return pc.real }

func (pc *PooledConnection) checkoutDuration() time.Duration {
	return time.Since(pc.checkedOutAt)
}

// Close returns pc to the pool rather than closing the underlying
// connection.
func (pc *PooledConnection) Close() error {
	return pc.pool.pushConnection(pc)
}

// Stats is a snapshot of pool counters, useful for diagnostics and tests.
type Stats struct {
	ActiveCount             int
	IdleCount               int
	RequestCount            int64
	AccumulatedWaitTime     time.Duration
	BadConnectionCount      int64
	ClaimedOverdueCount     int64
}

// Pool is a synchronized connection pool. All state is guarded by a
// single mutex; a sync.Cond provides the wait/notify-all handoff between
// returners and blocked checkouts.
type Pool struct {
	cfg    Config
	opener Opener

	mu    sync.Mutex
	cond  *sync.Cond
	idle  []*PooledConnection
	active []*PooledConnection

	requestCount        int64
	accumulatedWaitTime time.Duration
	badConnectionCount  *gtype.Int64
	claimedOverdueCount *gtype.Int64
}

func New(cfg Config, opener Opener) *Pool {
	p := &Pool{
		cfg:                 cfg,
		opener:              opener,
		badConnectionCount:  gtype.NewInt64(),
		claimedOverdueCount: gtype.NewInt64(),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ActiveCount:         len(p.active),
		IdleCount:           len(p.idle),
		RequestCount:        p.requestCount,
		AccumulatedWaitTime: p.accumulatedWaitTime,
		BadConnectionCount:  p.badConnectionCount.Val(),
		ClaimedOverdueCount: p.claimedOverdueCount.Val(),
	}
}

// Checkout hands out an idle connection, opens a new one under the
// MaxActive cap, or reclaims the oldest active connection when its holder
// has exceeded MaxCheckoutTime; otherwise it waits and retries.
func (p *Pool) Checkout(ctx context.Context) (*PooledConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requestCount++
	localBad := 0
	start := time.Now()

	for {
		var candidate *PooledConnection

		switch {
		case len(p.idle) > 0:
			candidate = p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]

		case len(p.active) < p.cfg.MaxActive:
			raw, err := p.opener.Open(ctx)
			if err != nil {
				return nil, gerror.Wrap(err, "pool: opening new connection")
			}
			candidate = &PooledConnection{
				real: raw, pool: p, typeCode: p.cfg.TypeCode(),
				createdAt: time.Now(), lastUsedAt: time.Now(), valid: true,
			}

		default:
			oldest := p.active[0]
			if oldest.checkoutDuration() > p.cfg.MaxCheckoutTime {
				p.active = p.active[1:]
				oldest.invalidate()
				p.claimedOverdueCount.Add(1)
				logger.Ctx(ctx).Warning("pool: reclaiming overdue connection, checked out for", oldest.checkoutDuration())
				replacement := &PooledConnection{
					real: oldest.real, pool: p, typeCode: p.cfg.TypeCode(),
					createdAt: oldest.createdAt, lastUsedAt: time.Now(), valid: true,
				}
				candidate = replacement
			} else {
				p.accumulatedWaitTime += p.waitOnce()
				start = time.Now()
				continue
			}
		}

		if !p.validate(ctx, candidate) {
			localBad++
			p.badConnectionCount.Add(1)
			if localBad > p.cfg.MaxIdle+p.cfg.MaxBadTolerance {
				return nil, gerror.Newf("pool: exhausted bad-connection tolerance after %d attempts", localBad)
			}
			continue
		}

		candidate.checkedOutAt = time.Now()
		candidate.lastUsedAt = time.Now()
		p.active = append(p.active, candidate)
		p.accumulatedWaitTime += time.Since(start)
		return candidate, nil
	}
}

// waitOnce blocks on the pool's condition variable for at most cfg.WaitTime
// and returns the elapsed wait.
func (p *Pool) waitOnce() time.Duration {
	wait := p.cfg.WaitTime
	if wait <= 0 {
		wait = 200 * time.Millisecond
	}
	done := make(chan struct{})
	timer := time.AfterFunc(wait, func() {
		p.mu.Lock()
		close(done)
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	started := time.Now()
	p.cond.Wait()
	timer.Stop()
	select {
	case <-done:
	default:
	}
	return time.Since(started)
}

func (p *Pool) validate(ctx context.Context, pc *PooledConnection) bool {
	if !pc.Valid() {
		return false
	}
	if !p.cfg.PingEnabled {
		return true
	}
	if time.Since(pc.lastUsedAt) < p.cfg.PingIfIdleFor {
		return true
	}
	if err := p.opener.Ping(ctx, pc.real, p.cfg.PingQuery); err != nil {
		pc.invalidate()
		_ = pc.real.Close()
		return false
	}
	return true
}

// pushConnection returns a wrapper to the idle list (behind a fresh
// wrapper around the same real connection) or closes the real connection
// when the idle list is full or the type code no longer matches. An
// already-invalid wrapper only increments the bad-connection count; its
// real connection is left open.
func (p *Pool) pushConnection(pc *PooledConnection) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// remove from active list
	for i, a := range p.active {
		if a == pc {
			p.active = append(p.active[:i], p.active[i+1:]...)
			break
		}
	}

	if !pc.Valid() {
		// The wrapper was invalidated (overdue reclaim or force close);
		// its real connection now belongs to a replacement wrapper, so
		// closing it here would break that wrapper's holder.
		p.badConnectionCount.Add(1)
		return nil
	}

	if len(p.idle) < p.cfg.MaxIdle && pc.typeCode == p.cfg.TypeCode() {
		pc.invalidate() // old wrapper retired
		fresh := &PooledConnection{
			real: pc.real, pool: p, typeCode: pc.typeCode,
			createdAt: pc.createdAt, lastUsedAt: time.Now(), valid: true,
		}
		p.idle = append(p.idle, fresh)
		p.cond.Broadcast()
		return nil
	}

	pc.invalidate()
	if err := pc.real.Close(); err != nil {
		return gerror.Wrap(err, "pool: closing discarded connection")
	}
	return nil
}

// Close drains and closes every connection the pool currently holds.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range append(append([]*PooledConnection{}, p.idle...), p.active...) {
		c.invalidate()
		if err := c.real.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.idle = nil
	p.active = nil
	return firstErr
}
