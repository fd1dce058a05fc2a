package httpx

import (
	"strconv"
	"sync"
	"time"

	"dqx0.com/go/rpcwire/internal/obs"
)

// poolKey identifies interchangeable connections.
type poolKey struct {
	scheme string
	host   string
	port   int
	// proxy is the proxy URL the connection goes through, if any.
	proxy string
}

func (k poolKey) String() string {
	s := k.scheme + "://" + k.host + ":" + strconv.Itoa(k.port)
	if k.proxy != "" {
		s += " via " + k.proxy
	}
	return s
}

// Stats is a snapshot of pool counters. Once every exchange has finished,
// Checkouts == Checkins + Discards.
type Stats struct {
	Checkouts uint64
	Checkins  uint64
	Discards  uint64
	Dials     uint64
	Reuses    uint64
	// Evictions counts idle connections closed for expiry or by CloseIdle.
	Evictions uint64
	Idle      int
}

// pool caches idle connections per key. It performs no I/O while holding mu
// and runs no background goroutine: expired entries are dropped lazily on
// checkout and checkin.
type pool struct {
	maxIdle   int
	maxPerKey int
	logger    obs.Logger
	meter     obs.Meter
	mu        sync.Mutex
	idle      map[poolKey][]*conn
	nidle     int
	closed    bool
	stats     Stats
}

func newPool(maxIdle, maxPerKey int, logger obs.Logger, meter obs.Meter) *pool {
	return &pool{
		maxIdle:   maxIdle,
		maxPerKey: maxPerKey,
		logger:    logger,
		meter:     meter,
		idle:      make(map[poolKey][]*conn),
	}
}

// checkout hands out the most recently used live idle connection for key,
// or dials a new one. Ownership passes to the caller, who must return it
// with checkin or discard.
func (p *pool) checkout(key poolKey, dial func() (*conn, error)) (*conn, bool, error) {
	now := time.Now()
	var stale []*conn
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, ErrClientClosed
	}
	var c *conn
	list := p.idle[key]
	for len(list) > 0 {
		last := list[len(list)-1]
		list[len(list)-1] = nil
		list = list[:len(list)-1]
		p.nidle--
		if last.expired(now) {
			stale = append(stale, last)
			continue
		}
		c = last
		break
	}
	p.setIdle(key, list)
	p.stats.Evictions += uint64(len(stale))
	if c != nil {
		p.stats.Checkouts++
		p.stats.Reuses++
		if c.remaining > 0 {
			c.remaining--
		}
	}
	p.mu.Unlock()

	p.closeAll(stale, "expired")
	if c != nil {
		p.meter.Counter("httpx_client_conn_reuse_total", 1)
		return c, true, nil
	}

	c, err := dial()
	if err != nil {
		return nil, false, err
	}
	p.mu.Lock()
	p.stats.Checkouts++
	p.stats.Dials++
	p.mu.Unlock()
	p.meter.Counter("httpx_client_conn_dial_total", 1)
	p.logger.Logf(obs.Debug, "conn %d dialed %s", c.id, key)
	return c, false, nil
}

// checkin returns a clean connection to the pool. It is closed instead when
// the pool is closed or a cap would be exceeded.
func (p *pool) checkin(c *conn) {
	c.lastUse = time.Now()
	p.mu.Lock()
	keep := !p.closed && p.maxIdle > 0 && !c.expired(c.lastUse) &&
		p.nidle < p.maxIdle && len(p.idle[c.key]) < p.maxPerKey
	if keep {
		p.idle[c.key] = append(p.idle[c.key], c)
		p.nidle++
		p.stats.Checkins++
	} else {
		p.stats.Discards++
	}
	p.mu.Unlock()
	if !keep {
		p.logger.Logf(obs.Debug, "conn %d not pooled", c.id)
		_ = c.close()
	}
}

// discard closes a connection that must not be reused.
func (p *pool) discard(c *conn, reason string) {
	p.mu.Lock()
	p.stats.Discards++
	p.mu.Unlock()
	_ = c.close()
	p.meter.Counter("httpx_client_conn_discard_total", 1, obs.L("reason", reason))
	p.logger.Logf(obs.Debug, "conn %d discarded: %s", c.id, reason)
}

// closeIdle synchronously closes every idle connection. When final is set
// the pool stops accepting connections.
func (p *pool) closeIdle(final bool) {
	var all []*conn
	p.mu.Lock()
	for key, list := range p.idle {
		all = append(all, list...)
		delete(p.idle, key)
	}
	p.nidle = 0
	p.stats.Evictions += uint64(len(all))
	if final {
		p.closed = true
	}
	p.mu.Unlock()
	p.closeAll(all, "closed")
}

func (p *pool) closeAll(list []*conn, reason string) {
	for _, c := range list {
		_ = c.close()
		p.meter.Counter("httpx_client_conn_idle_closed_total", 1, obs.L("reason", reason))
	}
}

func (p *pool) setIdle(key poolKey, list []*conn) {
	if len(list) == 0 {
		delete(p.idle, key)
		return
	}
	p.idle[key] = list
}

func (p *pool) snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Idle = p.nidle
	return s
}
