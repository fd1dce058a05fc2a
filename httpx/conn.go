package httpx

import (
	"bufio"
	"context"
	"net"
	"os"
	"sync/atomic"
	"time"
)

// conn is one pooled connection. It carries at most one request at a time
// and is owned either by the pool or by exactly one exchange.
type conn struct {
	id  uint64
	key poolKey
	dc  *deadlineConn
	br  *bufio.Reader
	bw  *bufio.Writer

	lastUse time.Time
	// idleFor is the shorter of the pool idle timeout and the peer's
	// Keep-Alive timeout.
	idleFor time.Duration
	// remaining is the peer's Keep-Alive max; -1 when not advertised.
	remaining int
}

func newConn(id uint64, key poolKey, nc net.Conn, idleFor time.Duration) *conn {
	dc := &deadlineConn{Conn: nc}
	return &conn{
		id:        id,
		key:       key,
		dc:        dc,
		br:        bufio.NewReaderSize(dc, 16<<10),
		bw:        bufio.NewWriterSize(dc, 16<<10),
		lastUse:   time.Now(),
		idleFor:   idleFor,
		remaining: -1,
	}
}

// expired reports whether c may no longer be handed out.
func (c *conn) expired(now time.Time) bool {
	if c.remaining == 0 || c.br.Buffered() > 0 {
		return true
	}
	return c.idleFor > 0 && now.Sub(c.lastUse) >= c.idleFor
}

// keepAlive records the peer's Keep-Alive hints from the last response.
func (c *conn) keepAlive(timeout time.Duration, max int) {
	if timeout > 0 && timeout < c.idleFor {
		c.idleFor = timeout
	}
	if max > 0 {
		c.remaining = max
	}
}

func (c *conn) close() error { return c.dc.Conn.Close() }

// deadlineConn bounds every Read and Write individually: before each call
// the deadline becomes min(now+timeout, limit). cancel forces all pending
// and future operations to fail.
type deadlineConn struct {
	net.Conn
	read, write time.Duration
	limit       time.Time
	cancelled   atomic.Bool
}

// arm sets the timeouts and overall deadline for one exchange.
func (d *deadlineConn) arm(read, write time.Duration, ctx context.Context) {
	d.read, d.write = read, write
	d.limit, _ = ctx.Deadline()
}

func (d *deadlineConn) next(timeout time.Duration) time.Time {
	var t time.Time
	if timeout > 0 {
		t = time.Now().Add(timeout)
	}
	if !d.limit.IsZero() && (t.IsZero() || d.limit.Before(t)) {
		t = d.limit
	}
	return t
}

func (d *deadlineConn) Read(p []byte) (int, error) {
	if err := d.Conn.SetReadDeadline(d.next(d.read)); err != nil {
		return 0, err
	}
	if d.cancelled.Load() {
		return 0, os.ErrDeadlineExceeded
	}
	return d.Conn.Read(p)
}

func (d *deadlineConn) Write(p []byte) (int, error) {
	if err := d.Conn.SetWriteDeadline(d.next(d.write)); err != nil {
		return 0, err
	}
	if d.cancelled.Load() {
		return 0, os.ErrDeadlineExceeded
	}
	return d.Conn.Write(p)
}

// cancel interrupts a blocked Read or Write. The flag is set before the
// deadline so a concurrent Read/Write cannot re-arm past it.
func (d *deadlineConn) cancel() {
	d.cancelled.Store(true)
	_ = d.Conn.SetDeadline(time.Unix(1, 0))
}
