package httpx

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
)

// Client issues requests and owns the connection pool. It is safe for
// concurrent use; create one per set of Options and reuse it.
type Client struct {
	opts   Options
	pool   *pool
	sem    *semaphore.Weighted
	nextID atomic.Uint64
	closed atomic.Bool
}

// New returns a Client configured by opts (zero fields take defaults).
func New(opts Options) *Client {
	opts.setDefaults()
	return &Client{
		opts: opts,
		pool: newPool(opts.MaxIdle, opts.MaxIdlePerHost, opts.Logger, opts.Meter),
		sem:  semaphore.NewWeighted(opts.MaxInFlight),
	}
}

// Options returns the effective configuration.
func (c *Client) Options() Options { return c.opts }

// Do performs req on the calling goroutine. Cancellation is observed through
// the deadline of ctx and the per-operation timeouts only.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.send(ctx, req, blocking)
}

// Get issues a GET for url.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, &Request{Method: "GET", URL: url})
}

// Post issues a POST of body with the given Content-Type.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) (*Response, error) {
	req := &Request{Method: "POST", URL: url, Body: body}
	if contentType != "" {
		req.Header.Add("Content-Type", contentType)
	}
	return c.Do(ctx, req)
}

// Stats returns a snapshot of the pool counters.
func (c *Client) Stats() Stats { return c.pool.snapshot() }

// CloseIdle closes every idle connection before returning.
func (c *Client) CloseIdle() { c.pool.closeIdle(false) }

// Close closes idle connections and rejects further requests. Connections
// in use are closed when their exchange finishes.
func (c *Client) Close() error {
	c.closed.Store(true)
	c.pool.closeIdle(true)
	return nil
}

func (c *Client) limits(maxBody int64) http1.Limits {
	return http1.Limits{
		MaxLineBytes:   http1.DefaultMaxLineBytes,
		MaxHeaderBytes: c.opts.MaxHeaderBytes,
		MaxHeaderCount: c.opts.MaxHeaderCount,
		MaxBodyBytes:   maxBody,
	}
}
