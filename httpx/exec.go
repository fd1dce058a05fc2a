package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http/httpguts"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
	"dqx0.com/go/rpcwire/internal/obs"
)

// mode selects how an exchange waits on the network. Both modes share the
// protocol code below and produce the same errors.
type mode int

const (
	// blocking parks the calling goroutine in each syscall; only deadlines
	// end a wait.
	blocking mode = iota
	// async additionally ties every wait to ctx: connect and handshake take
	// ctx directly and socket I/O is interrupted on cancellation.
	async
)

func (m mode) String() string {
	if m == async {
		return "async"
	}
	return "blocking"
}

// attempt is one hop of a request: the (possibly redirected) target plus
// what gets sent.
type attempt struct {
	method string
	url    *URL
	header Header
	body   []byte
	stream bodyStream
	set    settings
}

// bodyStream is a one-shot streaming body.
type bodyStream struct {
	r    io.Reader
	used bool
}

func (c *Client) send(ctx context.Context, req *Request, m mode) (res *Response, err error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if !http1.ValidMethod(req.Method) {
		return nil, fmt.Errorf("%w: method %q", ErrInvalidRequest, req.Method)
	}
	if req.Body != nil && req.BodyStream != nil {
		return nil, fmt.Errorf("%w: both Body and BodyStream set", ErrInvalidRequest)
	}
	for _, f := range req.Header {
		if !http1.ValidField(f) {
			return nil, fmt.Errorf("%w: header %q", ErrInvalidRequest, f.Name)
		}
	}
	u, err := ParseURL(req.URL)
	if err != nil {
		return nil, err
	}
	at := &attempt{
		method: req.Method,
		url:    u,
		header: req.Header.Clone(),
		body:   req.Body,
		stream: bodyStream{r: req.BodyStream},
		set:    req.settings(&c.opts),
	}
	if c.opts.RequestIDHeader != "" && !at.header.Has(c.opts.RequestIDHeader) {
		at.header.Add(c.opts.RequestIDHeader, requestID(ctx))
	}

	start := time.Now()
	ctx, span := c.startSpan(ctx, at)
	defer func() {
		c.endSpan(span, res, err)
		c.record(at.method, start, res, err)
	}()
	if c.opts.Propagator != nil {
		c.opts.Propagator.Inject(ctx, headerCarrier{h: &at.header})
	}
	return c.follow(ctx, at, req.FollowRedirects, m)
}

// exchange sends one request on one connection and reads the response. The
// connection goes back to the pool only when the exchange finished cleanly
// and the peer allows reuse; after any error it is closed.
func (c *Client) exchange(ctx context.Context, at *attempt, m mode) (*Response, error) {
	var proxy *URL
	if c.opts.Proxy != nil {
		p, err := c.opts.Proxy(at.url)
		if err != nil {
			return nil, err
		}
		proxy = p
	}
	key := poolKey{scheme: at.url.Scheme, host: at.url.Host, port: at.url.Port}
	if proxy != nil {
		key.proxy = proxy.String()
	}
	cn, reused, err := c.pool.checkout(key, func() (*conn, error) {
		return c.dial(ctx, key, at, proxy, m)
	})
	if err != nil {
		c.opts.Logger.Logf(obs.Warn, "dial %s failed: %v", key, err)
		return nil, err
	}

	cn.dc.arm(at.set.read, at.set.write, ctx)
	stop := func() bool { return true }
	if m == async {
		stop = context.AfterFunc(ctx, cn.dc.cancel)
	}
	res, keep, err := c.roundTrip(cn, at, proxy)
	interrupted := !stop()
	if err != nil {
		if interrupted && ctx.Err() != nil {
			err = &IOError{Op: opOf(err), Err: ctx.Err()}
		}
		c.pool.discard(cn, stage(err))
		c.opts.Logger.Logf(obs.Warn, "conn %d %s: %v", cn.id, m, err)
		return nil, err
	}
	if keep && !interrupted {
		c.pool.checkin(cn)
	} else {
		c.pool.discard(cn, "not reusable")
	}
	res.URL = at.url
	res.ConnID = cn.id
	res.Reused = reused
	return res, nil
}

func opOf(err error) string {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return ioe.Op
	}
	return "read"
}

// roundTrip writes the request and reads the response on cn.
func (c *Client) roundTrip(cn *conn, at *attempt, proxy *URL) (*Response, bool, error) {
	head, err := c.head(at, proxy)
	if err != nil {
		return nil, false, err
	}
	if err := http1.WriteRequestHead(cn.bw, head); err != nil {
		return nil, false, classifyIO("write", err)
	}
	if at.stream.r != nil {
		if at.stream.used {
			return nil, false, ErrBodyNotReplayable
		}
		at.stream.used = true
		if _, err := http1.CopyChunked(cn.bw, at.stream.r); err != nil {
			return nil, false, classifyIO("write", err)
		}
	} else if len(at.body) > 0 {
		if _, err := cn.bw.Write(at.body); err != nil {
			return nil, false, classifyIO("write", err)
		}
	}
	if err := cn.bw.Flush(); err != nil {
		return nil, false, classifyIO("write", err)
	}
	c.opts.Meter.Counter("httpx_client_requests_total", 1, obs.L("method", at.method))

	pr, err := http1.ReadResponse(cn.br, at.method, c.limits(at.set.maxBody))
	if err != nil {
		return nil, false, classifyIO("read", err)
	}
	timeout, max := http1.KeepAliveHint(pr.Header)
	cn.keepAlive(timeout, max)
	res := &Response{
		StatusCode: pr.StatusCode,
		Reason:     pr.Reason,
		Proto:      pr.Proto,
		Header:     Header(pr.Header),
		Trailer:    Header(pr.Trailer),
		Body:       pr.Body,
	}
	keep := pr.KeepAlive && pr.StatusCode != 101 && !at.header.hasClose()
	return res, keep, nil
}

func (h Header) hasClose() bool {
	return httpguts.HeaderValuesContainsToken(h.Values("Connection"), "close")
}

// head assembles the request line and engine-managed headers.
func (c *Client) head(at *attempt, proxy *URL) (http1.RequestHead, error) {
	u := at.url
	h := http1.RequestHead{
		Method:        at.method,
		Target:        u.RequestURI(),
		Host:          u.HostHeader(),
		Header:        at.header,
		ContentLength: int64(len(at.body)),
	}
	if at.stream.r != nil {
		h.ContentLength = -1
	}
	extra := Header(nil)
	if u.User != nil && !at.header.Has("Authorization") {
		auth, err := basicAuth(u.User)
		if err != nil {
			return h, err
		}
		extra.Add("Authorization", auth)
	}
	if proxy != nil && u.Scheme == "http" {
		h.Target = u.absolute()
		if proxy.User != nil && !at.header.Has("Proxy-Authorization") {
			auth, err := basicAuth(proxy.User)
			if err != nil {
				return h, err
			}
			extra.Add("Proxy-Authorization", auth)
		}
	}
	if len(extra) > 0 {
		h.Header = append(at.header.Clone(), extra...)
	}
	return h, nil
}

// dial opens a connection for key, tunnelling through proxy and wrapping
// it in TLS as needed.
func (c *Client) dial(ctx context.Context, key poolKey, at *attempt, proxy *URL, m mode) (*conn, error) {
	if lim := c.opts.DialLimiter; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, &ConnectError{Kind: ConnectTimeout, Addr: key.String(), Err: err}
		}
	}
	addr := at.url.Hostport()
	if proxy != nil {
		addr = proxy.Hostport()
	}
	deadline := time.Now().Add(at.set.connect)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	d := net.Dialer{Deadline: deadline}
	var (
		raw net.Conn
		err error
	)
	if m == async {
		raw, err = d.DialContext(ctx, "tcp", addr)
	} else {
		raw, err = d.Dial("tcp", addr)
	}
	if err != nil {
		if ctx.Err() != nil && !isTimeout(err) {
			return nil, &IOError{Op: "connect", Err: ctx.Err()}
		}
		return nil, classifyDial(addr, err)
	}

	_ = raw.SetDeadline(deadline)
	if proxy != nil && at.url.Scheme == "https" {
		if err := c.tunnel(ctx, raw, proxy, at.url); err != nil {
			_ = raw.Close()
			return nil, err
		}
	}
	nc := raw
	if at.url.Scheme == "https" {
		hctx := context.Background()
		if m == async {
			hctx = ctx
		}
		nc, err = c.opts.TLS.Handshake(hctx, raw, at.url.Host)
		if err != nil {
			_ = raw.Close()
			if ctx.Err() != nil && m == async {
				return nil, &IOError{Op: "handshake", Err: ctx.Err()}
			}
			return nil, classifyTLS(at.url.Host, err)
		}
	}
	_ = nc.SetDeadline(time.Time{})
	id := c.nextID.Add(1)
	return newConn(id, key, nc, c.opts.IdleTimeout), nil
}

func (c *Client) startSpan(ctx context.Context, at *attempt) (context.Context, trace.Span) {
	if c.opts.Tracer == nil {
		return ctx, nil
	}
	return c.opts.Tracer.Start(ctx, "HTTP "+at.method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", at.method),
			attribute.String("url.full", redacted(at.url)),
			attribute.String("server.address", at.url.Host),
			attribute.Int("server.port", at.url.Port),
		))
}

func (c *Client) endSpan(span trace.Span, res *Response, err error) {
	if span == nil {
		return
	}
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", res.StatusCode),
		attribute.Int("http.response.body.size", len(res.Body)),
		attribute.Bool("httpx.conn.reused", res.Reused),
	)
	if res.StatusCode >= 500 {
		span.SetStatus(codes.Error, res.Status())
	}
}

func (c *Client) record(method string, start time.Time, res *Response, err error) {
	status := "error"
	if err == nil {
		status = strconv.Itoa(res.StatusCode)
		c.opts.Meter.Counter("httpx_client_responses_total", 1, obs.L("status", status))
	} else {
		c.opts.Meter.Counter("httpx_client_requests_error", 1, obs.L("stage", stage(err)))
	}
	obs.ObserveSince(c.opts.Meter, "httpx_client_roundtrip_duration_ms", start, obs.L("method", method), obs.L("status", status))
}

func stage(err error) string {
	var (
		ce  *ConnectError
		te  *TLSError
		pe  *ProtocolError
		ioe *IOError
		ue  *URLError
	)
	switch {
	case errors.As(err, &ue), errors.Is(err, ErrInvalidRequest):
		return "request"
	case errors.As(err, &ce):
		return "dial"
	case errors.As(err, &te):
		return "tls"
	case errors.As(err, &pe), errors.Is(err, ErrResponseTooLarge):
		return "read_response"
	case errors.As(err, &ioe):
		return ioe.Op
	default:
		return "redirect"
	}
}

// redacted renders u without userinfo.
func redacted(u *URL) string {
	cp := *u
	cp.User = nil
	return cp.String()
}
