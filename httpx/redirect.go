package httpx

import (
	"context"
	"fmt"

	"dqx0.com/go/rpcwire/internal/obs"
)

func isRedirect(code int) bool {
	switch code {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

// follow runs at and, when hops > 0, follows up to hops redirects. 303 and
// (for methods other than GET and HEAD) 301/302 continue as a bodiless GET;
// 307/308 repeat the method and body.
func (c *Client) follow(ctx context.Context, at *attempt, hops int, m mode) (*Response, error) {
	for n := 0; ; n++ {
		res, err := c.exchange(ctx, at, m)
		if err != nil {
			return nil, err
		}
		if hops <= 0 || !isRedirect(res.StatusCode) {
			return res, nil
		}
		if n >= hops {
			return nil, fmt.Errorf("%w: stopped after %d hops at %s", ErrTooManyRedirects, hops, redacted(at.url))
		}
		loc := res.Header.Get("Location")
		if loc == "" {
			return nil, fmt.Errorf("%w: %d from %s", ErrMissingLocation, res.StatusCode, redacted(at.url))
		}
		next, err := at.url.Resolve(loc)
		if err != nil {
			return nil, err
		}
		if err := at.redirect(res.StatusCode, next); err != nil {
			return nil, err
		}
		c.opts.Logger.Logf(obs.Debug, "redirect %d to %s", res.StatusCode, redacted(next))
	}
}

// redirect rewrites at for the next hop.
func (at *attempt) redirect(code int, next *URL) error {
	toGet := code == 303 && at.method != "HEAD" ||
		(code == 301 || code == 302) && at.method != "GET" && at.method != "HEAD"
	if toGet {
		at.method = "GET"
		at.body = nil
		at.stream = bodyStream{}
		at.header.Del("Content-Type")
	} else if at.stream.r != nil {
		return ErrBodyNotReplayable
	}
	if next.Host != at.url.Host || next.Port != at.url.Port || next.Scheme != at.url.Scheme {
		at.header.Del("Authorization")
	}
	at.url = next
	return nil
}
