package httpx

import (
	"context"
	"fmt"

	"dqx0.com/go/rpcwire/internal/obs"
)

// Call is an asynchronous exchange started by Client.Go.
type Call struct {
	Request  *Request
	Response *Response
	Error    error
	// Done receives the Call when it completes.
	Done chan *Call
}

// Go performs req asynchronously and delivers the finished Call on done. A
// nil done allocates a buffered channel; a non-nil done must be buffered.
// At most Options.MaxInFlight calls run at once; the rest wait for a slot.
// Unlike Do, cancelling ctx interrupts connect, handshake and any blocked
// read or write.
func (c *Client) Go(ctx context.Context, req *Request, done chan *Call) *Call {
	if done == nil {
		done = make(chan *Call, 1)
	} else if cap(done) == 0 {
		panic("httpx: done channel is unbuffered")
	}
	call := &Call{Request: req, Done: done}
	go func() {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			call.Error = fmt.Errorf("httpx: waiting for in-flight slot: %w", err)
			call.done(c.opts.Logger)
			return
		}
		defer c.sem.Release(1)
		call.Response, call.Error = c.send(ctx, req, async)
		call.done(c.opts.Logger)
	}()
	return call
}

func (call *Call) done(lg obs.Logger) {
	select {
	case call.Done <- call:
	default:
		lg.Logf(obs.Warn, "discarding Call reply due to insufficient Done chan capacity")
	}
}

// Wait blocks until the call completes and returns its result. Use it only
// when Done is not shared with other calls.
func (call *Call) Wait() (*Response, error) {
	<-call.Done
	return call.Response, call.Error
}
