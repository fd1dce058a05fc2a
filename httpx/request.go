package httpx

import (
	"io"
	"time"
)

// Request describes one exchange. The engine never mutates it; zero fields
// inherit the Client's Options.
type Request struct {
	Method string
	URL    string
	Header Header
	// Body is sent with Content-Length framing.
	Body []byte
	// BodyStream is sent chunked; it cannot be combined with Body and is
	// not replayed on redirect.
	BodyStream io.Reader

	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxResponseSize int64
	// FollowRedirects is the number of redirect hops to follow; 0 returns
	// 3xx responses as they are.
	FollowRedirects int
}

// NewRequest is shorthand for a Request with a known-length body.
func NewRequest(method, url string, body []byte) *Request {
	return &Request{Method: method, URL: url, Body: body}
}

// WithHeader appends a field and returns r for chaining.
func (r *Request) WithHeader(name, value string) *Request {
	r.Header.Add(name, value)
	return r
}

// settings are the effective per-request limits after merging Options.
type settings struct {
	connect, read, write time.Duration
	maxBody              int64
}

func (r *Request) settings(o *Options) settings {
	s := settings{connect: o.ConnectTimeout, read: o.ReadTimeout, write: o.WriteTimeout, maxBody: o.MaxResponseSize}
	if r.ConnectTimeout > 0 {
		s.connect = r.ConnectTimeout
	}
	if r.ReadTimeout > 0 {
		s.read = r.ReadTimeout
	}
	if r.WriteTimeout > 0 {
		s.write = r.WriteTimeout
	}
	if r.MaxResponseSize > 0 {
		s.maxBody = r.MaxResponseSize
	}
	return s
}
