// Package wiretest runs a scripted HTTP/1.1 peer on loopback. Handlers can
// answer with well-formed responses or with arbitrary bytes, which makes it
// suitable for exercising a client against malformed and hostile servers.
package wiretest

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
)

// Request is a request received by the peer, body included.
type Request struct {
	Method string
	Target string
	Proto  string
	Header []http1.Field
	Body   []byte
	// Conn is the 1-based index of the accepted connection it arrived on.
	Conn int
}

// Get returns the first value of a header field.
func (r *Request) Get(name string) string { return http1.Get(r.Header, name) }

// HandlerFunc answers one request.
type HandlerFunc func(w *Writer, r *Request)

// Server is a loopback peer. All methods are safe for concurrent use.
type Server struct {
	// Addr is host:port of the listener.
	Addr string
	// URL is "http://" + Addr.
	URL string

	handler HandlerFunc
	ln      net.Listener
	stop    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	accepted int
	conns    map[net.Conn]struct{}
	reqs     []*Request
}

// Start listens on 127.0.0.1 and serves h until the test ends.
func Start(t testing.TB, h HandlerFunc) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("wiretest: listen: %v", err)
	}
	s := &Server{
		Addr:    ln.Addr().String(),
		URL:     "http://" + ln.Addr().String(),
		handler: h,
		ln:      ln,
		stop:    make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = c.Close()
			return
		}
		s.accepted++
		idx := s.accepted
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.serveConn(c, idx)
	}
}

func (s *Server) serveConn(c net.Conn, idx int) {
	defer s.wg.Done()
	defer func() {
		_ = c.Close()
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	for {
		pr, err := http1.ReadRequest(br, http1.Limits{})
		if err != nil {
			return
		}
		body, err := io.ReadAll(pr.Body)
		if err != nil {
			return
		}
		r := &Request{Method: pr.Method, Target: pr.Target, Proto: pr.Proto, Header: pr.Header, Body: body, Conn: idx}
		s.mu.Lock()
		s.reqs = append(s.reqs, r)
		s.mu.Unlock()

		w := &Writer{bw: bw, stop: s.stop}
		if strings.EqualFold(r.Get("Connection"), "close") {
			w.close = true
		}
		s.handler(w, r)
		if err := bw.Flush(); err != nil || w.close {
			return
		}
	}
}

// Accepted returns the number of connections accepted so far.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Requests returns the requests received so far.
func (s *Server) Requests() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Request(nil), s.reqs...)
}

// Close stops the listener, closes every connection and waits for handlers
// to return. Stalled handlers are released.
func (s *Server) Close() {
	select {
	case <-s.stop:
		return
	default:
	}
	close(s.stop)
	_ = s.ln.Close()
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
