package wiretest

import (
	"bufio"
	"time"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
)

// Writer composes the reply to one request.
type Writer struct {
	bw    *bufio.Writer
	stop  chan struct{}
	close bool
}

// Reply writes a Content-Length framed response. The connection stays open
// unless Close was called.
func (w *Writer) Reply(status int, body string, fields ...http1.Field) {
	_ = http1.WriteResponse(w.bw, status, "", fields, []byte(body), !w.close)
}

// Chunked writes a chunked response made of the given chunks.
func (w *Writer) Chunked(status int, chunks []string, fields ...http1.Field) {
	_ = http1.StartResponse(w.bw, status, "", fields, !w.close)
	for _, c := range chunks {
		_, _ = http1.WriteChunked(w.bw, []byte(c))
	}
	_ = http1.EndChunked(w.bw)
}

// Interim writes a 1xx response ahead of the final one.
func (w *Writer) Interim(status int, fields ...http1.Field) {
	_ = http1.WriteInterim(w.bw, status, fields)
}

// Raw writes bytes verbatim.
func (w *Writer) Raw(s string) {
	_, _ = w.bw.WriteString(s)
}

// Flush pushes buffered bytes to the peer now.
func (w *Writer) Flush() {
	_ = w.bw.Flush()
}

// Close makes the server close the connection after this reply; replies
// written afterwards carry "Connection: close".
func (w *Writer) Close() {
	w.close = true
}

// Stall blocks until the server shuts down or d elapses.
func (w *Writer) Stall(d time.Duration) {
	select {
	case <-w.stop:
	case <-time.After(d):
	}
}
