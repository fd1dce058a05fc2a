package http1

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// RequestHead is everything needed to frame an outgoing request.
type RequestHead struct {
	Method string
	// Target is origin-form ("/path?q") or, through a proxy, absolute-form.
	Target string
	Host   string
	Header []Field
	// ContentLength is the body size, or -1 for a chunked body.
	ContentLength int64
}

// managed headers are derived from the request and never copied from the
// caller's list.
func managed(name string) bool {
	return strings.EqualFold(name, "Host") ||
		strings.EqualFold(name, "Content-Length") ||
		strings.EqualFold(name, "Transfer-Encoding")
}

// WriteRequestHead writes the request line and header block. Invalid fields
// are rejected before any byte is buffered.
func WriteRequestHead(bw *bufio.Writer, h RequestHead) error {
	if !ValidMethod(h.Method) {
		return fieldErr("method", h.Method)
	}
	if h.Target == "" || strings.ContainsAny(h.Target, " \r\n\t") {
		return fieldErr("target", h.Target)
	}
	if !ValidField(Field{Name: "Host", Value: h.Host}) {
		return fieldErr("Host", h.Host)
	}
	for _, f := range h.Header {
		if !ValidField(f) {
			return fieldErr(f.Name, f.Value)
		}
	}

	bw.WriteString(h.Method)
	bw.WriteByte(' ')
	bw.WriteString(h.Target)
	bw.WriteString(" HTTP/1.1\r\n")
	writeField(bw, "Host", h.Host)
	hasConn := false
	for _, f := range h.Header {
		if managed(f.Name) {
			continue
		}
		if strings.EqualFold(f.Name, "Connection") {
			hasConn = true
		}
		writeField(bw, f.Name, f.Value)
	}
	if !hasConn {
		writeField(bw, "Connection", "keep-alive")
	}
	switch {
	case h.ContentLength < 0:
		writeField(bw, "Transfer-Encoding", "chunked")
	case h.ContentLength > 0 || bodyExpected(h.Method):
		writeField(bw, "Content-Length", strconv.FormatInt(h.ContentLength, 10))
	}
	_, err := bw.WriteString("\r\n")
	return err
}

func bodyExpected(method string) bool {
	return method == "POST" || method == "PUT" || method == "PATCH"
}

func writeField(bw *bufio.Writer, name, value string) {
	bw.WriteString(name)
	bw.WriteString(": ")
	bw.WriteString(value)
	bw.WriteString("\r\n")
}

func fieldErr(name, value string) error {
	return &fieldError{name: name, value: value}
}

type fieldError struct{ name, value string }

func (e *fieldError) Error() string {
	return ErrInvalidField.Error() + ": " + e.name + ": " + strconv.Quote(truncate(e.value))
}

func (e *fieldError) Unwrap() error { return ErrInvalidField }

// CopyChunked streams r as chunks of at most 32 KiB followed by the
// terminating zero-length chunk.
func CopyChunked(bw *bufio.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, readStep)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := WriteChunked(bw, buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, EndChunked(bw)
		}
		if err != nil {
			return total, err
		}
	}
}

// WriteChunked writes one chunk.
func WriteChunked(bw *bufio.Writer, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	bw.WriteString(strconv.FormatInt(int64(len(p)), 16))
	bw.WriteString("\r\n")
	bw.Write(p)
	if _, err := bw.WriteString("\r\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// EndChunked writes the terminating zero-length chunk and an empty trailer.
func EndChunked(bw *bufio.Writer) error {
	_, err := bw.WriteString("0\r\n\r\n")
	return err
}

// WriteResponse writes a complete HTTP/1.1 response with a Content-Length
// body. Used by test peers.
func WriteResponse(bw *bufio.Writer, status int, reason string, hdr []Field, body []byte, keepAlive bool) error {
	hdr = append(hdr[:len(hdr):len(hdr)], Field{Name: "Content-Length", Value: strconv.Itoa(len(body))})
	if err := startResponse(bw, status, reason, hdr, keepAlive); err != nil {
		return err
	}
	_, err := bw.Write(body)
	return err
}

// StartResponse writes the status line and headers of a chunked response.
// The caller follows with WriteChunked and EndChunked.
func StartResponse(bw *bufio.Writer, status int, reason string, hdr []Field, keepAlive bool) error {
	hdr = append(hdr[:len(hdr):len(hdr)], Field{Name: "Transfer-Encoding", Value: "chunked"})
	return startResponse(bw, status, reason, hdr, keepAlive)
}

func startResponse(bw *bufio.Writer, status int, reason string, hdr []Field, keepAlive bool) error {
	if reason == "" {
		reason = defaultReason(status)
	}
	bw.WriteString("HTTP/1.1 ")
	bw.WriteString(strconv.Itoa(status))
	bw.WriteByte(' ')
	bw.WriteString(reason)
	bw.WriteString("\r\n")
	for _, f := range hdr {
		if !ValidField(f) {
			return fieldErr(f.Name, f.Value)
		}
		if strings.EqualFold(f.Name, "Connection") {
			continue
		}
		writeField(bw, f.Name, f.Value)
	}
	if keepAlive {
		writeField(bw, "Connection", "keep-alive")
	} else {
		writeField(bw, "Connection", "close")
	}
	_, err := bw.WriteString("\r\n")
	return err
}

func defaultReason(code int) string {
	switch code {
	case 100:
		return "Continue"
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 303:
		return "See Other"
	case 304:
		return "Not Modified"
	case 307:
		return "Temporary Redirect"
	case 308:
		return "Permanent Redirect"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 407:
		return "Proxy Authentication Required"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "Status"
	}
}
