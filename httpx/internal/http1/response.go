package http1

import (
	"bufio"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Response is a fully read response. Body never exceeds
// Limits.MaxBodyBytes.
type Response struct {
	Proto      string
	Major      int
	Minor      int
	StatusCode int
	Reason     string
	Header     []Field
	Trailer    []Field
	Body       []byte
	// KeepAlive is true when the message was framed (not close-delimited),
	// fully consumed, and the peer allows another request on the connection.
	KeepAlive bool
}

type framing int

const (
	frameNone framing = iota
	frameLength
	frameChunked
	frameClose
)

// MaxInterim bounds the 1xx responses skipped ahead of a final response.
const MaxInterim = 5

// ReadResponse reads the response to a request made with method. Up to
// MaxInterim interim 1xx responses other than 101 are skipped. On error the
// connection must not be reused: an unknown amount of the message may
// remain unread.
func ReadResponse(br *bufio.Reader, method string, lim Limits) (*Response, error) {
	lim = lim.withDefaults()
	res, hr, err := readFinalHead(br, lim)
	if err != nil {
		return nil, err
	}
	if err := readResponseBody(res, hr, method, lim.MaxBodyBytes); err != nil {
		return nil, err
	}
	return res, nil
}

// ReadResponseHead reads the final status line and header block and leaves
// the body unread. KeepAlive is never set.
func ReadResponseHead(br *bufio.Reader, lim Limits) (*Response, error) {
	res, _, err := readFinalHead(br, lim.withDefaults())
	return res, err
}

func readFinalHead(br *bufio.Reader, lim Limits) (*Response, *headerReader, error) {
	for n := 0; ; n++ {
		res, hr, err := readResponseHead(br, lim)
		if err != nil {
			return nil, nil, err
		}
		if res.StatusCode < 100 || res.StatusCode >= 200 || res.StatusCode == 101 {
			return res, hr, nil
		}
		if n >= MaxInterim {
			return nil, nil, protoErr(MalformedStatusLine, "more than %d interim responses", MaxInterim)
		}
	}
}

// readResponseHead reads the status line and the header block. The returned
// headerReader carries the remaining budget for trailers.
func readResponseHead(br *bufio.Reader, lim Limits) (*Response, *headerReader, error) {
	line, _, err := readLine(br, lim.MaxLineBytes)
	if err != nil {
		if errors.Is(err, errLineTooLong) {
			return nil, nil, protoErr(MalformedStatusLine, "status line exceeds %d bytes", lim.MaxLineBytes)
		}
		return nil, nil, eofAsProtocol(err, "before status line")
	}
	res, err := parseStatusLine(line)
	if err != nil {
		return nil, nil, err
	}
	hr := &headerReader{br: br, lim: lim}
	if res.Header, err = hr.readFields(); err != nil {
		return nil, nil, err
	}
	return res, hr, nil
}

func parseStatusLine(line string) (*Response, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, protoErr(MalformedStatusLine, "%q", truncate(line))
	}
	major, minor, ok := parseVersion(proto)
	if !ok || major != 1 {
		return nil, protoErr(MalformedStatusLine, "unsupported version %q", truncate(proto))
	}
	code, reason, _ := strings.Cut(rest, " ")
	if len(code) != 3 || !allDigits(code) || code[0] == '0' {
		return nil, protoErr(MalformedStatusLine, "bad status code %q", truncate(code))
	}
	n, _ := strconv.Atoi(code)
	return &Response{Proto: proto, Major: major, Minor: minor, StatusCode: n, Reason: reason}, nil
}

func parseVersion(p string) (major, minor int, ok bool) {
	if len(p) != len("HTTP/1.1") || !strings.HasPrefix(p, "HTTP/") || p[6] != '.' {
		return 0, 0, false
	}
	if !isDigit(p[5]) || !isDigit(p[7]) {
		return 0, 0, false
	}
	return int(p[5] - '0'), int(p[7] - '0'), true
}

func readResponseBody(res *Response, hr *headerReader, method string, max int64) error {
	fr, length, err := responseFraming(res, method)
	if err != nil {
		return err
	}
	switch fr {
	case frameLength:
		if length > max {
			return ErrResponseTooLarge
		}
		res.Body, err = readFull(hr.br, length)
	case frameChunked:
		res.Body, res.Trailer, err = readChunked(hr, max)
	case frameClose:
		res.Body, err = readUntilEOF(hr.br, max)
	}
	if err != nil {
		return err
	}
	res.KeepAlive = fr != frameClose && persistent(res)
	return nil
}

// responseFraming determines how the body is delimited (RFC 9112 §6.3).
func responseFraming(res *Response, method string) (framing, int64, error) {
	if method == "HEAD" || res.StatusCode < 200 || res.StatusCode == 204 || res.StatusCode == 304 {
		return frameNone, 0, nil
	}
	if method == "CONNECT" && res.StatusCode < 300 {
		return frameNone, 0, nil
	}
	cls := Values(res.Header, "Content-Length")
	if coding, ok := lastCoding(res.Header); ok {
		if len(cls) > 0 {
			return 0, 0, protoErr(MalformedHeader, "both Transfer-Encoding and Content-Length")
		}
		if coding == "chunked" {
			return frameChunked, 0, nil
		}
		return frameClose, 0, nil
	}
	if len(cls) > 0 {
		n, err := parseContentLength(cls)
		if err != nil {
			return 0, 0, err
		}
		if n == 0 {
			return frameNone, 0, nil
		}
		return frameLength, n, nil
	}
	return frameClose, 0, nil
}

// parseContentLength accepts repeated or list-valued Content-Length only
// when every value is identical.
func parseContentLength(values []string) (int64, error) {
	var n int64 = -1
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || len(part) > 18 || !allDigits(part) {
				return 0, protoErr(MalformedHeader, "bad Content-Length %q", truncate(part))
			}
			m, _ := strconv.ParseInt(part, 10, 64)
			if n >= 0 && m != n {
				return 0, protoErr(MalformedHeader, "conflicting Content-Length values")
			}
			n = m
		}
	}
	return n, nil
}

// persistent reports whether the peer permits reuse of the connection.
func persistent(res *Response) bool {
	if hasToken(res.Header, "Connection", "close") {
		return false
	}
	if res.Major == 1 && res.Minor == 0 {
		return hasToken(res.Header, "Connection", "keep-alive")
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func truncate(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}

// KeepAliveHint parses "Keep-Alive: timeout=N, max=M". Absent or malformed
// parameters are reported as zero.
func KeepAliveHint(fields []Field) (timeout time.Duration, max int) {
	for _, v := range Values(fields, "Keep-Alive") {
		for _, p := range strings.Split(v, ",") {
			k, val, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok {
				continue
			}
			n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(val), `"`))
			if err != nil || n < 0 {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(k)) {
			case "timeout":
				timeout = time.Duration(n) * time.Second
			case "max":
				max = n
			}
		}
	}
	return timeout, max
}
