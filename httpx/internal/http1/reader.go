package http1

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Request is a request read from the wire by a server-side peer.
type Request struct {
	Method string
	Target string
	Proto  string
	Header []Field
	// ContentLength is -1 for a chunked body.
	ContentLength int64
	Body          io.ReadCloser
}

// ReadRequest reads one request head and returns a body reader that must be
// closed (drained) before the next request is read from br.
func ReadRequest(br *bufio.Reader, lim Limits) (*Request, error) {
	lim = lim.withDefaults()
	line, _, err := readLine(br, lim.MaxLineBytes)
	if err != nil {
		if errors.Is(err, errLineTooLong) {
			return nil, protoErr(HeaderTooLarge, "request line exceeds %d bytes", lim.MaxLineBytes)
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, eofAsProtocol(err, "in request line")
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || !ValidMethod(parts[0]) || parts[1] == "" {
		return nil, protoErr(MalformedStatusLine, "bad request line %q", truncate(line))
	}
	if _, _, ok := parseVersion(parts[2]); !ok {
		return nil, protoErr(MalformedStatusLine, "bad version %q", truncate(parts[2]))
	}
	hr := &headerReader{br: br, lim: lim}
	hdr, err := hr.readFields()
	if err != nil {
		return nil, err
	}
	req := &Request{Method: parts[0], Target: parts[1], Proto: parts[2], Header: hdr}

	cls := Values(hdr, "Content-Length")
	if coding, ok := lastCoding(hdr); ok {
		if len(cls) > 0 {
			return nil, protoErr(MalformedHeader, "both Transfer-Encoding and Content-Length")
		}
		if coding != "chunked" {
			return nil, protoErr(MalformedHeader, "unsupported transfer coding %q", coding)
		}
		req.ContentLength = -1
		req.Body = &chunkedBody{hr: hr}
		return req, nil
	}
	if len(cls) > 0 {
		n, err := parseContentLength(cls)
		if err != nil {
			return nil, err
		}
		req.ContentLength = n
		req.Body = &limitedBody{lr: io.LimitedReader{R: br, N: n}}
		return req, nil
	}
	req.Body = noBody{}
	return req, nil
}

type limitedBody struct {
	lr io.LimitedReader
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.lr.Read(p)
	if errors.Is(err, io.EOF) && b.lr.N > 0 {
		err = protoErr(UnexpectedEOF, "in body")
	}
	return n, err
}

// Close drains unread bytes so the connection can be reused.
func (b *limitedBody) Close() error {
	_, err := io.Copy(io.Discard, b)
	return err
}

type noBody struct{}

func (noBody) Read([]byte) (int, error) { return 0, io.EOF }
func (noBody) Close() error             { return nil }
