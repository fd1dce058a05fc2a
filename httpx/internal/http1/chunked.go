package http1

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// readChunked decodes a complete chunked body of at most max bytes. Trailers
// are read through hr and share the header budget.
func readChunked(hr *headerReader, max int64) ([]byte, []Field, error) {
	var body []byte
	for {
		size, err := readChunkSize(hr.br)
		if err != nil {
			return nil, nil, err
		}
		if size == 0 {
			trailer, err := hr.readFields()
			if err != nil {
				return nil, nil, err
			}
			return body, trailer, nil
		}
		if size > max-int64(len(body)) {
			return nil, nil, ErrResponseTooLarge
		}
		if body, err = appendN(body, hr.br, size, max); err != nil {
			return nil, nil, err
		}
		if err := expectCRLF(hr.br); err != nil {
			return nil, nil, err
		}
	}
}

// readChunkSize parses "<hex>[;ext]" on a line of at most 1 KiB.
func readChunkSize(br *bufio.Reader) (int64, error) {
	line, _, err := readLine(br, maxChunkLineBytes)
	if err != nil {
		if errors.Is(err, errLineTooLong) {
			return 0, protoErr(MalformedChunk, "chunk size line exceeds %d bytes", maxChunkLineBytes)
		}
		return 0, eofAsProtocol(err, "in chunk size")
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || len(line) > maxChunkSizeDigits {
		return 0, protoErr(MalformedChunk, "bad chunk size %q", truncate(line))
	}
	n, err := strconv.ParseUint(line, 16, 64)
	if err != nil {
		return 0, protoErr(MalformedChunk, "bad chunk size %q", truncate(line))
	}
	return int64(n), nil
}

func expectCRLF(br *bufio.Reader) error {
	var b [2]byte
	if _, err := io.ReadFull(br, b[:]); err != nil {
		return eofAsProtocol(err, "after chunk data")
	}
	if b[0] != '\r' || b[1] != '\n' {
		return protoErr(MalformedChunk, "missing CRLF after chunk data")
	}
	return nil
}

// chunkedBody streams a chunked request body for the server-side reader.
type chunkedBody struct {
	hr       *headerReader
	remain   int64
	finished bool
	trailer  []Field
}

func (c *chunkedBody) Read(p []byte) (int, error) {
	if c.finished {
		return 0, io.EOF
	}
	if c.remain == 0 {
		size, err := readChunkSize(c.hr.br)
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if c.trailer, err = c.hr.readFields(); err != nil {
				return 0, err
			}
			c.finished = true
			return 0, io.EOF
		}
		c.remain = size
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > c.remain {
		p = p[:c.remain]
	}
	n, err := io.ReadFull(c.hr.br, p)
	c.remain -= int64(n)
	if err != nil {
		return n, eofAsProtocol(err, "in chunk data")
	}
	if c.remain == 0 {
		if err := expectCRLF(c.hr.br); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Close drains the body so the connection can carry the next message.
func (c *chunkedBody) Close() error {
	_, err := io.Copy(io.Discard, c)
	return err
}
