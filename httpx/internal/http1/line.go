package http1

import (
	"bufio"
	"errors"
	"io"
)

// readLine reads one LF-terminated line of at most limit bytes (excluding
// the LF). A trailing CR is stripped. The returned count is the number of
// bytes consumed from br, terminator included. An EOF after some bytes of the
// line is reported as io.ErrUnexpectedEOF; other read errors pass through.
func readLine(br *bufio.Reader, limit int) (string, int, error) {
	buf := make([]byte, 0, 64)
	n := 0
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && n > 0 {
				return "", n, io.ErrUnexpectedEOF
			}
			return "", n, err
		}
		n++
		if b == '\n' {
			break
		}
		if limit > 0 && len(buf) >= limit {
			return "", n, errLineTooLong
		}
		buf = append(buf, b)
	}
	if l := len(buf); l > 0 && buf[l-1] == '\r' {
		buf = buf[:l-1]
	}
	return string(buf), n, nil
}

// eofAsProtocol converts end-of-stream conditions into
// ProtocolError{UnexpectedEOF}; anything else is returned unchanged.
func eofAsProtocol(err error, where string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return protoErr(UnexpectedEOF, "%s", where)
	}
	return err
}
