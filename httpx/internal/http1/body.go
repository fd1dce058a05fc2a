package http1

import (
	"errors"
	"io"
)

// readStep is the largest amount of body read or allocated in one step.
const readStep = 32 << 10

// grow returns b with room for extra more bytes. Capacity never exceeds
// ceiling; callers guarantee len(b)+extra <= ceiling.
func grow(b []byte, extra int, ceiling int64) []byte {
	need := len(b) + extra
	if need <= cap(b) {
		return b
	}
	nc := 2 * cap(b)
	if nc < need {
		nc = need
	}
	if nc < 512 {
		nc = 512
	}
	if int64(nc) > ceiling {
		nc = int(ceiling)
	}
	nb := make([]byte, len(b), nc)
	copy(nb, b)
	return nb
}

// readFull reads exactly n bytes.
func readFull(r io.Reader, n int64) ([]byte, error) {
	return appendN(nil, r, n, n)
}

// appendN appends exactly n bytes from r to b without letting the buffer
// grow past ceiling.
func appendN(b []byte, r io.Reader, n int64, ceiling int64) ([]byte, error) {
	for n > 0 {
		step := readStep
		if n < int64(step) {
			step = int(n)
		}
		b = grow(b, step, ceiling)
		start := len(b)
		b = b[:start+step]
		m, err := io.ReadFull(r, b[start:])
		b = b[:start+m]
		n -= int64(m)
		if err != nil {
			return b, eofAsProtocol(err, "in body")
		}
	}
	return b, nil
}

// readUntilEOF reads a close-delimited body of at most max bytes.
func readUntilEOF(r io.Reader, max int64) ([]byte, error) {
	var b []byte
	var probe [1]byte
	for {
		room := max - int64(len(b))
		if room <= 0 {
			n, err := r.Read(probe[:])
			if n > 0 {
				return nil, ErrResponseTooLarge
			}
			if errors.Is(err, io.EOF) {
				return b, nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}
		step := readStep
		if room < int64(step) {
			step = int(room)
		}
		b = grow(b, step, max)
		start := len(b)
		n, err := r.Read(b[start : start+step])
		b = b[:start+n]
		if errors.Is(err, io.EOF) {
			return b, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
