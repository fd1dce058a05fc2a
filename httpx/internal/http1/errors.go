package http1

import (
	"errors"
	"fmt"
)

// Kind classifies a ProtocolError.
type Kind int

const (
	MalformedStatusLine Kind = iota + 1
	MalformedHeader
	MalformedChunk
	UnexpectedEOF
	HeaderTooLarge
)

func (k Kind) String() string {
	switch k {
	case MalformedStatusLine:
		return "malformed status line"
	case MalformedHeader:
		return "malformed header"
	case MalformedChunk:
		return "malformed chunk"
	case UnexpectedEOF:
		return "unexpected EOF"
	case HeaderTooLarge:
		return "header too large"
	default:
		return "protocol error"
	}
}

// ProtocolError reports a peer that violated HTTP/1.x framing.
type ProtocolError struct {
	Kind   Kind
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return "httpx: " + e.Kind.String()
	}
	return "httpx: " + e.Kind.String() + ": " + e.Detail
}

// Is matches any ProtocolError of the same Kind, so the package-level
// sentinels below work with errors.Is.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMalformedStatusLine = &ProtocolError{Kind: MalformedStatusLine}
	ErrMalformedHeader     = &ProtocolError{Kind: MalformedHeader}
	ErrMalformedChunk      = &ProtocolError{Kind: MalformedChunk}
	ErrUnexpectedEOF       = &ProtocolError{Kind: UnexpectedEOF}
	ErrHeaderTooLarge      = &ProtocolError{Kind: HeaderTooLarge}

	// ErrResponseTooLarge is returned as soon as a body would exceed its cap.
	ErrResponseTooLarge = errors.New("httpx: response too large")
	// ErrInvalidField rejects an outgoing header name, value or method.
	ErrInvalidField = errors.New("httpx: invalid header field")

	errLineTooLong = errors.New("http1: line too long")
)

func protoErr(k Kind, format string, args ...interface{}) error {
	return &ProtocolError{Kind: k, Detail: fmt.Sprintf(format, args...)}
}
