package httpx

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
)

// URL parse failures, wrapped in *URLError.
var (
	ErrInvalidScheme            = errors.New("httpx: invalid or unsupported scheme")
	ErrEmptyHost                = errors.New("httpx: empty host")
	ErrInvalidPort              = errors.New("httpx: invalid port")
	ErrMalformedPercentEncoding = errors.New("httpx: malformed percent-encoding")
	ErrNonASCIIHost             = errors.New("httpx: non-ASCII host")
	ErrInvalidHost              = errors.New("httpx: invalid host")
	ErrInvalidCharacter         = errors.New("httpx: invalid character in URL")
)

var (
	// ErrTimeout matches every deadline expiry, including connect timeouts.
	ErrTimeout = errors.New("httpx: timeout")
	// ErrResponseTooLarge is returned once a body would exceed MaxResponseSize.
	ErrResponseTooLarge = http1.ErrResponseTooLarge
	// ErrInvalidRequest rejects a request before any I/O: unknown method,
	// invalid header field, or both Body and BodyStream set.
	ErrInvalidRequest    = errors.New("httpx: invalid request")
	ErrMissingLocation   = errors.New("httpx: redirect without Location")
	ErrTooManyRedirects  = errors.New("httpx: too many redirects")
	ErrBodyNotReplayable = errors.New("httpx: streamed body cannot be replayed on redirect")
	ErrClientClosed      = errors.New("httpx: client closed")
)

// URLError reports a URL that could not be parsed.
type URLError struct {
	Input string
	Err   error
}

func (e *URLError) Error() string { return fmt.Sprintf("httpx: parse %q: %v", e.Input, e.Err) }
func (e *URLError) Unwrap() error { return e.Err }

// ConnectKind classifies a ConnectError.
type ConnectKind int

const (
	ConnectTimeout ConnectKind = iota + 1
	ConnectRefused
	ConnectResolutionFailed
	ConnectUnreachable
)

func (k ConnectKind) String() string {
	switch k {
	case ConnectTimeout:
		return "timeout"
	case ConnectRefused:
		return "connection refused"
	case ConnectResolutionFailed:
		return "name resolution failed"
	default:
		return "unreachable"
	}
}

// ConnectError reports a failure to establish the TCP connection.
type ConnectError struct {
	Kind ConnectKind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("httpx: connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool {
	return target == ErrTimeout && e.Kind == ConnectTimeout
}

func classifyDial(addr string, err error) error {
	kind := ConnectUnreachable
	var dnsErr *net.DNSError
	switch {
	case isTimeout(err):
		kind = ConnectTimeout
	case errors.As(err, &dnsErr):
		kind = ConnectResolutionFailed
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = ConnectRefused
	}
	return &ConnectError{Kind: kind, Addr: addr, Err: err}
}

// TLSKind classifies a TLSError.
type TLSKind int

const (
	TLSHandshake TLSKind = iota + 1
	TLSCertificateInvalid
)

func (k TLSKind) String() string {
	if k == TLSCertificateInvalid {
		return "certificate invalid"
	}
	return "handshake failed"
}

// TLSError reports a failed TLS handshake or an untrusted peer certificate.
type TLSError struct {
	Kind TLSKind
	Host string
	Err  error
}

func (e *TLSError) Error() string {
	return fmt.Sprintf("httpx: tls %s: %s: %v", e.Host, e.Kind, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

func classifyTLS(host string, err error) error {
	if isTimeout(err) {
		return &IOError{Op: "handshake", Err: err}
	}
	var (
		unknown  x509.UnknownAuthorityError
		hostname x509.HostnameError
		invalid  x509.CertificateInvalidError
		verify   *tls.CertificateVerificationError
	)
	kind := TLSHandshake
	if errors.As(err, &unknown) || errors.As(err, &hostname) || errors.As(err, &invalid) || errors.As(err, &verify) {
		kind = TLSCertificateInvalid
	}
	return &TLSError{Kind: kind, Host: host, Err: err}
}

// ProtocolError reports a response that violated HTTP/1.x framing.
type ProtocolError = http1.ProtocolError

// ProtocolKind classifies a ProtocolError.
type ProtocolKind = http1.Kind

const (
	MalformedStatusLine = http1.MalformedStatusLine
	MalformedHeader     = http1.MalformedHeader
	MalformedChunk      = http1.MalformedChunk
	UnexpectedEOF       = http1.UnexpectedEOF
	HeaderTooLarge      = http1.HeaderTooLarge
)

// Sentinels for errors.Is on protocol failures.
var (
	ErrMalformedStatusLine = http1.ErrMalformedStatusLine
	ErrMalformedHeader     = http1.ErrMalformedHeader
	ErrMalformedChunk      = http1.ErrMalformedChunk
	ErrUnexpectedEOF       = http1.ErrUnexpectedEOF
	ErrHeaderTooLarge      = http1.ErrHeaderTooLarge
)

// IOError reports a transport failure during an exchange. Op is one of
// "write", "read", "handshake" or "proxy".
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return "httpx: " + e.Op + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool {
	return target == ErrTimeout && isTimeout(e.Err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyIO maps a codec or socket error from op into the public taxonomy.
func classifyIO(op string, err error) error {
	var pe *http1.ProtocolError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &pe), errors.Is(err, ErrResponseTooLarge), errors.Is(err, http1.ErrInvalidField):
		if errors.Is(err, http1.ErrInvalidField) {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return err
	default:
		return &IOError{Op: op, Err: err}
	}
}
