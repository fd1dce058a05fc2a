package httpx

import (
	"time"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"dqx0.com/go/rpcwire/internal/obs"
)

// Defaults applied to zero Options fields.
const (
	DefaultConnectTimeout  = 10 * time.Second
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultMaxResponseSize = 64 << 20
	DefaultIdleTimeout     = 30 * time.Second
	DefaultMaxIdle         = 64
	DefaultMaxIdlePerHost  = 8
	DefaultMaxInFlight     = 256
)

// Options configures a Client. Zero values select the defaults above;
// per-request fields on Request override the timeouts and size cap.
type Options struct {
	// ConnectTimeout bounds the TCP connect (and the TLS handshake).
	ConnectTimeout time.Duration
	// ReadTimeout bounds every individual read from the socket.
	ReadTimeout time.Duration
	// WriteTimeout bounds every individual write to the socket.
	WriteTimeout time.Duration
	// MaxResponseSize caps the decoded response body.
	MaxResponseSize int64
	// MaxHeaderBytes caps the response header block plus trailers.
	MaxHeaderBytes int
	// MaxHeaderCount caps the number of response header fields.
	MaxHeaderCount int

	// IdleTimeout evicts pooled connections unused for this long.
	IdleTimeout time.Duration
	// MaxIdle caps idle connections across all hosts; negative disables
	// pooling altogether.
	MaxIdle int
	// MaxIdlePerHost caps idle connections per pool key.
	MaxIdlePerHost int
	// MaxInFlight bounds concurrently running async calls (Client.Go).
	MaxInFlight int64

	// TLS performs handshakes for https; StdTLS when nil.
	TLS TLSBackend
	// Proxy selects a proxy per target URL; nil means direct.
	Proxy func(*URL) (*URL, error)
	// DialLimiter paces new connections when set.
	DialLimiter *rate.Limiter

	// RequestIDHeader, when set, is stamped on every request that lacks it
	// with the ID from WithRequestID or a fresh UUID.
	RequestIDHeader string

	Logger     obs.Logger
	Meter      obs.Meter
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator
}

// DefaultOptions returns Options with every default filled in.
func DefaultOptions() Options {
	var o Options
	o.setDefaults()
	return o
}

func (o *Options) setDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.MaxResponseSize <= 0 {
		o.MaxResponseSize = DefaultMaxResponseSize
	}
	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = 64 << 10
	}
	if o.MaxHeaderCount <= 0 {
		o.MaxHeaderCount = 100
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.MaxIdle == 0 {
		o.MaxIdle = DefaultMaxIdle
	}
	if o.MaxIdlePerHost <= 0 {
		o.MaxIdlePerHost = DefaultMaxIdlePerHost
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = DefaultMaxInFlight
	}
	if o.TLS == nil {
		o.TLS = StdTLS{}
	}
	if o.Logger == nil {
		o.Logger = obs.NopLogger{}
	}
	if o.Meter == nil {
		o.Meter = obs.NopMeter{}
	}
}
