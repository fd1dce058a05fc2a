// Package config loads client settings from YAML.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http/httpproxy"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"dqx0.com/go/rpcwire/httpx"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config mirrors httpx.Options in a serialisable form. Zero values leave the
// engine defaults in place.
type Config struct {
	ConnectTimeout  time.Duration `yaml:"connect_timeout,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	MaxResponseSize int64         `yaml:"max_response_size,omitempty"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes,omitempty"`
	MaxHeaderCount  int           `yaml:"max_header_count,omitempty"`

	Pool  Pool  `yaml:"pool"`
	TLS   TLS   `yaml:"tls"`
	Proxy Proxy `yaml:"proxy"`
	// DialRate paces new connections; zero PerSecond means unlimited.
	DialRate DialRate `yaml:"dial_rate"`

	RequestIDHeader string `yaml:"request_id_header,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Pool configures connection reuse.
type Pool struct {
	IdleTimeout    time.Duration `yaml:"idle_timeout,omitempty"`
	MaxIdle        int           `yaml:"max_idle,omitempty"`
	MaxIdlePerHost int           `yaml:"max_idle_per_host,omitempty"`
	MaxInFlight    int64         `yaml:"max_in_flight,omitempty"`
	// Disabled closes every connection after one exchange.
	Disabled bool `yaml:"disabled,omitempty"`
}

// TLS selects and configures the TLS backend.
type TLS struct {
	// Backend is "std" (default) or "utls".
	Backend string `yaml:"backend,omitempty"`
	// CAFile is a PEM bundle used instead of the system roots.
	CAFile string `yaml:"ca_file,omitempty"`
	// Hello names the uTLS ClientHello fingerprint (golang, chrome,
	// firefox, safari, edge, ios).
	Hello string `yaml:"hello,omitempty"`
}

// Proxy selects an HTTP proxy.
type Proxy struct {
	// FromEnv reads HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
	FromEnv bool   `yaml:"from_env,omitempty"`
	HTTP    string `yaml:"http,omitempty"`
	HTTPS   string `yaml:"https,omitempty"`
	NoProxy string `yaml:"no_proxy,omitempty"`
}

// DialRate is a token bucket for new connections.
type DialRate struct {
	PerSecond float64 `yaml:"per_second,omitempty"`
	Burst     int     `yaml:"burst,omitempty"`
}

var hellos = map[string]utls.ClientHelloID{
	"golang":  utls.HelloGolang,
	"chrome":  utls.HelloChrome_Auto,
	"firefox": utls.HelloFirefox_Auto,
	"safari":  utls.HelloSafari_Auto,
	"edge":    utls.HelloEdge_Auto,
	"ios":     utls.HelloIOS_Auto,
}

// Default returns a Config that yields httpx.DefaultOptions.
func Default() *Config {
	return &Config{TLS: TLS{Backend: "std"}, LogLevel: "info"}
}

// Load reads and validates a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"connect_timeout":   c.ConnectTimeout,
		"read_timeout":      c.ReadTimeout,
		"write_timeout":     c.WriteTimeout,
		"pool.idle_timeout": c.Pool.IdleTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.MaxResponseSize < 0 {
		errs = append(errs, errors.New("max_response_size must not be negative"))
	}
	if c.MaxHeaderBytes < 0 || c.MaxHeaderCount < 0 {
		errs = append(errs, errors.New("header limits must not be negative"))
	}
	if c.Pool.MaxIdle < 0 || c.Pool.MaxIdlePerHost < 0 || c.Pool.MaxInFlight < 0 {
		errs = append(errs, errors.New("pool sizes must not be negative"))
	}
	switch c.TLS.Backend {
	case "", "std":
		if c.TLS.Hello != "" {
			errs = append(errs, errors.New("tls.hello requires tls.backend utls"))
		}
	case "utls":
		if _, ok := hellos[strings.ToLower(c.TLS.Hello)]; c.TLS.Hello != "" && !ok {
			errs = append(errs, fmt.Errorf("unknown tls.hello %q", c.TLS.Hello))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown tls.backend %q", c.TLS.Backend))
	}
	if c.Proxy.FromEnv && (c.Proxy.HTTP != "" || c.Proxy.HTTPS != "") {
		errs = append(errs, errors.New("proxy.from_env excludes explicit proxies"))
	}
	if c.DialRate.PerSecond < 0 || c.DialRate.Burst < 0 {
		errs = append(errs, errors.New("dial_rate must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Options builds engine options. Logger, Meter and tracing are left for the
// caller to attach.
func (c *Config) Options() (httpx.Options, error) {
	o := httpx.Options{
		ConnectTimeout:  c.ConnectTimeout,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		MaxResponseSize: c.MaxResponseSize,
		MaxHeaderBytes:  c.MaxHeaderBytes,
		MaxHeaderCount:  c.MaxHeaderCount,
		IdleTimeout:     c.Pool.IdleTimeout,
		MaxIdle:         c.Pool.MaxIdle,
		MaxIdlePerHost:  c.Pool.MaxIdlePerHost,
		MaxInFlight:     c.Pool.MaxInFlight,
		RequestIDHeader: c.RequestIDHeader,
	}
	if c.Pool.Disabled {
		o.MaxIdle = -1
	}

	var roots *x509.CertPool
	if c.TLS.CAFile != "" {
		pem, err := os.ReadFile(c.TLS.CAFile)
		if err != nil {
			return o, fmt.Errorf("failed to read tls.ca_file: %w", err)
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return o, fmt.Errorf("%w: no certificates in %s", ErrInvalidConfig, c.TLS.CAFile)
		}
	}
	switch c.TLS.Backend {
	case "utls":
		o.TLS = httpx.UTLS{RootCAs: roots, Hello: hellos[strings.ToLower(c.TLS.Hello)]}
	default:
		std := httpx.StdTLS{}
		if roots != nil {
			std.Config = &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}
		}
		o.TLS = std
	}

	switch {
	case c.Proxy.FromEnv:
		o.Proxy = httpx.ProxyFromEnvironment
	case c.Proxy.HTTP != "" || c.Proxy.HTTPS != "":
		o.Proxy = httpx.ProxyFromConfig(&httpproxy.Config{
			HTTPProxy:  c.Proxy.HTTP,
			HTTPSProxy: c.Proxy.HTTPS,
			NoProxy:    c.Proxy.NoProxy,
		})
	}

	if c.DialRate.PerSecond > 0 {
		burst := c.DialRate.Burst
		if burst == 0 {
			burst = 1
		}
		o.DialLimiter = rate.NewLimiter(rate.Limit(c.DialRate.PerSecond), burst)
	}
	return o, nil
}

// ParseLevel maps a level name to slog; empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", s)
}
