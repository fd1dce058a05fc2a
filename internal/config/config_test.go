package config

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqx0.com/go/rpcwire/httpx"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "client.yaml", `
connect_timeout: 2s
read_timeout: 15s
max_response_size: 1048576
pool:
  idle_timeout: 1m
  max_idle_per_host: 2
  max_in_flight: 32
tls:
  backend: utls
  hello: chrome
proxy:
  http: http://proxy.test:3128
  no_proxy: internal.test
dial_rate:
  per_second: 5
request_id_header: X-Request-ID
log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, time.Minute, cfg.Pool.IdleTimeout)

	o, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, o.ReadTimeout)
	assert.EqualValues(t, 1<<20, o.MaxResponseSize)
	assert.Equal(t, 2, o.MaxIdlePerHost)
	assert.EqualValues(t, 32, o.MaxInFlight)
	assert.Equal(t, "X-Request-ID", o.RequestIDHeader)
	require.NotNil(t, o.DialLimiter)
	assert.Equal(t, 1, o.DialLimiter.Burst())
	assert.Equal(t, "utls", o.TLS.Name())

	require.NotNil(t, o.Proxy)
	u, err := httpx.ParseURL("http://api.test/")
	require.NoError(t, err)
	p, err := o.Proxy(u)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "proxy.test", p.Host)
	u, err = httpx.ParseURL("http://internal.test/")
	require.NoError(t, err)
	p, err = o.Proxy(u)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	o, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "std", o.TLS.Name())
	assert.Nil(t, o.Proxy)
	assert.Nil(t, o.DialLimiter)
	assert.Zero(t, o.ReadTimeout, "zero leaves the engine default")

	cfg, err = Parse([]byte("pool: {disabled: true}"))
	require.NoError(t, err)
	o, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, -1, o.MaxIdle)
}

func TestParse_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"negative timeout": "read_timeout: -1s",
		"backend":          "tls: {backend: boringssl}",
		"hello on std":     "tls: {hello: chrome}",
		"unknown hello":    "tls: {backend: utls, hello: netscape}",
		"proxy conflict":   "proxy: {from_env: true, http: 'http://p.test'}",
		"log level":        "log_level: loud",
		"pool":             "pool: {max_idle: -2}",
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
	}

	_, err := Parse([]byte("read_timeout: [1"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptions_CAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("trusted"))
	}))
	t.Cleanup(srv.Close)
	ca := writeFile(t, "ca.pem", string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})))

	for _, backend := range []string{"std", "utls"} {
		t.Run(backend, func(t *testing.T) {
			cfg := Default()
			cfg.TLS = TLS{Backend: backend, CAFile: ca}
			require.NoError(t, cfg.Validate())
			o, err := cfg.Options()
			require.NoError(t, err)

			c := httpx.New(o)
			t.Cleanup(func() { _ = c.Close() })
			res, err := c.Get(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, "trusted", string(res.Body))
		})
	}

	cfg := Default()
	cfg.TLS.CAFile = writeFile(t, "empty.pem", "not a certificate")
	_, err := cfg.Options()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
