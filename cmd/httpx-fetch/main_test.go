package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeAll(t, args...)
	return out, err
}

// executeAll runs the command and returns stdout and stderr.
func executeAll(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func echoServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Token", r.Header.Get("X-Token"))
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_Post(t *testing.T) {
	srv := echoServer(t)
	out, err := execute(t, srv.URL, "-d", `{"id":1}`, "-H", "X-Token: abc", "-i")
	require.NoError(t, err)
	assert.Contains(t, out, "HTTP/1.1 200 OK\n")
	assert.Contains(t, out, "X-Method: POST\n")
	assert.Contains(t, out, "X-Token: abc\n")
	assert.Contains(t, out, "\n\n{\"id\":1}")
}

func TestFetch_StreamFromFile(t *testing.T) {
	srv := echoServer(t)
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stream":true}`), 0o600))
	out, err := execute(t, srv.URL, "--data-file", path, "-X", "PUT", "--async")
	require.NoError(t, err)
	assert.Equal(t, `{"stream":true}`, out)
}

func TestFetch_Metrics(t *testing.T) {
	srv := echoServer(t)
	out, errOut, err := executeAll(t, srv.URL, "-d", "ping", "--metrics")
	require.NoError(t, err)
	assert.Equal(t, "ping", out)
	assert.Contains(t, errOut, `httpx_client_requests_total{method="POST"} 1`)
	assert.Contains(t, errOut, `httpx_client_responses_total{status="200"} 1`)
	assert.Contains(t, errOut, "# TYPE httpx_client_roundtrip_duration_ms histogram")
}

func TestFetch_LogFormats(t *testing.T) {
	srv := echoServer(t)

	_, errOut, err := executeAll(t, srv.URL, "-v", "--log-format", "std")
	require.NoError(t, err)
	assert.Contains(t, errOut, "] httpx: ")
	assert.Regexp(t, `\[(DEBUG|INFO)\] httpx: `, errOut)

	_, errOut, err = executeAll(t, srv.URL, "-v", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, `"component":"httpx"`)

	_, _, err = executeAll(t, srv.URL, "--log-format", "xml")
	assert.ErrorContains(t, err, `log format "xml"`)
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
	}))
	t.Cleanup(srv.Close)

	_, err := execute(t, srv.URL, "--max-size", "100")
	assert.ErrorContains(t, err, "too large")

	_, err = execute(t, srv.URL, "--tls", "openssl")
	assert.ErrorContains(t, err, "tls.backend")

	_, err = execute(t, srv.URL, "-H", "no-colon")
	assert.ErrorContains(t, err, "missing ':'")

	_, err = execute(t, "ftp://example.com/")
	assert.Error(t, err)

	_, err = execute(t)
	assert.Error(t, err)
}
