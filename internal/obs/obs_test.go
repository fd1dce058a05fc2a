package obs

import (
	"bytes"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromMeter_Counter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMeter(reg)
	m.Counter("reqs_total", 1, Label{Key: "status", Value: "200"}, Label{Key: "method", Value: "GET"})
	m.Counter("reqs_total", 2, Label{Key: "method", Value: "GET"}, Label{Key: "status", Value: "200"})
	m.Counter("reqs_total", 5, Label{Key: "method", Value: "GET"}) // label set mismatch, dropped

	assert.Equal(t, 3.0, testutil.ToFloat64(m.counters["reqs_total"].WithLabelValues("GET", "200")))
	n, err := testutil.GatherAndCount(reg, "reqs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPromMeter_Histogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMeter(reg)
	m.Buckets = []float64{1, 10, 100}
	for _, v := range []float64{0.5, 5, 50, 500} {
		m.Histogram("latency_ms", v, Label{Key: "op", Value: "read"})
	}
	assert.Equal(t, 1, testutil.CollectAndCount(m.histograms["latency_ms"]))
}

func TestPromMeter_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, b := NewPromMeter(reg), NewPromMeter(reg)
	a.Counter("shared_total", 1)
	b.Counter("shared_total", 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(a.counters["shared_total"].WithLabelValues()))
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := SlogLogger{
		L:     slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})),
		Attrs: []slog.Attr{slog.Int("conn", 7)},
	}
	l.Logf(Debug, "hidden %d", 1)
	l.Logf(Warn, "dial %s failed", "a:80")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `level=WARN msg="dial a:80 failed" conn=7`)
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	l := StdLogger{L: log.New(&buf, "", 0), Min: Info, Component: "httpx"}
	l.Logf(Debug, "skip")
	l.Logf(Error, "boom %v", 42)
	StdLogger{L: log.New(&buf, "", 0), Min: Warn}.Logf(Warn, "bare")
	assert.Equal(t, "[ERROR] httpx: boom 42\n[WARN] bare\n", buf.String())
	StdLogger{}.Logf(Error, "no logger")
	NopLogger{}.Logf(Error, "nothing")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "WARN", Warn.String())
	assert.Equal(t, "LEVEL(9)", Level(9).String())
	assert.Equal(t, Debug, LevelOf(slog.LevelDebug))
	assert.Equal(t, Info, LevelOf(slog.LevelInfo+2))
	assert.Equal(t, Warn, LevelOf(slog.LevelWarn))
	assert.Equal(t, Error, LevelOf(slog.LevelError+4))
}

func TestObserveSince(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMeter(reg)
	ObserveSince(m, "op_ms", time.Now().Add(-20*time.Millisecond), L("op", "dial"))
	n, err := testutil.GatherAndCount(reg, "op_ms")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	ObserveSince(NopMeter{}, "ignored", time.Now())
}
