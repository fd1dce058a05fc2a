// Command httpx-fetch performs one HTTP request with the httpx engine and
// prints the response.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"dqx0.com/go/rpcwire/httpx"
	"dqx0.com/go/rpcwire/internal/config"
	"dqx0.com/go/rpcwire/internal/obs"
)

var version = "dev"

type flags struct {
	config    string
	method    string
	headers   []string
	data      string
	dataFile  string
	timeout   time.Duration
	backend   string
	maxSize   int64
	follow    int
	include   bool
	async     bool
	verbose   bool
	logFormat string
	metrics   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "httpx-fetch [flags] URL",
		Short: "Send one HTTP/1.1 request and print the response",
		Long: `httpx-fetch sends a single request through the httpx engine.

Example:
  httpx-fetch https://node.example/rpc -X POST -H 'Content-Type: application/json' -d '{"id":1}'
  httpx-fetch --config client.yaml -i http://127.0.0.1:8545/`,
		Args:          cobra.ExactArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0])
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "Path to a YAML client configuration")
	fl.StringVarP(&f.method, "request", "X", "", "Request method (default GET, or POST with data)")
	fl.StringArrayVarP(&f.headers, "header", "H", nil, "Request header 'Name: value' (repeatable)")
	fl.StringVarP(&f.data, "data", "d", "", "Request body")
	fl.StringVar(&f.dataFile, "data-file", "", "Stream the request body from a file ('-' for stdin)")
	fl.DurationVarP(&f.timeout, "timeout", "t", 0, "Overall deadline for the request")
	fl.StringVar(&f.backend, "tls", "", "TLS backend: std or utls")
	fl.Int64Var(&f.maxSize, "max-size", 0, "Maximum response body size in bytes")
	fl.IntVarP(&f.follow, "location", "L", 0, "Follow up to N redirects")
	fl.BoolVarP(&f.include, "include", "i", false, "Print the status line and headers")
	fl.BoolVar(&f.async, "async", false, "Use the cancellable executor")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "Log engine activity to stderr")
	fl.StringVar(&f.logFormat, "log-format", "text", "Log format: text, json or std")
	fl.BoolVar(&f.metrics, "metrics", false, "Write client metrics to stderr after the request")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file")
	return cmd
}

func run(cmd *cobra.Command, f *flags, target string) error {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return err
		}
	}
	if f.backend != "" {
		cfg.TLS.Backend = f.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	if f.verbose {
		level = slog.LevelDebug
	}
	if opts.Logger, err = newLogger(cmd.ErrOrStderr(), f.logFormat, level); err != nil {
		return err
	}
	if f.metrics {
		reg := prometheus.NewRegistry()
		opts.Meter = obs.NewPromMeter(reg)
		defer func() {
			if err := writeMetrics(cmd.ErrOrStderr(), reg); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "metrics:", err)
			}
		}()
	}

	req, closeBody, err := buildRequest(f, target)
	if err != nil {
		return err
	}
	defer closeBody()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	c := httpx.New(opts)
	defer c.Close()
	var res *httpx.Response
	if f.async {
		res, err = c.Go(ctx, req, nil).Wait()
	} else {
		res, err = c.Do(ctx, req)
	}
	if err != nil {
		return describe(err)
	}
	return printResponse(cmd.OutOrStdout(), res, f.include)
}

func newLogger(w io.Writer, format string, level slog.Level) (obs.Logger, error) {
	hopts := &slog.HandlerOptions{Level: level}
	attrs := []slog.Attr{slog.String("component", "httpx")}
	switch format {
	case "", "text":
		return obs.SlogLogger{L: slog.New(slog.NewTextHandler(w, hopts)), Attrs: attrs}, nil
	case "json":
		return obs.SlogLogger{L: slog.New(slog.NewJSONHandler(w, hopts)), Attrs: attrs}, nil
	case "std":
		return obs.StdLogger{L: log.New(w, "", log.LstdFlags), Min: obs.LevelOf(level), Component: "httpx"}, nil
	}
	return nil, fmt.Errorf("log format %q: want text, json or std", format)
}

// writeMetrics dumps everything gathered from reg in the text exposition
// format.
func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func buildRequest(f *flags, target string) (*httpx.Request, func(), error) {
	req := &httpx.Request{Method: f.method, URL: target, MaxResponseSize: f.maxSize, FollowRedirects: f.follow}
	closeBody := func() {}
	switch {
	case f.data != "":
		req.Body = []byte(f.data)
	case f.dataFile == "-":
		req.BodyStream = os.Stdin
	case f.dataFile != "":
		fh, err := os.Open(f.dataFile)
		if err != nil {
			return nil, nil, err
		}
		req.BodyStream = fh
		closeBody = func() { _ = fh.Close() }
	}
	if req.Method == "" {
		req.Method = "GET"
		if req.Body != nil || req.BodyStream != nil {
			req.Method = "POST"
		}
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			closeBody()
			return nil, nil, fmt.Errorf("header %q: missing ':'", h)
		}
		req.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return req, closeBody, nil
}

func printResponse(w io.Writer, res *httpx.Response, include bool) error {
	if include {
		fmt.Fprintf(w, "%s %s\n", res.Proto, res.Status())
		for _, h := range res.Header {
			fmt.Fprintf(w, "%s: %s\n", h.Name, h.Value)
		}
		fmt.Fprintln(w)
	}
	_, err := w.Write(res.Body)
	return err
}

// describe prefixes err with its failure class.
func describe(err error) error {
	var (
		ce *httpx.ConnectError
		te *httpx.TLSError
		pe *httpx.ProtocolError
	)
	switch {
	case errors.Is(err, httpx.ErrTimeout):
		return fmt.Errorf("timeout: %w", err)
	case errors.As(err, &ce):
		return fmt.Errorf("connect (%s): %w", ce.Kind, err)
	case errors.As(err, &te):
		return fmt.Errorf("tls (%s): %w", te.Kind, err)
	case errors.As(err, &pe):
		return fmt.Errorf("protocol (%s): %w", pe.Kind, err)
	}
	return err
}
