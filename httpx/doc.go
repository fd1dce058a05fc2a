// Package httpx is a small HTTP/1.1 request engine for RPC clients: it
// sends one request and returns the complete response, with every input
// the peer controls held to a hard limit.
//
// Highlights
//   - Strict URL parsing (http and https only, ASCII hosts, bracketed IPv6).
//   - Bounded response decoding: status line and header size limits,
//     Content-Length and chunked framing, a cap on the decoded body.
//   - Connection reuse keyed by scheme, host, port and proxy, with lazy
//     expiry and no background goroutines.
//   - Two TLS backends: crypto/tls (StdTLS) and uTLS (UTLS).
//   - Two executors sharing one protocol path: Client.Do blocks the caller
//     and honours only deadlines; Client.Go runs asynchronously and also
//     honours cancellation.
//   - Opt-in redirects, HTTP proxies (absolute-form and CONNECT), request
//     IDs, Prometheus-style metrics and OpenTelemetry spans.
//
// Quick start:
//
//	c := httpx.New(httpx.Options{ReadTimeout: 5 * time.Second})
//	defer c.Close()
//	res, err := c.Post(ctx, "https://node.example/rpc", "application/json", body)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.StatusCode, len(res.Body))
//
// Errors are typed: *URLError, *ConnectError, *TLSError, *ProtocolError and
// *IOError, plus sentinels such as ErrTimeout and ErrResponseTooLarge for
// use with errors.Is.
package httpx
