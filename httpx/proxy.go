package httpx

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/net/http/httpproxy"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
)

// ProxyFromEnvironment selects a proxy from HTTP_PROXY, HTTPS_PROXY and
// NO_PROXY (or their lowercase forms), read once on first use. Only http://
// proxies are supported.
func ProxyFromEnvironment(u *URL) (*URL, error) {
	return envProxy()(u)
}

var envProxy = sync.OnceValue(func() func(*URL) (*URL, error) {
	return proxyFunc(httpproxy.FromEnvironment())
})

// ProxyFromConfig is ProxyFromEnvironment with explicit settings.
func ProxyFromConfig(cfg *httpproxy.Config) func(*URL) (*URL, error) {
	return proxyFunc(cfg)
}

func proxyFunc(cfg *httpproxy.Config) func(*URL) (*URL, error) {
	fn := cfg.ProxyFunc()
	return func(u *URL) (*URL, error) {
		target := &url.URL{Scheme: u.Scheme, Host: net.JoinHostPort(u.Host, strconv.Itoa(u.Port))}
		pu, err := fn(target)
		if err != nil || pu == nil {
			return nil, err
		}
		p, err := ParseURL(pu.String())
		if err != nil {
			return nil, err
		}
		if p.Scheme != "http" {
			return nil, fmt.Errorf("httpx: unsupported proxy scheme %q", p.Scheme)
		}
		return p, nil
	}
}

// basicAuth builds a Basic credential from raw userinfo.
func basicAuth(ui *Userinfo) (string, error) {
	user, err := Unescape(ui.Username)
	if err != nil {
		return "", err
	}
	pass, err := Unescape(ui.Password)
	if err != nil {
		return "", err
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass)), nil
}

// tunnel issues CONNECT for target over a fresh proxy connection. A non-2xx
// reply fails with its status; any bytes the proxy sends past a 2xx head make
// the tunnel unusable.
func (c *Client) tunnel(ctx context.Context, raw net.Conn, proxy, target *URL) error {
	head := http1.RequestHead{Method: "CONNECT", Target: target.Hostport(), Host: target.Hostport()}
	if proxy.User != nil {
		auth, err := basicAuth(proxy.User)
		if err != nil {
			return err
		}
		head.Header = append(head.Header, HeaderField{Name: "Proxy-Authorization", Value: auth})
	}
	bw := bufio.NewWriter(raw)
	if err := http1.WriteRequestHead(bw, head); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return &IOError{Op: "proxy", Err: err}
	}
	br := bufio.NewReader(raw)
	// The body of a refusal is never read.
	res, err := http1.ReadResponseHead(br, c.limits(0))
	if err != nil {
		return classifyIO("proxy", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &IOError{Op: "proxy", Err: fmt.Errorf("CONNECT %s: %d %s", head.Target, res.StatusCode, res.Reason)}
	}
	if br.Buffered() > 0 {
		return &IOError{Op: "proxy", Err: errors.New("unexpected data after CONNECT response")}
	}
	return nil
}
