package httpx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"

	utls "github.com/refraction-networking/utls"
)

// TLSBackend turns a connected socket into a verified TLS session for host.
// Implementations must verify the peer certificate chain and host name, send
// SNI and offer ALPN "http/1.1". The returned conn replaces raw; on error
// the caller closes raw.
type TLSBackend interface {
	Handshake(ctx context.Context, raw net.Conn, host string) (net.Conn, error)
	Name() string
}

// StdTLS is the crypto/tls backend.
type StdTLS struct {
	// Config is cloned per handshake; ServerName and NextProtos are filled
	// in when empty.
	Config *tls.Config
}

func (StdTLS) Name() string { return "std" }

func (b StdTLS) Handshake(ctx context.Context, raw net.Conn, host string) (net.Conn, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if b.Config != nil {
		cfg = b.Config.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{"http/1.1"}
	}
	tc := tls.Client(raw, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}

// UTLS is the uTLS backend. It presents the ClientHello of Hello
// (utls.HelloGolang when zero) and verifies against RootCAs (system roots
// when nil).
type UTLS struct {
	RootCAs *x509.CertPool
	Hello   utls.ClientHelloID
}

func (UTLS) Name() string { return "utls" }

func (b UTLS) Handshake(ctx context.Context, raw net.Conn, host string) (net.Conn, error) {
	hello := b.Hello
	if hello.Client == "" {
		hello = utls.HelloGolang
	}
	cfg := &utls.Config{
		ServerName: host,
		RootCAs:    b.RootCAs,
		NextProtos: []string{"http/1.1"},
		MinVersion: utls.VersionTLS12,
	}
	uc := utls.UClient(raw, cfg, hello)
	if err := uc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return uc, nil
}
