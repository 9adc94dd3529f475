package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/samber/lo"
	"golang.org/x/net/http2"
)

// newTransport initializes a tuned http.Transport with pool and timeout parameters suited
// to many parallel segment requests against the same CDN host.
func newTransport(headerTimeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = headerTimeout
	t.ExpectContinueTimeout = 30 * time.Second
	return t
}

// fingerprintTransport sends HTTPS requests with a Chrome 120 ClientHello.
//
// It prefers HTTP/2 and falls back to an HTTP/1.1-only handshake when the
// server does not negotiate h2. Plain HTTP goes through the regular transport.
type fingerprintTransport struct {
	plain *http.Transport
	h2    *http2.Transport
	h1    *http.Transport
}

func newFingerprintTransport(headerTimeout time.Duration) *fingerprintTransport {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}

	h1 := newTransport(headerTimeout)
	h1.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialFingerprinted(ctx, dialer, network, addr, []string{"http/1.1"})
	}

	return &fingerprintTransport{
		plain: newTransport(headerTimeout),
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialFingerprinted(ctx, dialer, network, addr, nil)
			},
			ReadIdleTimeout: headerTimeout,
		},
		h1: h1,
	}
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	// Only bodiless requests can be replayed safely.
	if req.Body != nil && req.Body != http.NoBody {
		return nil, err
	}

	if ctxErr := req.Context().Err(); ctxErr != nil {
		return nil, ctxErr
	}

	return t.h1.RoundTrip(req)
}

// dialFingerprinted opens a TLS connection mimicking Chrome's fingerprint.
// A nil protos advertises Chrome's default ALPN list (h2 and http/1.1).
func dialFingerprinted(ctx context.Context, dialer *net.Dialer, network, addr string, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	config := &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}

	var tlsConn *utls.UConn
	if protos == nil {
		tlsConn = utls.UClient(conn, config, utls.HelloChrome_120)
	} else {
		// the preset carries its own ALPN extension, which wins over config.NextProtos
		spec, err := helloSpec(protos)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}

		tlsConn = utls.UClient(conn, config, utls.HelloCustom)
		if err := tlsConn.ApplyPreset(spec); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply client hello: %w", err)
		}
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

// helloSpec returns the Chrome 120 ClientHello advertising only protos over ALPN.
// ALPS only applies to h2 and is dropped when h2 is not offered.
func helloSpec(protos []string) (*utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_120)
	if err != nil {
		return nil, fmt.Errorf("client hello spec: %w", err)
	}

	offersH2 := lo.Contains(protos, http2.NextProtoTLS)
	extensions := make([]utls.TLSExtension, 0, len(spec.Extensions))
	for _, ext := range spec.Extensions {
		switch ext.(type) {
		case *utls.ALPNExtension:
			extensions = append(extensions, &utls.ALPNExtension{AlpnProtocols: protos})
		case *utls.ApplicationSettingsExtension, *utls.ApplicationSettingsExtensionNew:
			if offersH2 {
				extensions = append(extensions, ext)
			}
		default:
			extensions = append(extensions, ext)
		}
	}

	spec.Extensions = extensions
	return &spec, nil
}
