package crawler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"

	"crawlproxy/internal/shared/logger"
	"crawlproxy/proxypool/middleware"
)

// upstreamHeader carries the assigned proxy address from the request hook to
// the transport. It is stripped before the request leaves the process.
const upstreamHeader = "X-Crawlproxy-Upstream"

// CredentialFunc looks up the stored "user:pass" of a proxy address.
type CredentialFunc func(address string) (string, bool)

// Transport routes each request through the proxy named in its
// upstreamHeader. One http.Transport is kept per proxy address.
type Transport struct {
	mu          sync.Mutex
	transports  map[string]*http.Transport
	direct      http.RoundTripper
	credentials CredentialFunc
	dialer      *net.Dialer
	timeout     time.Duration
	log         zerolog.Logger
}

func NewTransport(credentials CredentialFunc, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Transport{
		transports:  make(map[string]*http.Transport),
		direct:      http.DefaultTransport,
		credentials: credentials,
		dialer: &net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		},
		timeout: timeout,
		log:     logger.WithComponent("Crawler/Transport"),
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	address := req.Header.Get(upstreamHeader)
	if address == "" {
		return t.direct.RoundTrip(req)
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address %q: %w", address, err)
	}
	rt, err := t.transportFor(address, u)
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Del(upstreamHeader)
	if isSocks(u.Scheme) || out.URL.Scheme == "https" {
		// Only a plain-HTTP request through an HTTP proxy shows its headers
		// to the proxy. Anywhere else the header would reach the origin.
		out.Header.Del(middleware.ProxyAuthorizationHeader)
	} else if out.Header.Get(middleware.ProxyAuthorizationHeader) == "" {
		if cred, _ := t.lookup(address); cred != "" {
			out.Header.Set(middleware.ProxyAuthorizationHeader, middleware.BasicAuth(cred))
		}
	}
	return rt.RoundTrip(out)
}

// Forget drops the cached transport of an evicted proxy.
func (t *Transport) Forget(address string) {
	t.mu.Lock()
	tr, ok := t.transports[address]
	delete(t.transports, address)
	t.mu.Unlock()

	if ok {
		tr.CloseIdleConnections()
		t.log.Debug().Str("address", address).Msg("Closed connections of evicted proxy.")
	}
}

// CloseIdleConnections closes idle connections of every cached transport.
func (t *Transport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.transports {
		tr.CloseIdleConnections()
	}
}

func (t *Transport) lookup(address string) (string, bool) {
	if t.credentials == nil {
		return "", false
	}
	return t.credentials(address)
}

func (t *Transport) transportFor(address string, u *url.URL) (*http.Transport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tr, ok := t.transports[address]; ok {
		return tr, nil
	}

	cred, pooled := t.lookup(address)
	tr := &http.Transport{
		DialContext:           t.dialer.DialContext,
		TLSHandshakeTimeout:   t.timeout / 2,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   4,
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		tr.Proxy = http.ProxyURL(&url.URL{Scheme: u.Scheme, Host: u.Host})
		if cred != "" {
			tr.ProxyConnectHeader = http.Header{
				middleware.ProxyAuthorizationHeader: {middleware.BasicAuth(cred)},
			}
		}
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if cred != "" {
			user, pass, _ := strings.Cut(cred, ":")
			auth = &proxy.Auth{User: user, Password: pass}
		}
		d, err := proxy.SOCKS5("tcp", u.Host, auth, t.dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", address, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", address)
		}
		tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return cd.DialContext(ctx, network, addr)
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q in %s", u.Scheme, address)
	}

	if t.credentials != nil && !pooled {
		// Evicted while the request was in flight; Forget already ran.
		tr.DisableKeepAlives = true
		return tr, nil
	}
	t.transports[address] = tr
	t.log.Debug().Str("address", address).Msg("Created transport for proxy.")
	return tr, nil
}

func isSocks(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "socks5" || s == "socks5h"
}
