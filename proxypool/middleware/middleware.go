// Package middleware binds the proxy pool to a crawling client's request
// lifecycle through two hooks: BeforeRequest and OnException.
package middleware

import (
	"encoding/base64"
	"net/http"

	"github.com/rs/zerolog"

	"crawlproxy/internal/shared/logger"
	manager "crawlproxy/proxypool"
	"crawlproxy/proxypool/model"
)

// ProxyAuthorizationHeader carries the Basic credentials for the upstream proxy.
const ProxyAuthorizationHeader = "Proxy-Authorization"

// Middleware holds the process-wide pool manager.
type Middleware struct {
	manager *manager.Manager
	log     zerolog.Logger
	evicted []func(address string)
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(mw *Middleware) {
		mw.log = l
	}
}

// OnEvicted registers fn to run after a failed proxy left the pool.
func OnEvicted(fn func(address string)) Option {
	return func(mw *Middleware) {
		mw.evicted = append(mw.evicted, fn)
	}
}

func New(m *manager.Manager, opts ...Option) *Middleware {
	mw := &Middleware{
		manager: m,
		log:     logger.WithComponent("ProxyPool/Middleware"),
	}
	for _, opt := range opts {
		opt(mw)
	}
	return mw
}

// BeforeRequest assigns a proxy to req. A request that already holds a proxy
// and is not being retried keeps it, since the target may tie session state
// to the proxy's IP. Returns ErrPoolExhausted when no proxy is left.
func (mw *Middleware) BeforeRequest(req *model.Request) error {
	if req.HasProxy() && !req.Retrying {
		return nil
	}
	req.Retrying = false

	entry, remaining, err := mw.manager.Next()
	if err != nil {
		return err
	}

	req.Proxy = entry.Address
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if entry.HasCredential() {
		req.Header.Set(ProxyAuthorizationHeader, BasicAuth(entry.Credential))
	} else {
		// A retried request may still carry the previous proxy's credentials.
		req.Header.Del(ProxyAuthorizationHeader)
	}

	mw.log.Debug().
		Str("address", entry.Address).
		Int("remaining_count", remaining).
		Msg("Using proxy.")
	return nil
}

// OnException handles a transport failure of req. The proxy it used is
// evicted (EveryRequest, Once) and req is flagged so the next BeforeRequest
// picks a new one. Once mode also draws its next sticky proxy right away.
// A Custom proxy has no alternative and is left in place.
func (mw *Middleware) OnException(req *model.Request, cause error) {
	if !req.HasProxy() {
		return
	}

	address := req.Proxy
	if mw.manager.Mode() == model.Custom {
		mw.log.Warn().
			Err(cause).
			Str("address", address).
			Msg("Custom proxy failed, no alternative proxy to switch to.")
		return
	}

	evicted, remaining := mw.manager.ReportFailure(address)
	req.Retrying = true

	mw.log.Info().
		Err(cause).
		Str("address", address).
		Int("remaining_count", remaining).
		Msg("Removing failed proxy.")

	if !evicted {
		return
	}
	for _, fn := range mw.evicted {
		fn(address)
	}
}

// BasicAuth formats "user:pass" as a Basic authorization value.
func BasicAuth(credential string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credential))
}
