// Package crawler drives gocolly/colly through the rotating proxy pool.
package crawler

import (
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crawlproxy/internal/shared/logger"
	"crawlproxy/internal/shared/types"
	manager "crawlproxy/proxypool"
	"crawlproxy/proxypool/middleware"
	"crawlproxy/proxypool/model"
)

// Keys of the per-request colly.Context.
const (
	ctxProxy     = "proxy"
	ctxException = "exception"
	ctxRetries   = "proxy_retries"
	ctxTraceID   = "trace_id"
)

// Crawler wraps a colly.Collector whose requests go through the proxy pool.
type Crawler struct {
	collector  *colly.Collector
	middleware *middleware.Middleware
	transport  *Transport
	maxRetries int
	log        zerolog.Logger
}

// New builds a collector for cfg that takes its proxies from m.
func New(cfg types.CrawlerConf, m *manager.Manager) *Crawler {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	transport := NewTransport(m.Credential, timeout)

	opts := []colly.CollectorOption{colly.AllowURLRevisit()}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	if cfg.Async {
		opts = append(opts, colly.Async(true))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(transport)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if cfg.Parallelism > 1 {
		if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: cfg.Parallelism}); err != nil {
			logger.Warn().Err(err).Msg("Failed to apply crawler parallelism limit.")
		}
	}

	cr := &Crawler{
		collector:  c,
		middleware: middleware.New(m, middleware.OnEvicted(transport.Forget)),
		transport:  transport,
		maxRetries: cfg.MaxRetries,
		log:        logger.WithComponent("Crawler"),
	}
	c.OnRequest(cr.onRequest)
	c.OnError(cr.onError)
	return cr
}

// OnResponse registers fn for successful responses.
func (cr *Crawler) OnResponse(fn colly.ResponseCallback) {
	cr.collector.OnResponse(fn)
}

// Visit starts a crawl of rawURL with a fresh request context.
func (cr *Crawler) Visit(rawURL string) error {
	return cr.collector.Visit(rawURL)
}

// Wait blocks until every queued request has finished, then releases idle
// proxy connections.
func (cr *Crawler) Wait() {
	cr.collector.Wait()
	cr.transport.CloseIdleConnections()
}

func (cr *Crawler) onRequest(r *colly.Request) {
	if r.Ctx.Get(ctxTraceID) == "" {
		r.Ctx.Put(ctxTraceID, uuid.NewString())
	}

	req := requestFromColly(r)
	if err := cr.middleware.BeforeRequest(req); err != nil {
		cr.log.Error().
			Err(err).
			Str("trace_id", r.Ctx.Get(ctxTraceID)).
			Str("url", r.URL.String()).
			Msg("No proxy available, aborting request.")
		r.Abort()
		return
	}
	storeRequest(r, req)

	cr.log.Debug().
		Str("trace_id", r.Ctx.Get(ctxTraceID)).
		Str("url", r.URL.String()).
		Str("proxy", req.Proxy).
		Msg("Dispatching request.")
}

// onError only treats transport failures as proxy failures. A response with
// an HTTP error status still came through a working proxy.
func (cr *Crawler) onError(resp *colly.Response, err error) {
	r := resp.Request
	traceID := r.Ctx.Get(ctxTraceID)
	if resp.StatusCode != 0 {
		cr.log.Debug().
			Err(err).
			Str("trace_id", traceID).
			Int("status_code", resp.StatusCode).
			Msg("Request returned an HTTP error.")
		return
	}

	req := requestFromColly(r)
	cr.middleware.OnException(req, err)
	r.Ctx.Put(ctxException, req.Retrying)

	if !req.Retrying {
		return
	}
	retries, _ := r.Ctx.GetAny(ctxRetries).(int)
	if retries >= cr.maxRetries {
		cr.log.Warn().
			Str("trace_id", traceID).
			Str("url", r.URL.String()).
			Int("retries", retries).
			Msg("Giving up after proxy failures.")
		return
	}
	r.Ctx.Put(ctxRetries, retries+1)
	if rerr := r.Retry(); rerr != nil {
		cr.log.Warn().Err(rerr).Str("trace_id", traceID).Msg("Retry failed.")
	}
}

func requestFromColly(r *colly.Request) *model.Request {
	req := &model.Request{Proxy: r.Ctx.Get(ctxProxy)}
	req.Retrying, _ = r.Ctx.GetAny(ctxException).(bool)
	if r.Headers != nil {
		if *r.Headers == nil {
			*r.Headers = make(http.Header)
		}
		// Shares the map, so hook header changes land on the colly request.
		req.Header = *r.Headers
	}
	return req
}

func storeRequest(r *colly.Request, req *model.Request) {
	r.Ctx.Put(ctxProxy, req.Proxy)
	r.Ctx.Put(ctxException, req.Retrying)
	if r.Headers != nil {
		r.Headers.Set(upstreamHeader, req.Proxy)
	}
}
