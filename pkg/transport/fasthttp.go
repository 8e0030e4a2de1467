package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"

	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
)

// FastHTTP presents an identity through its header profile only; the TLS
// handshake is Go's own. Useful where tls-client cannot run and for local
// endpoints.
type FastHTTP struct {
	cfg Config
	log *logger.Logger

	mu      sync.Mutex
	clients map[identity.Identity]*fasthttp.Client
}

func NewFastHTTP(cfg Config) *FastHTTP {
	return &FastHTTP{
		cfg:     cfg.withDefaults(),
		log:     logger.GetLogger().WithField("component", "fasthttp_transport"),
		clients: make(map[identity.Identity]*fasthttp.Client),
	}
}

func (t *FastHTTP) client(id identity.Identity) *fasthttp.Client {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[id]; ok {
		return c
	}
	c := &fasthttp.Client{
		NoDefaultUserAgentHeader: true,
		ReadTimeout:              t.cfg.Timeout,
		WriteTimeout:             t.cfg.Timeout,
		MaxConnsPerHost:          4,
		TLSConfig:                &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if t.cfg.Proxy != "" {
		c.Dial = fasthttpproxy.FasthttpHTTPDialer(t.cfg.Proxy)
	}
	t.clients[id] = c
	t.log.WithField("identity", id).Debug("Created fasthttp client")
	return c
}

func (t *FastHTTP) Get(ctx context.Context, r *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profile, ok := t.cfg.Catalog.Profile(r.Identity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", identity.ErrUnknownIdentity, r.Identity)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL)
	req.Header.SetMethod(fasthttp.MethodGet)
	for _, h := range profile.Headers(r.AcceptLanguage) {
		req.Header.Set(h.Name, h.Value)
	}
	for name, value := range r.Cookies {
		req.Header.SetCookie(name, value)
	}

	timeout := timeoutFor(ctx, t.cfg.Timeout)
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	if err := t.client(r.Identity).DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	cookies := make(map[string]string)
	resp.Header.VisitAllCookie(func(_, value []byte) {
		c := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(c)
		if err := c.ParseBytes(value); err == nil {
			cookies[string(c.Key())] = string(c.Value())
		}
	})

	// resp is released on return
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       body,
		Cookies:    cookies,
	}, nil
}
