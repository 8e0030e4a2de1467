package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
)

// clientHellos maps identities to tls-client profiles. tls-client ships no
// Chromium hello older than 103, so the older Chrome and Edge identities
// share Chrome_103 and differ only in their header profile.
var clientHellos = map[identity.Identity]profiles.ClientProfile{
	"chrome110": profiles.Chrome_110,
	"edge101":   profiles.Chrome_103,
	"chrome107": profiles.Chrome_107,
	"chrome104": profiles.Chrome_104,
	"chrome100": profiles.Chrome_103,
	"chrome101": profiles.Chrome_103,
	"chrome99":  profiles.Chrome_103,
}

// ClientHello returns the TLS profile used for id.
func ClientHello(id identity.Identity) (profiles.ClientProfile, bool) {
	p, ok := clientHellos[id]
	return p, ok
}

// TLSClient impersonates browsers at the TLS and HTTP/2 layer.
type TLSClient struct {
	cfg Config
	log *logger.Logger

	mu      sync.Mutex
	clients map[identity.Identity]tls_client.HttpClient
}

func NewTLSClient(cfg Config) *TLSClient {
	return &TLSClient{
		cfg:     cfg.withDefaults(),
		log:     logger.GetLogger().WithField("component", "tls_transport"),
		clients: make(map[identity.Identity]tls_client.HttpClient),
	}
}

func (t *TLSClient) client(id identity.Identity) (tls_client.HttpClient, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[id]; ok {
		return c, nil
	}
	hello, ok := ClientHello(id)
	if !ok {
		return nil, fmt.Errorf("%w: no TLS profile for %q", identity.ErrUnknownIdentity, id)
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds(t.cfg.Timeout)),
		tls_client.WithClientProfile(hello),
	}
	if t.cfg.Proxy != "" {
		options = append(options, tls_client.WithProxyUrl(t.cfg.Proxy))
	}
	c, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("create tls client for %s: %w", id, err)
	}
	t.clients[id] = c
	t.log.WithField("identity", id).Debug("Created TLS client")
	return c, nil
}

// timeoutSeconds rounds d up to whole seconds, never below one.
func timeoutSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func (t *TLSClient) Get(ctx context.Context, r *Request) (*Response, error) {
	profile, ok := t.cfg.Catalog.Profile(r.Identity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", identity.ErrUnknownIdentity, r.Identity)
	}
	c, err := t.client(r.Identity)
	if err != nil {
		return nil, err
	}

	// The client timeout only has whole-second resolution; the context
	// deadline enforces the configured value exactly.
	ctx, cancel := context.WithTimeout(ctx, timeoutFor(ctx, t.cfg.Timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	header := http.Header{}
	order := make([]string, 0, 8)
	for _, h := range profile.Headers(r.AcceptLanguage) {
		header.Set(h.Name, h.Value)
		order = append(order, h.Name)
	}
	if cookie := CookieHeader(r.Cookies); cookie != "" {
		header.Set("cookie", cookie)
		order = append(order, "cookie")
	}
	header[http.HeaderOrderKey] = order
	req.Header = header

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	cookies := make(map[string]string)
	for _, ck := range resp.Cookies() {
		cookies[ck.Name] = ck.Value
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Cookies:    cookies,
	}, nil
}
