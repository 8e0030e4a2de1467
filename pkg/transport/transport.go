// Package transport performs identity-tagged GET requests.
//
// Every request names the identity it must present. Implementations keep one
// underlying client per identity so that TLS sessions and connection pools
// never leak between fingerprints. Cookies travel explicitly on the Request
// and Response; transports do not keep a jar of their own.
package transport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"trends-go/pkg/identity"
)

const (
	BackendTLSClient = "tls-client"
	BackendFastHTTP  = "fasthttp"
)

type Request struct {
	URL            string
	Identity       identity.Identity
	Cookies        map[string]string
	AcceptLanguage string
}

type Response struct {
	StatusCode int
	Body       []byte
	Cookies    map[string]string
}

// Transport issues a single GET. A non-2xx status is not an error at this
// level; callers inspect Response.StatusCode.
type Transport interface {
	Get(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Get(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

type Config struct {
	Backend string
	Timeout time.Duration
	Proxy   string
	Catalog *identity.Catalog
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendTLSClient,
		Timeout: 30 * time.Second,
		Catalog: identity.Default(),
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Catalog == nil {
		c.Catalog = identity.Default()
	}
	return c
}

// New returns the transport selected by cfg.Backend.
func New(cfg Config) (Transport, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendTLSClient:
		return NewTLSClient(cfg), nil
	case BackendFastHTTP:
		return NewFastHTTP(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transport backend %q", cfg.Backend)
	}
}

// CookieHeader renders cookies as a Cookie header value with names sorted.
func CookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(cookies[name])
	}
	return b.String()
}

// timeoutFor shortens the configured timeout to the context deadline.
func timeoutFor(ctx context.Context, configured time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < configured {
			return left
		}
	}
	return configured
}
