package trends

import (
	"context"
	"fmt"

	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
	"trends-go/pkg/transport"
)

// Session is the cookie jar of one identity cycle. It is not safe for
// concurrent use; one fetch owns it.
type Session struct {
	Identity identity.Identity
	// Locale drives the Accept-Language header so it agrees with hl.
	Locale  string
	Cookies map[string]string
}

func newSession(id identity.Identity, locale string) *Session {
	return &Session{Identity: id, Locale: locale, Cookies: make(map[string]string)}
}

func (s *Session) request(rawURL string) *transport.Request {
	cookies := make(map[string]string, len(s.Cookies))
	for k, v := range s.Cookies {
		cookies[k] = v
	}
	return &transport.Request{
		URL:            rawURL,
		Identity:       s.Identity,
		Cookies:        cookies,
		AcceptLanguage: identity.AcceptLanguage(s.Locale),
	}
}

// absorb keeps cookies the provider sets on later responses.
func (s *Session) absorb(cookies map[string]string) {
	for k, v := range cookies {
		s.Cookies[k] = v
	}
}

// Bootstrap primes a cookie jar with one GET of the landing page under id,
// already presenting locale. The status code is ignored; only cookies
// matter. Transport errors are returned as-is and not retried here.
func (c *Client) Bootstrap(ctx context.Context, id identity.Identity, locale string) (*Session, error) {
	sess := newSession(id, locale)
	resp, err := c.transport.Get(ctx, sess.request(c.endpoints.Home))
	if err != nil {
		return nil, fmt.Errorf("bootstrap session as %s: %w", id, err)
	}
	sess.absorb(resp.Cookies)

	c.log.WithFields(map[string]interface{}{
		"identity": id,
		"status":   resp.StatusCode,
		"cookies":  logger.MaskCookies(sess.Cookies),
	}).Debug("Session bootstrapped")
	return sess, nil
}
