// Package trends fetches related-query rankings from the Google Trends web
// API.
//
// A fetch is a two-phase exchange run under one browser identity: the
// explore call trades the keyword set for a widget token and request
// descriptor, and the widget-data call trades those for the ranked lists.
// Each phase retries with fixed pacing; when a phase runs out of attempts the
// client bootstraps a new session under the next identity and starts over.
package trends

import (
	"time"

	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
	"trends-go/pkg/transport"
)

// Endpoints are the provider URLs. Tests point them at a local server.
type Endpoints struct {
	Home       string
	Explore    string
	WidgetData string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Home:       "https://www.google.com",
		Explore:    "https://trends.google.com/trends/api/explore",
		WidgetData: "https://trends.google.com/trends/api/widgetdata/relatedsearches",
	}
}

// Delays are the pacing pauses. Token and Widget precede every attempt of
// their phase; Switch precedes every identity cycle after the first.
type Delays struct {
	Token  time.Duration
	Widget time.Duration
	Switch time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Token:  2 * time.Second,
		Widget: 5 * time.Second,
		Switch: 5 * time.Second,
	}
}

// Client runs fetches. It holds configuration only; each FetchTrends call
// owns its own session and identity index, so a Client may be shared.
type Client struct {
	transport transport.Transport
	catalog   *identity.Catalog
	endpoints Endpoints
	delays    Delays
	sleep     SleepFunc
	now       func() time.Time
	log       *logger.Logger
	secure    *logger.SecurityLogger
}

type ClientOption func(*Client)

func WithCatalog(c *identity.Catalog) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.catalog = c
		}
	}
}

func WithEndpoints(e Endpoints) ClientOption {
	return func(cl *Client) { cl.endpoints = e }
}

func WithDelays(d Delays) ClientOption {
	return func(cl *Client) { cl.delays = d }
}

// WithSleep replaces the pacing sleep, e.g. with a recorder in tests.
func WithSleep(fn SleepFunc) ClientOption {
	return func(cl *Client) {
		if fn != nil {
			cl.sleep = fn
		}
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

func WithLogger(l *logger.Logger) ClientOption {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

func NewClient(t transport.Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		catalog:   identity.Default(),
		endpoints: DefaultEndpoints(),
		delays:    DefaultDelays(),
		sleep:     Sleep,
		now:       time.Now,
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "trends_client")
	c.secure = logger.NewSecurityLogger(c.log)
	return c
}

func (c *Client) Catalog() *identity.Catalog {
	return c.catalog
}
