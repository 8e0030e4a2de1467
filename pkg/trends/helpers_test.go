package trends

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
	"trends-go/pkg/transport"
)

const (
	exploreOKBody = ExploreGuard + `{"widgets":[` +
		`{"id":"TIMESERIES","token":"T0","request":{"time":"now 1-H"}},` +
		`{"id":"RELATED_QUERIES","token":"ABC123","request":{"foo":1}}]}`

	widgetOKBody = WidgetDataGuard + `{"default":{"rankedList":[` +
		`{"rankedKeyword":[{"query":"q1","value":10,"link":"/trends/explore?q=q1&date=now+1-H&type=TOP"}]},` +
		`{"rankedKeyword":[{"query":"q2","value":5,"link":"/trends/explore?q=q2&date=now+1-H&type=RISING"}]}]}}`
)

var testEndpoints = Endpoints{
	Home:       "https://home.test/",
	Explore:    "https://trends.test/api/explore",
	WidgetData: "https://trends.test/api/widgetdata/relatedsearches",
}

type call struct {
	endpoint       string
	identity       identity.Identity
	url            string
	cookies        map[string]string
	acceptLanguage string
}

type responder func(n int, req *transport.Request) (*transport.Response, error)

// fakeProvider routes requests by endpoint and counts calls per endpoint.
type fakeProvider struct {
	mu      sync.Mutex
	home    responder
	explore responder
	widget  responder
	calls   []call
	counts  map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		home:    respond(200, "<html></html>", map[string]string{"NID": "n1"}),
		explore: respond(200, exploreOKBody, nil),
		widget:  respond(200, widgetOKBody, nil),
		counts:  make(map[string]int),
	}
}

func respond(status int, body string, cookies map[string]string) responder {
	return func(int, *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: status, Body: []byte(body), Cookies: cookies}, nil
	}
}

func fail(err error) responder {
	return func(int, *transport.Request) (*transport.Response, error) {
		return nil, err
	}
}

func (f *fakeProvider) Get(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var name string
	var r responder
	switch {
	case strings.HasPrefix(req.URL, testEndpoints.Explore):
		name, r = "explore", f.explore
	case strings.HasPrefix(req.URL, testEndpoints.WidgetData):
		name, r = "widget", f.widget
	case strings.HasPrefix(req.URL, testEndpoints.Home):
		name, r = "home", f.home
	default:
		return nil, errors.New("unexpected url " + req.URL)
	}

	f.mu.Lock()
	f.counts[name]++
	n := f.counts[name]
	f.calls = append(f.calls, call{
		endpoint:       name,
		identity:       req.Identity,
		url:            req.URL,
		cookies:        req.Cookies,
		acceptLanguage: req.AcceptLanguage,
	})
	f.mu.Unlock()

	return r(n, req)
}

func (f *fakeProvider) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[endpoint]
}

func (f *fakeProvider) identitiesFor(endpoint string) []identity.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []identity.Identity
	for _, c := range f.calls {
		if c.endpoint == endpoint {
			out = append(out, c.identity)
		}
	}
	return out
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newTestClient(t transport.Transport, rec *sleepRecorder, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithEndpoints(testEndpoints),
		WithSleep(rec.sleep),
		WithLogger(logger.Nop()),
	}
	return NewClient(t, append(base, opts...)...)
}
