package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
	"trends-go/pkg/trends"
)

type fakeService struct {
	keywords []string
	opts     trends.Options
	result   *trends.TrendResult
	err      error
	calls    int
}

func (f *fakeService) FetchTrends(ctx context.Context, keywords []string, opts trends.Options) (*trends.TrendResult, error) {
	f.calls++
	f.keywords = keywords
	f.opts = opts
	return f.result, f.err
}

func newTestApp(svc *fakeService) *fiber.App {
	app := fiber.New()
	NewController(svc, ControllerConfig{Defaults: trends.DefaultOptions()}, logger.Nop()).Register(app)
	return app
}

func do(t *testing.T, app *fiber.App, target string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded), "body: %s", body)
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	status, body := do(t, newTestApp(&fakeService{}), "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestFetchTrendsOK(t *testing.T) {
	result := trends.NewTrendResult()
	result.Top["q1"] = 10
	result.Rising["q2"] = 5
	svc := &fakeService{result: result}

	status, body := do(t, newTestApp(svc),
		"/api/v1/trends?keywords=golang,%20rust&geo=US&hl=de-DE&max_retries=3&switch_retries=0&identity=edge101&days_ago=7&range_days=30")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"q1": 10.0}, body["TOP"])
	assert.Equal(t, map[string]interface{}{"q2": 5.0}, body["RISING"])

	assert.Equal(t, []string{"golang", "rust"}, svc.keywords)
	assert.Equal(t, "US", svc.opts.Geo)
	assert.Equal(t, "de-DE", svc.opts.Locale)
	assert.Equal(t, 3, svc.opts.MaxRetries)
	assert.Equal(t, 0, svc.opts.IdentitySwitchRetries)
	assert.Equal(t, 7, svc.opts.DaysAgo)
	assert.Equal(t, 30, svc.opts.RangeDays)
	assert.Equal(t, identity.Identity("edge101"), svc.opts.StartIdentity)
}

func TestFetchTrendsDefaults(t *testing.T) {
	svc := &fakeService{result: trends.NewTrendResult()}
	status, _ := do(t, newTestApp(svc), "/api/v1/trends?keywords=test")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, trends.DefaultOptions(), svc.opts)
}

func TestFetchTrendsStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
		called bool
	}{
		{"invalid options", "/api/v1/trends", fmt.Errorf("%w: no keywords", trends.ErrInvalidOptions), http.StatusBadRequest, true},
		{"unknown identity", "/api/v1/trends?keywords=a&identity=x", fmt.Errorf("%w: x", trends.ErrUnknownIdentity), http.StatusBadRequest, true},
		{"fetch failed", "/api/v1/trends?keywords=a", &trends.FetchError{Cycles: 3}, http.StatusBadGateway, true},
		{"deadline", "/api/v1/trends?keywords=a", context.DeadlineExceeded, http.StatusGatewayTimeout, true},
		{"non-numeric retries", "/api/v1/trends?keywords=a&max_retries=many", nil, http.StatusBadRequest, false},
		{"bad locale", "/api/v1/trends?keywords=a&hl=%21%21", nil, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			status, body := do(t, newTestApp(svc), tt.target)

			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, tt.called, svc.calls == 1)
		})
	}
}

func TestSplitKeywords(t *testing.T) {
	assert.Nil(t, splitKeywords(""))
	assert.Equal(t, []string{"a", "b c"}, splitKeywords("a, b c"))
	assert.Equal(t, []string{"a", ""}, splitKeywords("a,"))
}
