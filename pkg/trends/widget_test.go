package trends

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trends-go/pkg/transport"
)

func TestEncodeWidgetRequestRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{
		"restriction": {"geo": {}, "time": "now 1-H", "originalTimeRangeForExploreUrl": "now 1-H",
			"complexKeywordsRestriction": {"keyword": [{"type": "BROAD", "value": "a b/c?d&e=f+g"}]}},
		"keywordType": "QUERY",
		"metric": ["TOP", "RISING"],
		"trendinessSettings": {"compareTime": "2024-01-01T00 2024-01-01T01"},
		"requestOptions": {"property": "", "backend": "CM", "category": 0},
		"language": "en", "userCountryCode": "DE", "note": "ünïcode"
	}`)

	encoded, err := EncodeWidgetRequest(raw)
	require.NoError(t, err)

	// preserved literals
	assert.Contains(t, encoded, ":")
	assert.Contains(t, encoded, ",")
	assert.Contains(t, encoded, "f+g")
	for _, ch := range []string{"{", "}", "\"", " ", "/", "?", "&", "=", "[", "]"} {
		assert.NotContains(t, encoded, ch)
	}

	decoded, err := url.PathUnescape(encoded)
	require.NoError(t, err)

	compacted, err := compactJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, compacted, decoded)
	assert.NotContains(t, decoded, "\n")
	assert.True(t, strings.HasPrefix(decoded, `{"restriction":{"geo":{}`), "key order must be preserved: %s", decoded)
}

func compactJSON(raw json.RawMessage) (string, error) {
	var v json.RawMessage
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func TestEncodeWidgetRequestRejectsInvalidJSON(t *testing.T) {
	_, err := EncodeWidgetRequest(json.RawMessage(`{"a":`))
	assert.Error(t, err)
}

func TestWidgetDataURL(t *testing.T) {
	client := newTestClient(newFakeProvider(), &sleepRecorder{})

	u, err := client.widgetDataURL(&WidgetToken{Token: "ABC123", Request: json.RawMessage(`{"foo": 1, "b": "x,y:z"}`)}, "en-US")
	require.NoError(t, err)
	assert.Equal(t, testEndpoints.WidgetData+`?hl=en-US&tz=0&req=%7B%22foo%22:1,%22b%22:%22x,y:z%22%7D&token=ABC123`, u)
}

func TestFetchWidgetDataSuccess(t *testing.T) {
	fake := newFakeProvider()
	rec := &sleepRecorder{}
	client := newTestClient(fake, rec)

	result, err := client.FetchWidgetData(context.Background(), testSession(),
		&WidgetToken{Token: "ABC123", Request: json.RawMessage(`{"foo":1}`)}, "en-US", 5)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"q1": 10}, result.Top)
	assert.Equal(t, map[string]float64{"q2": 5}, result.Rising)
	assert.Equal(t, []time.Duration{5 * time.Second}, rec.recorded())

	u, err := url.Parse(fake.calls[0].url)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", u.Query().Get("token"))
	assert.Equal(t, `{"foo":1}`, u.Query().Get("req"))
}

func TestFetchWidgetDataEmptyRankedListExhausts(t *testing.T) {
	fake := newFakeProvider()
	fake.widget = respond(200, WidgetDataGuard+`{"default":{"rankedList":[]}}`, nil)
	rec := &sleepRecorder{}
	client := newTestClient(fake, rec)

	result, err := client.FetchWidgetData(context.Background(), testSession(),
		&WidgetToken{Token: "ABC123", Request: json.RawMessage(`{"foo":1}`)}, "", 3)

	assert.Nil(t, result)
	var phaseErr *PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, PhaseWidget, phaseErr.Phase)
	assert.Equal(t, 3, phaseErr.Attempts)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, fake.count("widget"))
	assert.Len(t, rec.recorded(), 3)
}

func TestFetchWidgetDataRetriesBadShapes(t *testing.T) {
	bodies := []string{
		WidgetDataGuard + `{"default":{}}`,
		WidgetDataGuard + `{}`,
		WidgetDataGuard + `{"default":"x"}`,
		WidgetDataGuard + `{"default":{"rankedList":["oops"]}}`,
		ExploreGuard + `{"default":{"rankedList":[{}]}}`, // one guard byte short: the opening brace is cut
		widgetOKBody,
	}
	fake := newFakeProvider()
	fake.widget = func(n int, _ *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: 200, Body: []byte(bodies[n-1])}, nil
	}
	client := newTestClient(fake, &sleepRecorder{})

	result, err := client.FetchWidgetData(context.Background(), testSession(),
		&WidgetToken{Token: "T", Request: json.RawMessage(`{"foo":1}`)}, "", len(bodies))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Len())
	assert.Equal(t, len(bodies), fake.count("widget"))
}
