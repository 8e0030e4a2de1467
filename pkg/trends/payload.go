package trends

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultTimeframe = "now 1-H"
	DefaultLocale    = "en-US"
	// Timezone offset in minutes sent on both phases; 0 is UTC.
	DefaultTimezone = "0"

	RelatedQueriesWidgetID = "RELATED_QUERIES"

	paramLocale   = "hl"
	paramTimezone = "tz"
	paramRequest  = "req"
	paramToken    = "token"
)

type ComparisonItem struct {
	Keyword string `json:"keyword"`
	Time    string `json:"time"`
	Geo     string `json:"geo"`
}

// ExploreRequest is the JSON document carried in the explore call's req
// parameter.
type ExploreRequest struct {
	ComparisonItems []ComparisonItem `json:"comparisonItem"`
	Category        int              `json:"category"`
	Property        string           `json:"property"`
}

// ExploreQuery is what the caller asks about. Keywords are sent verbatim.
type ExploreQuery struct {
	Keywords  []string
	Timeframe string
	Geo       string
	Locale    string
}

// NewExploreRequest builds one comparison item per keyword, in order, all
// sharing timeframe and geo.
func NewExploreRequest(keywords []string, timeframe, geo string) ExploreRequest {
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	items := make([]ComparisonItem, len(keywords))
	for i, kw := range keywords {
		items[i] = ComparisonItem{Keyword: kw, Time: timeframe, Geo: geo}
	}
	return ExploreRequest{
		ComparisonItems: items,
		Category:        0,
		Property:        "",
	}
}

// BuildPayload returns the explore call's query parameters: hl, tz and req,
// req being the JSON-serialized ExploreRequest.
func BuildPayload(q ExploreQuery) url.Values {
	locale := q.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Only strings and ints: encoding cannot fail.
	_ = enc.Encode(NewExploreRequest(q.Keywords, q.Timeframe, q.Geo))

	return url.Values{
		paramLocale:   {locale},
		paramTimezone: {DefaultTimezone},
		paramRequest:  {string(bytes.TrimRight(buf.Bytes(), "\n"))},
	}
}

// TimeframeForDays renders an explicit "YYYY-MM-DD YYYY-MM-DD" range covering
// the last days days up to now (UTC).
func TimeframeForDays(days int, now time.Time) string {
	end := now.UTC()
	start := end.AddDate(0, 0, -days)
	return fmt.Sprintf("%s %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
}
