package trends

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	TagTop    = "TOP"
	TagRising = "RISING"
)

// TrendResult holds related queries by bucket, query → value.
type TrendResult struct {
	Top    map[string]float64 `json:"TOP"`
	Rising map[string]float64 `json:"RISING"`
}

func NewTrendResult() *TrendResult {
	return &TrendResult{
		Top:    make(map[string]float64),
		Rising: make(map[string]float64),
	}
}

// Bucket returns the map for an upper-case tag, or nil for any other tag.
func (r *TrendResult) Bucket(tag string) map[string]float64 {
	switch tag {
	case TagTop:
		return r.Top
	case TagRising:
		return r.Rising
	default:
		return nil
	}
}

// Len is the number of entries across both buckets.
func (r *TrendResult) Len() int {
	return len(r.Top) + len(r.Rising)
}

// RankedEntry is one rankedKeyword element. Value and Link are pointers so
// that absent fields can be told apart from zero values.
type RankedEntry struct {
	Query string   `json:"query"`
	Value *float64 `json:"value"`
	Link  *string  `json:"link"`
}

type rankedGroup struct {
	RankedKeyword []RankedEntry `json:"rankedKeyword"`
}

// Tag extracts the classification tag from a related-query link: the text
// after the last '=', cut at the first '&', upper-cased.
func Tag(link string) string {
	tag := link[strings.LastIndex(link, "=")+1:]
	if i := strings.IndexByte(tag, '&'); i >= 0 {
		tag = tag[:i]
	}
	return cases.Upper(language.Und).String(tag)
}

// Classify sorts every entry of every ranked-list group into the TOP or
// RISING bucket by its link tag. Entries without a query, without a value,
// without a link or with any other tag are dropped. A later entry for the
// same query and tag overwrites an earlier one.
//
// An error means the groups do not have the expected shape.
func Classify(rankedList []json.RawMessage) (*TrendResult, error) {
	result := NewTrendResult()

	for i, raw := range rankedList {
		var group rankedGroup
		if err := json.Unmarshal(raw, &group); err != nil {
			return nil, fmt.Errorf("ranked list group %d: %w", i, err)
		}
		for _, entry := range group.RankedKeyword {
			if entry.Query == "" || entry.Value == nil || entry.Link == nil {
				continue
			}
			if bucket := result.Bucket(Tag(*entry.Link)); bucket != nil {
				bucket[entry.Query] = *entry.Value
			}
		}
	}

	return result, nil
}
