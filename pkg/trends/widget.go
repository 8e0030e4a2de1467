package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type widgetDataResponse struct {
	Default *struct {
		RankedList []json.RawMessage `json:"rankedList"`
	} `json:"default"`
}

// EncodeWidgetRequest compacts the phase-1 request descriptor, keeping its
// key order, and percent-encodes it for the req parameter. ':', ',' and '+'
// stay literal: the provider's parser needs them.
func EncodeWidgetRequest(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("compact widget request: %w", err)
	}
	return escapePreserving(buf.String(), ":,+"), nil
}

// escapePreserving percent-encodes every byte of s except RFC 3986
// unreserved characters and those in keep.
func escapePreserving(s, keep string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) || strings.IndexByte(keep, ch) >= 0 {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0f])
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	case ch == '-', ch == '.', ch == '_', ch == '~':
		return true
	}
	return false
}

func (c *Client) widgetDataURL(token *WidgetToken, locale string) (string, error) {
	encoded, err := EncodeWidgetRequest(token.Request)
	if err != nil {
		return "", err
	}
	if locale == "" {
		locale = DefaultLocale
	}
	// Assembled by hand: url.Values would re-escape the preserved characters.
	return fmt.Sprintf("%s?%s=%s&%s=%s&%s=%s&%s=%s",
		c.endpoints.WidgetData,
		paramLocale, url.QueryEscape(locale),
		paramTimezone, DefaultTimezone,
		paramRequest, encoded,
		paramToken, url.QueryEscape(token.Token),
	), nil
}

// FetchWidgetData runs phase 2: up to maxRetries widget-data calls, each
// preceded by the widget delay, until one yields a non-empty ranked list that
// classifies cleanly. Exhaustion returns a *PhaseError and a nil result,
// never an empty TrendResult.
func (c *Client) FetchWidgetData(ctx context.Context, sess *Session, token *WidgetToken, locale string, maxRetries int) (*TrendResult, error) {
	retry := NewFixedRetry(maxRetries, c.delays.Widget, c.sleep)
	log := c.log.WithFields(map[string]interface{}{
		"phase":    PhaseWidget,
		"identity": sess.Identity,
	})

	var result *TrendResult
	attempts, err := retry.Execute(ctx, func(attempt int) error {
		fail := func(kind FailureKind, status int, err error) error {
			attemptErr := &AttemptError{
				Phase:       PhaseWidget,
				Attempt:     attempt,
				MaxAttempts: retry.MaxAttempts(),
				Kind:        kind,
				StatusCode:  status,
				Err:         err,
			}
			log.WithError(attemptErr).WithFields(map[string]interface{}{
				"attempt":     attempt,
				"max_retries": retry.MaxAttempts(),
			}).Warn("Widget data attempt failed, retrying")
			return attemptErr
		}

		rawURL, err := c.widgetDataURL(token, locale)
		if err != nil {
			return fail(KindIncomplete, 0, err)
		}
		c.secure.WithURL(rawURL).WithField("attempt", attempt).Debug("Requesting widget data")

		resp, err := c.transport.Get(ctx, sess.request(rawURL))
		if err != nil {
			return fail(KindTransport, 0, err)
		}
		sess.absorb(resp.Cookies)
		if resp.StatusCode != http.StatusOK {
			return fail(KindStatus, resp.StatusCode, nil)
		}

		var data widgetDataResponse
		if err := decodeGuarded(resp.Body, widgetDataPrefixLen, &data); err != nil {
			return fail(KindDecode, resp.StatusCode, err)
		}
		if data.Default == nil || len(data.Default.RankedList) == 0 {
			return fail(KindIncomplete, resp.StatusCode, errEmptyRankedList)
		}

		classified, err := Classify(data.Default.RankedList)
		if err != nil {
			return fail(KindClassify, resp.StatusCode, err)
		}
		result = classified
		return nil
	})
	if err != nil {
		if ClassifyError(err) == SeverityFatal {
			return nil, err
		}
		log.WithError(err).WithField("max_retries", retry.MaxAttempts()).Error("Widget data phase exhausted")
		return nil, &PhaseError{Phase: PhaseWidget, Identity: sess.Identity, Attempts: attempts, Last: err}
	}

	log.WithFields(map[string]interface{}{
		"attempts": attempts,
		"top":      len(result.Top),
		"rising":   len(result.Rising),
	}).Info("Widget data fetched")
	return result, nil
}
