package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// WidgetToken is what phase 1 yields for the related-queries widget.
type WidgetToken struct {
	Token   string
	Request json.RawMessage
}

type exploreResponse struct {
	Widgets []exploreWidget `json:"widgets"`
}

type exploreWidget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

// FetchToken runs phase 1: up to maxRetries explore calls, each preceded by
// the token delay, until one yields a complete RELATED_QUERIES widget.
// Exhaustion returns a *PhaseError and a nil token.
func (c *Client) FetchToken(ctx context.Context, sess *Session, q ExploreQuery, maxRetries int) (*WidgetToken, error) {
	retry := NewFixedRetry(maxRetries, c.delays.Token, c.sleep)
	log := c.log.WithFields(map[string]interface{}{
		"phase":    PhaseToken,
		"identity": sess.Identity,
	})

	var token *WidgetToken
	attempts, err := retry.Execute(ctx, func(attempt int) error {
		fail := func(kind FailureKind, status int, err error) error {
			attemptErr := &AttemptError{
				Phase:       PhaseToken,
				Attempt:     attempt,
				MaxAttempts: retry.MaxAttempts(),
				Kind:        kind,
				StatusCode:  status,
				Err:         err,
			}
			log.WithError(attemptErr).WithFields(map[string]interface{}{
				"attempt":     attempt,
				"max_retries": retry.MaxAttempts(),
			}).Warn("Token attempt failed, retrying")
			return attemptErr
		}

		// Rebuilt per attempt.
		rawURL := c.endpoints.Explore + "?" + BuildPayload(q).Encode()
		resp, err := c.transport.Get(ctx, sess.request(rawURL))
		if err != nil {
			return fail(KindTransport, 0, err)
		}
		sess.absorb(resp.Cookies)
		if resp.StatusCode != http.StatusOK {
			return fail(KindStatus, resp.StatusCode, nil)
		}

		var explore exploreResponse
		if err := decodeGuarded(resp.Body, explorePrefixLen, &explore); err != nil {
			return fail(KindDecode, resp.StatusCode, err)
		}

		found, err := relatedQueriesWidget(explore.Widgets)
		if err != nil {
			return fail(KindIncomplete, resp.StatusCode, err)
		}
		token = found
		return nil
	})
	if err != nil {
		if ClassifyError(err) == SeverityFatal {
			return nil, err
		}
		log.WithError(err).WithField("max_retries", retry.MaxAttempts()).Error("Token phase exhausted")
		return nil, &PhaseError{Phase: PhaseToken, Identity: sess.Identity, Attempts: attempts, Last: err}
	}

	c.secure.WithToken(token.Token).WithFields(map[string]interface{}{
		"identity": sess.Identity,
		"attempts": attempts,
	}).Debug("Widget token acquired")
	return token, nil
}

// relatedQueriesWidget picks the last RELATED_QUERIES widget carrying both a
// token and a request descriptor. Incomplete matches are skipped; if none is
// complete the error describes the last incomplete one.
func relatedQueriesWidget(widgets []exploreWidget) (*WidgetToken, error) {
	var found *WidgetToken
	missing := errMissingToken
	for _, w := range widgets {
		if w.ID != RelatedQueriesWidgetID {
			continue
		}
		switch {
		case w.Token == "":
			missing = errMissingToken
		case isEmptyJSON(w.Request):
			missing = errMissingRequest
		default:
			found = &WidgetToken{Token: w.Token, Request: w.Request}
		}
	}
	if found == nil {
		return nil, missing
	}
	return found, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}
