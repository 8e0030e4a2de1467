package trends

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trends-go/pkg/identity"
)

// Options tune one FetchTrends call. Start from DefaultOptions.
type Options struct {
	// DaysAgo is accepted and validated for callers that carry it, but it
	// does not change the request. Use RangeDays for a date range.
	DaysAgo int
	// RangeDays, when positive and Timeframe is empty, asks for an explicit
	// date range covering the last RangeDays days instead of the default
	// past hour.
	RangeDays int
	Timeframe string
	Geo       string
	Locale    string

	// MaxRetries bounds the attempts of each phase under one identity.
	MaxRetries    int
	StartIdentity identity.Identity
	// IdentitySwitchRetries is how many times the fetch may move to the next
	// identity; the fetch runs at most IdentitySwitchRetries+1 cycles.
	IdentitySwitchRetries int
}

func DefaultOptions() Options {
	return Options{
		Locale:                DefaultLocale,
		MaxRetries:            5,
		StartIdentity:         identity.DefaultIdentity,
		IdentitySwitchRetries: 2,
	}
}

func (c *Client) validate(keywords []string, opts Options) (Options, error) {
	if len(keywords) == 0 {
		return opts, fmt.Errorf("%w: at least one keyword is required", ErrInvalidOptions)
	}
	for i, kw := range keywords {
		if kw == "" {
			return opts, fmt.Errorf("%w: keyword %d is empty", ErrInvalidOptions, i)
		}
	}
	if opts.MaxRetries < 1 {
		return opts, fmt.Errorf("%w: max retries must be at least 1, got %d", ErrInvalidOptions, opts.MaxRetries)
	}
	if opts.IdentitySwitchRetries < 0 {
		return opts, fmt.Errorf("%w: identity switch retries must not be negative, got %d", ErrInvalidOptions, opts.IdentitySwitchRetries)
	}
	if opts.DaysAgo < 0 {
		return opts, fmt.Errorf("%w: days ago must not be negative, got %d", ErrInvalidOptions, opts.DaysAgo)
	}
	if opts.RangeDays < 0 {
		return opts, fmt.Errorf("%w: range days must not be negative, got %d", ErrInvalidOptions, opts.RangeDays)
	}

	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.StartIdentity == "" {
		opts.StartIdentity = identity.DefaultIdentity
	}
	if opts.Timeframe == "" {
		if opts.RangeDays > 0 {
			opts.Timeframe = TimeframeForDays(opts.RangeDays, c.now())
		} else {
			opts.Timeframe = DefaultTimeframe
		}
	}
	return opts, nil
}

type cycleState int

const (
	stateBootstrap cycleState = iota
	stateToken
	stateWidget
	stateDone
)

// FetchTrends is the entry point. It runs BOOTSTRAP → TOKEN → WIDGET under
// the start identity; when TOKEN or WIDGET exhausts its attempts it waits the
// switch delay, moves to the next identity in the catalog (wrapping) and
// starts over, for at most IdentitySwitchRetries+1 cycles. The first
// successful WIDGET step returns immediately. A bootstrap transport error is
// not retried or rotated: it ends the fetch at once.
//
// Errors are ErrInvalidOptions or ErrUnknownIdentity before any request, the
// context error on cancellation, or a *FetchError once the fetch failed.
func (c *Client) FetchTrends(ctx context.Context, keywords []string, opts Options) (*TrendResult, error) {
	opts, err := c.validate(keywords, opts)
	if err != nil {
		return nil, err
	}
	index, err := c.catalog.IndexOf(opts.StartIdentity)
	if err != nil {
		return nil, err
	}

	query := ExploreQuery{
		Keywords:  keywords,
		Timeframe: opts.Timeframe,
		Geo:       opts.Geo,
		Locale:    opts.Locale,
	}
	cycles := opts.IdentitySwitchRetries + 1
	log := c.log.WithFields(map[string]interface{}{
		"run_id":   uuid.NewString(),
		"keywords": len(keywords),
	})
	log.WithFields(map[string]interface{}{
		"start_identity": opts.StartIdentity,
		"max_cycles":     cycles,
		"max_retries":    opts.MaxRetries,
		"timeframe":      opts.Timeframe,
	}).Info("Starting trends fetch")

	tried := make([]identity.Identity, 0, cycles)
	var lastErr error
	for cycle := 0; cycle < cycles; cycle++ {
		if cycle > 0 {
			if err := c.sleep(ctx, c.delays.Switch); err != nil {
				return nil, err
			}
			index = c.catalog.Next(index)
			log.WithFields(map[string]interface{}{
				"identity": c.catalog.At(index),
				"cycle":    cycle + 1,
			}).Warn("Switching identity and retrying")
		}

		id := c.catalog.At(index)
		tried = append(tried, id)

		result, err := c.runCycle(ctx, id, query, opts.MaxRetries)
		if err == nil {
			log.WithFields(map[string]interface{}{
				"identity": id,
				"cycle":    cycle + 1,
			}).Info("Trends fetch succeeded")
			return result, nil
		}
		var phaseErr *PhaseError
		if errors.As(err, &phaseErr) && phaseErr.Phase == PhaseBootstrap && !isContextError(err) {
			fetchErr := &FetchError{Cycles: cycle + 1, Identities: tried, Last: err}
			log.WithError(err).WithField("identity", id).Error("Session bootstrap failed, not rotating")
			return nil, fetchErr
		}
		if ClassifyError(err) == SeverityFatal {
			return nil, err
		}
		lastErr = err
	}

	fetchErr := &FetchError{Cycles: cycles, Identities: tried, Last: lastErr}
	log.WithError(fetchErr).WithField("identity_switch_retries", opts.IdentitySwitchRetries).Error("Exceeded identity switch attempts")
	return nil, fetchErr
}

// runCycle drives one identity through the phase state machine. Any failure
// comes back as a *PhaseError unless it is fatal.
func (c *Client) runCycle(ctx context.Context, id identity.Identity, q ExploreQuery, maxRetries int) (*TrendResult, error) {
	var (
		sess   *Session
		token  *WidgetToken
		result *TrendResult
		err    error
	)

	for state := stateBootstrap; state != stateDone; {
		switch state {
		case stateBootstrap:
			if sess, err = c.Bootstrap(ctx, id, q.Locale); err != nil {
				return nil, &PhaseError{Phase: PhaseBootstrap, Identity: id, Attempts: 1, Last: err}
			}
			state = stateToken
		case stateToken:
			if token, err = c.FetchToken(ctx, sess, q, maxRetries); err != nil {
				return nil, err
			}
			state = stateWidget
		case stateWidget:
			if result, err = c.FetchWidgetData(ctx, sess, token, q.Locale, maxRetries); err != nil {
				return nil, err
			}
			state = stateDone
		}
	}
	return result, nil
}
