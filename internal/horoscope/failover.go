// Package horoscope fetches readings from an ordered list of third-party
// providers, failing over to the next provider when one cannot serve the
// request.
package horoscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/danrleybayoshi/horoscopo/internal/router"
	"github.com/danrleybayoshi/horoscopo/internal/tracing"
)

// Timeframes accepted by the providers.
const (
	TimeframeDaily   = "daily"
	TimeframeWeekly  = "weekly"
	TimeframeMonthly = "monthly"
)

// Reading is a horoscope text tagged with the provider that served it.
type Reading struct {
	Sign      string    `json:"sign"`
	Text      string    `json:"text"`
	Provider  string    `json:"provider"`
	Timeframe string    `json:"timeframe"`
	Language  string    `json:"language,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Query is one lookup. Sign is passed through to providers unvalidated.
type Query struct {
	Sign      string
	Timeframe string
	Language  string
}

// Attempt records the result of sending one request to one provider.
type Attempt struct {
	Provider   string
	Outcome    Outcome
	StatusCode int
	Latency    time.Duration
	RetryAfter time.Duration
	Err        error
}

// Recorder receives attempt and lookup results. Implementations must be
// safe for concurrent use.
type Recorder interface {
	RecordAttempt(a Attempt)
	RecordLookup(provider string, err error, latency time.Duration)
}

// FailoverClient tries providers in priority order until one returns a
// reading. Providers that answer 401, 403 or 429 are disabled for the rest
// of the process lifetime.
type FailoverClient struct {
	router   *router.Router
	client   *http.Client
	logger   zerolog.Logger
	recorder Recorder
}

// NewFailoverClient creates a client over rtr. A nil httpClient uses
// NewHTTPClient; a nil recorder discards results.
func NewFailoverClient(rtr *router.Router, httpClient *http.Client, logger zerolog.Logger, rec Recorder) *FailoverClient {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &FailoverClient{
		router:   rtr,
		client:   httpClient,
		logger:   logger.With().Str("component", "failover").Logger(),
		recorder: rec,
	}
}

// Router returns the provider registry the client draws from.
func (c *FailoverClient) Router() *router.Router {
	return c.router
}

// Fetch returns today's reading for sign.
func (c *FailoverClient) Fetch(ctx context.Context, sign string) (*Reading, error) {
	return c.FetchQuery(ctx, Query{Sign: sign, Timeframe: TimeframeDaily})
}

// FetchQuery walks the candidate list once. Blank-credential and disabled
// providers are skipped without a request; the first successful decode is
// returned. If nothing succeeds the result is ErrAllProvidersExhausted. A
// cancelled ctx stops the walk and returns the context error.
func (c *FailoverClient) FetchQuery(ctx context.Context, q Query) (*Reading, error) {
	if q.Timeframe == "" {
		q.Timeframe = TimeframeDaily
	}

	ctx, span := tracing.StartLookupSpan(ctx, q.Sign, q.Timeframe)
	defer span.End()

	start := time.Now()
	logger := c.logger.With().Str("sign", q.Sign).Str("timeframe", q.Timeframe).Logger()

	for _, p := range c.router.Candidates() {
		if err := ctx.Err(); err != nil {
			c.recorder.RecordLookup("", err, time.Since(start))
			return nil, fmt.Errorf("horoscope: lookup cancelled: %w", err)
		}

		if !p.HasCredential() {
			logger.Debug().Str("provider", p.Name).Msg("skipping provider with blank credential")
			c.recorder.RecordAttempt(Attempt{Provider: p.Name, Outcome: OutcomeSkipped})
			continue
		}
		if p.Disabled() {
			logger.Debug().Str("provider", p.Name).Msg("skipping disabled provider")
			c.recorder.RecordAttempt(Attempt{Provider: p.Name, Outcome: OutcomeSkipped})
			continue
		}

		reading, att := c.attempt(ctx, p, q)
		c.recorder.RecordAttempt(att)

		switch att.Outcome {
		case OutcomeSuccess:
			logger.Info().Str("provider", p.Name).Dur("latency", att.Latency).Msg("horoscope served")
			tracing.SetReadingAttributes(ctx, p.Name, len(reading.Text))
			c.recorder.RecordLookup(p.Name, nil, time.Since(start))
			return reading, nil
		case OutcomeCredentialOrQuota:
			ev := logger.Warn().Str("provider", p.Name).Int("status", att.StatusCode)
			if att.RetryAfter > 0 {
				ev = ev.Dur("retry_after", att.RetryAfter)
			}
			ev.Msg("provider rejected credential or quota; disabled, failing over")
		case OutcomeHTTPError:
			logger.Warn().Str("provider", p.Name).Int("status", att.StatusCode).Msg("provider returned error status, failing over")
		default:
			logger.Warn().Err(att.Err).Str("provider", p.Name).Msg("provider transport failure, failing over")
		}
	}

	// The last attempt may have failed only because ctx ended under it.
	if err := ctx.Err(); err != nil {
		c.recorder.RecordLookup("", err, time.Since(start))
		return nil, fmt.Errorf("horoscope: lookup cancelled: %w", err)
	}

	logger.Error().Dur("elapsed", time.Since(start)).Msg("all horoscope providers exhausted")
	tracing.RecordError(ctx, ErrAllProvidersExhausted)
	c.recorder.RecordLookup("", ErrAllProvidersExhausted, time.Since(start))
	return nil, ErrAllProvidersExhausted
}

// FetchFrom sends a single request to the named provider without failover
// and returns its failure directly as an *AttemptError. Credential and
// quota rejections still disable the provider. Every call is reported to
// the recorder as one lookup.
func (c *FailoverClient) FetchFrom(ctx context.Context, name string, q Query) (*Reading, error) {
	start := time.Now()
	reading, err := c.fetchFrom(ctx, name, q)
	switch {
	case err == nil:
		c.recorder.RecordLookup(name, nil, time.Since(start))
	case ctx.Err() != nil:
		c.recorder.RecordLookup("", ctx.Err(), time.Since(start))
	default:
		c.recorder.RecordLookup("", err, time.Since(start))
	}
	return reading, err
}

func (c *FailoverClient) fetchFrom(ctx context.Context, name string, q Query) (*Reading, error) {
	p, ok := c.router.Get(name)
	if !ok {
		return nil, fmt.Errorf("horoscope: %w: %q", ErrUnknownProvider, name)
	}
	if !p.Usable() {
		return nil, &AttemptError{Provider: name, Outcome: OutcomeSkipped, Err: ErrProviderUnusable}
	}
	if q.Timeframe == "" {
		q.Timeframe = TimeframeDaily
	}

	reading, att := c.attempt(ctx, p, q)
	c.recorder.RecordAttempt(att)
	if att.Outcome != OutcomeSuccess {
		return nil, &AttemptError{Provider: name, Outcome: att.Outcome, StatusCode: att.StatusCode, Err: att.Err}
	}
	c.logger.Info().Str("provider", name).Str("sign", q.Sign).Dur("latency", att.Latency).Msg("horoscope served by requested provider")
	return reading, nil
}

// attempt issues exactly one request to p and classifies the result.
func (c *FailoverClient) attempt(ctx context.Context, p *router.Provider, q Query) (*Reading, Attempt) {
	att := Attempt{Provider: p.Name}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	ctx, span := tracing.StartAttemptSpan(ctx, p.Name, p.BaseURL)
	defer span.End()

	req, err := buildRequest(ctx, p, q)
	if err != nil {
		att.Outcome = OutcomeTransient
		att.Err = fmt.Errorf("%w: %v", ErrTransport, err)
		att.Latency = time.Since(start)
		return nil, att
	}

	resp, err := c.client.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		att.Outcome = OutcomeTransient
		att.Err = fmt.Errorf("%w: %v", ErrTransport, err)
		att.Latency = time.Since(start)
		return nil, att
	}
	defer resp.Body.Close()

	att.StatusCode = resp.StatusCode
	tracing.SetAttemptStatus(ctx, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		att.Outcome = classifyStatus(resp.StatusCode)
		if att.Outcome == OutcomeCredentialOrQuota {
			p.Disable()
			att.RetryAfter = retryAfterDuration(resp)
			att.Err = ErrCredentialOrQuota
		} else {
			att.Err = ErrUpstreamStatus
		}
		att.Latency = time.Since(start)
		return nil, att
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		att.Outcome = OutcomeTransient
		att.Err = fmt.Errorf("%w: reading body: %v", ErrTransport, err)
		att.Latency = time.Since(start)
		return nil, att
	}

	reading, err := decodeReading(p.Format, body, q.Sign)
	if err != nil {
		att.Outcome = OutcomeTransient
		att.Err = fmt.Errorf("%w: %v", ErrTransport, err)
		att.Latency = time.Since(start)
		return nil, att
	}

	reading.Provider = p.Name
	reading.Timeframe = q.Timeframe
	if reading.Language == "" {
		reading.Language = q.Language
	}
	reading.FetchedAt = time.Now().UTC()

	att.Outcome = OutcomeSuccess
	att.Latency = time.Since(start)
	return reading, att
}

// IsExhausted reports whether err is the aggregate failure from Fetch.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrAllProvidersExhausted)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(Attempt)                    {}
func (nopRecorder) RecordLookup(string, error, time.Duration) {}
