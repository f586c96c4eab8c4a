// Package rewrite sends horoscope text through a third-party rewrite and
// translation API.
package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/danrleybayoshi/horoscopo/internal/cache"
	"github.com/danrleybayoshi/horoscopo/internal/tracing"
	"github.com/danrleybayoshi/horoscopo/internal/version"
)

var (
	// ErrNotConfigured means no base URL or key is set.
	ErrNotConfigured = errors.New("rewrite: not configured")
	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("rewrite: empty text")
	// ErrEmptyRewrite means the API answered without rewritten text.
	ErrEmptyRewrite = errors.New("rewrite: response has no rewrite")
	// ErrRateLimited means the local quota guard could not grant a slot in
	// time.
	ErrRateLimited = errors.New("rewrite: local rate limit exceeded")
)

// StatusError is a non-2xx answer from the rewrite API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "rewrite: api returned status " + strconv.Itoa(e.StatusCode)
}

// Config holds the rewrite API settings.
type Config struct {
	BaseURL           string
	Key               string
	Host              string
	Strength          int
	DefaultLanguage   string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxWait           time.Duration
}

// Result is one rewrite.
type Result struct {
	Rewrite  string `json:"rewrite"`
	Original string `json:"original"`
	Language string `json:"language"`
	Cached   bool   `json:"cached"`
}

type requestBody struct {
	Language string `json:"language"`
	Strength int    `json:"strength"`
	Text     string `json:"text"`
}

type responseBody struct {
	Rewrite  string `json:"rewrite"`
	Original string `json:"original"`
	Language string `json:"language"`
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  zerolog.Logger
}

// New creates a rewrite client. c may be nil to disable caching.
func New(cfg Config, c *cache.Cache, httpClient *http.Client, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Strength <= 0 {
		cfg.Strength = 3
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "es"
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = cfg.RequestsPerMinute
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		cache:   c,
		logger:  logger.With().Str("component", "rewrite").Logger(),
	}
}

// Enabled reports whether the client has an endpoint and a key.
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.cfg.BaseURL) != "" && strings.TrimSpace(c.cfg.Key) != ""
}

// Rewrite returns text rewritten into language (the default language when
// empty). Results are cached by language, strength and text.
func (c *Client) Rewrite(ctx context.Context, text, language string) (*Result, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if language == "" {
		language = c.cfg.DefaultLanguage
	}

	key := cache.Key(language, strconv.Itoa(c.cfg.Strength), text)
	if c.cache != nil {
		if raw, ok := c.cache.Get(key); ok {
			var res Result
			if err := json.Unmarshal(raw, &res); err == nil {
				res.Cached = true
				return &res, nil
			}
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()
	if err := c.limiter.Wait(waitCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	res, err := c.call(ctx, text, language)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(res); err == nil {
			c.cache.Set(key, raw)
		}
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, text, language string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	ctx, span := tracing.StartRewriteSpan(ctx, language, c.cfg.Strength)
	defer span.End()

	payload, err := json.Marshal(requestBody{Language: language, Strength: c.cfg.Strength, Text: text})
	if err != nil {
		return nil, fmt.Errorf("rewrite: encoding request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/rewrite"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("rewrite: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("x-rapidapi-key", c.cfg.Key)
	if c.cfg.Host != "" {
		req.Header.Set("x-rapidapi-host", c.cfg.Host)
	}
	tracing.InjectHeaders(ctx, req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("rewrite: sending request: %w", err)
	}
	defer resp.Body.Close()

	tracing.SetAttemptStatus(ctx, resp.StatusCode)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("rewrite: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("rewrite api error")
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var rb responseBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return nil, fmt.Errorf("rewrite: decoding response: %w", err)
	}
	if strings.TrimSpace(rb.Rewrite) == "" {
		return nil, ErrEmptyRewrite
	}
	if rb.Language == "" {
		rb.Language = language
	}
	if rb.Original == "" {
		rb.Original = text
	}

	c.logger.Debug().Str("language", rb.Language).Dur("latency", time.Since(start)).Msg("rewrite complete")
	return &Result{Rewrite: rb.Rewrite, Original: rb.Original, Language: rb.Language}, nil
}
