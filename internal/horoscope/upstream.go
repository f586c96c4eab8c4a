package horoscope

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danrleybayoshi/horoscopo/internal/router"
	"github.com/danrleybayoshi/horoscopo/internal/tracing"
	"github.com/danrleybayoshi/horoscopo/internal/version"
)

// maxResponseSize caps how much of a provider body is read.
const maxResponseSize = 1 << 20

// NewHTTPClient returns the shared client used for provider lookups. It has
// no overall timeout; each attempt carries its provider's deadline in the
// request context instead.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// buildRequest constructs the lookup request for p. The credential goes in
// the provider's key header, or in its key query parameter when one is
// configured.
func buildRequest(ctx context.Context, p *router.Provider, q Query) (*http.Request, error) {
	endpoint := strings.TrimRight(p.BaseURL, "/") + "/" + strings.TrimLeft(p.Path, "/")
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing provider url %q: %w", endpoint, err)
	}

	params := u.Query()
	for k, v := range p.Params {
		params.Set(k, v)
	}
	params.Set(p.SignParam, q.Sign)
	if q.Timeframe != "" {
		params.Set(p.TimeframeParam, q.Timeframe)
	}
	if q.Language != "" {
		params.Set("lang", q.Language)
	}
	if p.KeyParam != "" {
		params.Set(p.KeyParam, p.Credential)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating provider request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if p.KeyHeader != "" {
		req.Header.Set(p.KeyHeader, p.Credential)
	}
	if p.HostHeader != "" {
		req.Header.Set("X-RapidAPI-Host", p.HostHeader)
	}

	tracing.InjectHeaders(ctx, req)
	return req, nil
}
