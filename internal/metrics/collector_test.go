package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danrleybayoshi/horoscopo/internal/horoscope"
	"github.com/danrleybayoshi/horoscopo/internal/router"
)

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector()

	stats := c.Stats()
	if stats.Lookups != 0 {
		t.Errorf("Lookups: got %d, want 0", stats.Lookups)
	}
	if stats.SuccessRate != 0 {
		t.Errorf("SuccessRate: got %f, want 0", stats.SuccessRate)
	}
	if stats.ActiveRequests != 0 {
		t.Errorf("ActiveRequests: got %d, want 0", stats.ActiveRequests)
	}
}

func TestCollector_RecordAttempt(t *testing.T) {
	c := NewCollector()

	c.RecordAttempt(horoscope.Attempt{Provider: "a", Outcome: horoscope.OutcomeCredentialOrQuota, StatusCode: 429})
	c.RecordAttempt(horoscope.Attempt{Provider: "b", Outcome: horoscope.OutcomeSkipped})
	c.RecordAttempt(horoscope.Attempt{Provider: "c", Outcome: horoscope.OutcomeTransient})
	c.RecordAttempt(horoscope.Attempt{Provider: "d", Outcome: horoscope.OutcomeHTTPError, StatusCode: 500})
	c.RecordAttempt(horoscope.Attempt{Provider: "e", Outcome: horoscope.OutcomeSuccess, Latency: 20 * time.Millisecond})

	stats := c.Stats()
	if stats.Attempts != 4 {
		t.Errorf("Attempts: got %d, want 4 (skips excluded)", stats.Attempts)
	}
	if stats.Skipped != 1 || stats.CredentialRejects != 1 || stats.TransientFailures != 1 || stats.HTTPErrors != 1 {
		t.Errorf("outcome counters wrong: %+v", stats)
	}

	got := promtest.ToFloat64(c.prom.attempts.WithLabelValues("a", "credential_or_quota"))
	if got != 1 {
		t.Errorf("prometheus attempts{a,credential_or_quota}: got %v, want 1", got)
	}
}

func TestCollector_RecordLookup(t *testing.T) {
	c := NewCollector()

	c.RecordLookup("principal", nil, 100*time.Millisecond)
	c.RecordLookup("respaldo-1", nil, 300*time.Millisecond)
	c.RecordLookup("", horoscope.ErrAllProvidersExhausted, time.Second)
	c.RecordLookup("", fmt.Errorf("lookup cancelled: %w", context.Canceled), time.Millisecond)

	stats := c.Stats()
	if stats.Lookups != 4 {
		t.Errorf("Lookups: got %d, want 4", stats.Lookups)
	}
	if stats.Served != 2 || stats.Exhausted != 1 || stats.Cancelled != 1 {
		t.Errorf("served/exhausted/cancelled: got %d/%d/%d", stats.Served, stats.Exhausted, stats.Cancelled)
	}
	if stats.SuccessRate != 50 {
		t.Errorf("SuccessRate: got %f, want 50", stats.SuccessRate)
	}
	if stats.AvgServedLatencyMs != 200 {
		t.Errorf("AvgServedLatencyMs: got %f, want 200", stats.AvgServedLatencyMs)
	}

	if got := promtest.ToFloat64(c.prom.lookups.WithLabelValues("exhausted", "")); got != 1 {
		t.Errorf("prometheus lookups{exhausted}: got %v, want 1", got)
	}
}

func TestCollector_RecordLookup_SingleProviderFailure(t *testing.T) {
	c := NewCollector()

	c.RecordLookup("", &horoscope.AttemptError{Provider: "a", Outcome: horoscope.OutcomeHTTPError, StatusCode: 500, Err: horoscope.ErrUpstreamStatus}, time.Millisecond)

	stats := c.Stats()
	if stats.Lookups != 1 || stats.Failed != 1 || stats.Exhausted != 0 {
		t.Errorf("lookups/failed/exhausted: got %d/%d/%d, want 1/1/0", stats.Lookups, stats.Failed, stats.Exhausted)
	}
	if got := promtest.ToFloat64(c.prom.lookups.WithLabelValues("failed", "")); got != 1 {
		t.Errorf("prometheus lookups{failed}: got %v, want 1", got)
	}
}

func TestCollector_RecordRewrite(t *testing.T) {
	c := NewCollector()

	c.RecordRewrite(false, nil)
	c.RecordRewrite(true, nil)
	c.RecordRewrite(true, nil)
	c.RecordRewrite(false, fmt.Errorf("boom"))

	stats := c.Stats()
	if stats.Rewrites != 4 {
		t.Errorf("Rewrites: got %d, want 4", stats.Rewrites)
	}
	if stats.RewriteCacheHits != 2 {
		t.Errorf("RewriteCacheHits: got %d, want 2", stats.RewriteCacheHits)
	}
	if stats.RewriteFailures != 1 {
		t.Errorf("RewriteFailures: got %d, want 1", stats.RewriteFailures)
	}
	if stats.RewriteCacheHitRate != 50 {
		t.Errorf("RewriteCacheHitRate: got %f, want 50", stats.RewriteCacheHitRate)
	}
}

func TestCollector_ActiveRequests(t *testing.T) {
	c := NewCollector()

	c.IncrementActive()
	c.IncrementActive()
	c.DecrementActive()

	if got := c.Stats().ActiveRequests; got != 1 {
		t.Errorf("ActiveRequests: got %d, want 1", got)
	}
	if got := promtest.ToFloat64(c.prom.active); got != 1 {
		t.Errorf("prometheus active gauge: got %v, want 1", got)
	}
}

func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordAttempt(horoscope.Attempt{Provider: "a", Outcome: horoscope.OutcomeSuccess})
			c.RecordLookup("a", nil, time.Millisecond)
		}()
	}
	wg.Wait()

	stats := c.Stats()
	if stats.Lookups != 100 || stats.Attempts != 100 {
		t.Errorf("concurrent counts: lookups=%d attempts=%d, want 100/100", stats.Lookups, stats.Attempts)
	}
}

func TestHandler_ExposesProviderState(t *testing.T) {
	ps := []*router.Provider{
		router.NewProvider(router.ProviderConfig{Name: "principal", BaseURL: "https://a", Credential: "k"}),
		router.NewProvider(router.ProviderConfig{Name: "respaldo-1", BaseURL: "https://b"}),
	}
	rtr, err := router.New(ps)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	ps[0].Disable()

	c := NewCollector()
	if err := c.WatchProviders(rtr); err != nil {
		t.Fatalf("WatchProviders: %v", err)
	}
	c.RecordLookup("", horoscope.ErrAllProvidersExhausted, time.Second)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`horoscopo_provider_disabled{provider="principal"} 1`,
		`horoscopo_provider_disabled{provider="respaldo-1"} 0`,
		`horoscopo_provider_has_credential{provider="respaldo-1"} 0`,
		`horoscopo_providers_available 0`,
		`horoscopo_lookups_total{provider="",result="exhausted"} 1`,
		`horoscopo_uptime_seconds`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{49 * time.Hour, "2d 1h"},
		{2 * time.Hour, "2h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
