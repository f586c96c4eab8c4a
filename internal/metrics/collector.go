package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/danrleybayoshi/horoscopo/internal/horoscope"
)

// Collector tracks live metrics using atomic counters for lock-free,
// concurrent-safe updates, and mirrors them into Prometheus collectors. It
// implements horoscope.Recorder.
type Collector struct {
	lookups   int64
	served    int64
	exhausted int64
	failed    int64
	cancelled int64

	attempts   int64
	skipped    int64
	transient  int64
	quota      int64
	httpErrors int64

	rewrites         int64
	rewriteCacheHits int64
	rewriteFailures  int64

	activeRequests int64

	// Sum of latencies of served lookups, in nanoseconds.
	servedLatencyNs int64

	startTime time.Time
	prom      *promMetrics
}

// Stats is a point-in-time snapshot of the collector's counters,
// suitable for JSON serialisation.
type Stats struct {
	Uptime              string  `json:"uptime"`
	Lookups             int64   `json:"lookups"`
	Served              int64   `json:"served"`
	Exhausted           int64   `json:"exhausted"`
	Failed              int64   `json:"failed"`
	Cancelled           int64   `json:"cancelled"`
	SuccessRate         float64 `json:"success_rate"`
	AvgServedLatencyMs  float64 `json:"avg_served_latency_ms"`
	Attempts            int64   `json:"attempts"`
	Skipped             int64   `json:"skipped"`
	TransientFailures   int64   `json:"transient_failures"`
	CredentialRejects   int64   `json:"credential_or_quota_rejects"`
	HTTPErrors          int64   `json:"http_errors"`
	Rewrites            int64   `json:"rewrites"`
	RewriteCacheHits    int64   `json:"rewrite_cache_hits"`
	RewriteFailures     int64   `json:"rewrite_failures"`
	RewriteCacheHitRate float64 `json:"rewrite_cache_hit_rate"`
	ActiveRequests      int64   `json:"active_requests"`
}

// NewCollector creates a new Collector with all counters initialised to zero
// and the start time set to now.
func NewCollector() *Collector {
	c := &Collector{startTime: time.Now()}
	c.prom = newPromMetrics(c)
	return c
}

// RecordAttempt counts one provider attempt, including skips.
func (c *Collector) RecordAttempt(a horoscope.Attempt) {
	switch a.Outcome {
	case horoscope.OutcomeSkipped:
		atomic.AddInt64(&c.skipped, 1)
	case horoscope.OutcomeTransient:
		atomic.AddInt64(&c.transient, 1)
	case horoscope.OutcomeCredentialOrQuota:
		atomic.AddInt64(&c.quota, 1)
	case horoscope.OutcomeHTTPError:
		atomic.AddInt64(&c.httpErrors, 1)
	}
	if a.Outcome != horoscope.OutcomeSkipped {
		atomic.AddInt64(&c.attempts, 1)
	}
	c.prom.observeAttempt(a)
}

// RecordLookup counts one completed lookup. provider is empty unless the
// lookup was served. Exhaustion of the failover walk and the failure of a
// single-provider lookup are counted apart.
func (c *Collector) RecordLookup(provider string, err error, latency time.Duration) {
	atomic.AddInt64(&c.lookups, 1)

	result := "served"
	switch {
	case err == nil:
		atomic.AddInt64(&c.served, 1)
		atomic.AddInt64(&c.servedLatencyNs, int64(latency))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		atomic.AddInt64(&c.cancelled, 1)
		result = "cancelled"
	case errors.Is(err, horoscope.ErrAllProvidersExhausted):
		atomic.AddInt64(&c.exhausted, 1)
		result = "exhausted"
	default:
		atomic.AddInt64(&c.failed, 1)
		result = "failed"
	}
	c.prom.observeLookup(provider, result, latency)
}

// RecordRewrite counts one rewrite request.
func (c *Collector) RecordRewrite(cached bool, err error) {
	atomic.AddInt64(&c.rewrites, 1)
	result := "rewritten"
	switch {
	case err != nil:
		atomic.AddInt64(&c.rewriteFailures, 1)
		result = "failed"
	case cached:
		atomic.AddInt64(&c.rewriteCacheHits, 1)
		result = "cached"
	}
	c.prom.rewrites.WithLabelValues(result).Inc()
}

// IncrementActive increments the active request counter. Call this when an
// API request starts.
func (c *Collector) IncrementActive() {
	atomic.AddInt64(&c.activeRequests, 1)
	c.prom.active.Inc()
}

// DecrementActive decrements the active request counter, regardless of
// success or failure.
func (c *Collector) DecrementActive() {
	atomic.AddInt64(&c.activeRequests, -1)
	c.prom.active.Dec()
}

// Stats returns a point-in-time snapshot of all metrics.
func (c *Collector) Stats() *Stats {
	lookups := atomic.LoadInt64(&c.lookups)
	served := atomic.LoadInt64(&c.served)
	rewrites := atomic.LoadInt64(&c.rewrites)
	hits := atomic.LoadInt64(&c.rewriteCacheHits)

	var successRate float64
	if lookups > 0 {
		successRate = float64(served) / float64(lookups) * 100
	}

	var avgLatency float64
	if served > 0 {
		avgLatency = float64(atomic.LoadInt64(&c.servedLatencyNs)) / float64(served) / float64(time.Millisecond)
	}

	var hitRate float64
	if rewrites > 0 {
		hitRate = float64(hits) / float64(rewrites) * 100
	}

	return &Stats{
		Uptime:              formatDuration(time.Since(c.startTime)),
		Lookups:             lookups,
		Served:              served,
		Exhausted:           atomic.LoadInt64(&c.exhausted),
		Failed:              atomic.LoadInt64(&c.failed),
		Cancelled:           atomic.LoadInt64(&c.cancelled),
		SuccessRate:         successRate,
		AvgServedLatencyMs:  avgLatency,
		Attempts:            atomic.LoadInt64(&c.attempts),
		Skipped:             atomic.LoadInt64(&c.skipped),
		TransientFailures:   atomic.LoadInt64(&c.transient),
		CredentialRejects:   atomic.LoadInt64(&c.quota),
		HTTPErrors:          atomic.LoadInt64(&c.httpErrors),
		Rewrites:            rewrites,
		RewriteCacheHits:    hits,
		RewriteFailures:     atomic.LoadInt64(&c.rewriteFailures),
		RewriteCacheHitRate: hitRate,
		ActiveRequests:      atomic.LoadInt64(&c.activeRequests),
	}
}

// formatDuration produces a human-readable duration string like "2d 5h 32m".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "0m"
	}
	s := parts[0]
	for _, p := range parts[1:] {
		s += " " + p
	}
	return s
}
