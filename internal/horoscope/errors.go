package horoscope

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors. Attempt failures wrap one of the first three so callers
// can classify with errors.Is.
var (
	// ErrTransport covers connection failures, timeouts, DNS errors and
	// bodies that cannot be decoded into a reading.
	ErrTransport = errors.New("provider transport failure")

	// ErrCredentialOrQuota means the provider rejected the credential or
	// the quota is exhausted (HTTP 401, 403 or 429).
	ErrCredentialOrQuota = errors.New("provider rejected credential or quota exhausted")

	// ErrUpstreamStatus is any other unsuccessful HTTP status.
	ErrUpstreamStatus = errors.New("provider returned unsuccessful status")

	// ErrAllProvidersExhausted is returned by Fetch once every candidate was
	// skipped or failed.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrUnknownProvider is returned by FetchFrom for a name that is not
	// configured.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderUnusable is returned by FetchFrom for a provider with a
	// blank credential or one that has been disabled.
	ErrProviderUnusable = errors.New("provider unusable")
)

// Outcome classifies a single provider attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomeCredentialOrQuota
	OutcomeHTTPError
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	case OutcomeCredentialOrQuota:
		return "credential_or_quota"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// AttemptError describes why one provider attempt failed.
type AttemptError struct {
	Provider   string
	Outcome    Outcome
	StatusCode int
	Err        error
}

func (e *AttemptError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx HTTP status to an attempt outcome.
func classifyStatus(code int) Outcome {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return OutcomeCredentialOrQuota
	default:
		return OutcomeHTTPError
	}
}

// retryAfterDuration parses the Retry-After header from an HTTP response.
// It returns 0 if the header is absent or unparsable. The value is only
// reported; disabled providers are never retried within a process.
func retryAfterDuration(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
