package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

// GenericBody returns a {"sign","text"} provider response.
func GenericBody(sign, text string) string {
	data, _ := json.Marshal(map[string]string{"sign": sign, "text": text})
	return string(data)
}

// DataBody returns a {"data":{"horoscope"}} provider response.
func DataBody(text string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"data": map[string]string{"date": "Oct 17, 2026", "horoscope": text},
	})
	return string(data)
}

// AstroPredictBody returns an AstroPredict-style provider response.
func AstroPredictBody(zodiac, text, language string) string {
	data, _ := json.Marshal(map[string]string{
		"horoscope": text,
		"zodiac":    zodiac,
		"language":  language,
		"type":      "daily",
	})
	return string(data)
}

// FakeProvider is a local server standing in for a horoscope API. It counts
// every request it receives.
type FakeProvider struct {
	*httptest.Server

	hits atomic.Int64

	mu         sync.Mutex
	lastQuery  url.Values
	lastHeader http.Header
}

// NewFakeProvider returns a server that answers every request with status
// and body. It is closed when the test ends.
func NewFakeProvider(t *testing.T, status int, body string) *FakeProvider {
	t.Helper()
	return NewFakeProviderFunc(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// NewFakeProviderFunc returns a counting server backed by h.
func NewFakeProviderFunc(t *testing.T, h http.HandlerFunc) *FakeProvider {
	t.Helper()
	fp := &FakeProvider{}
	fp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.hits.Add(1)
		fp.mu.Lock()
		fp.lastQuery = r.URL.Query()
		fp.lastHeader = r.Header.Clone()
		fp.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(fp.Server.Close)
	return fp
}

// Hits returns how many requests the server has received.
func (fp *FakeProvider) Hits() int {
	return int(fp.hits.Load())
}

// LastRequest returns the query and headers of the most recent request.
func (fp *FakeProvider) LastRequest() (url.Values, http.Header) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.lastQuery, fp.lastHeader
}
