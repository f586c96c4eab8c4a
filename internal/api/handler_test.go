package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danrleybayoshi/horoscopo/internal/cache"
	"github.com/danrleybayoshi/horoscopo/internal/favorites"
	"github.com/danrleybayoshi/horoscopo/internal/horoscope"
	"github.com/danrleybayoshi/horoscopo/internal/metrics"
	"github.com/danrleybayoshi/horoscopo/internal/rewrite"
	"github.com/danrleybayoshi/horoscopo/internal/router"
	"github.com/danrleybayoshi/horoscopo/internal/store"
	"github.com/danrleybayoshi/horoscopo/internal/testutil"
)

type testEnv struct {
	srv       *httptest.Server
	store     *store.Store
	providers []*router.Provider
	collector *metrics.Collector
}

type envOptions struct {
	rewriteURL string
	authToken  string
}

func newTestEnv(t *testing.T, providers []*router.Provider, opts envOptions) *testEnv {
	t.Helper()

	rtr, err := router.New(providers)
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	st := testutil.NewTestStore(t)
	favs, err := favorites.Load(store.NewFavoritesAdapter(st))
	if err != nil {
		t.Fatalf("favorites.Load: %v", err)
	}
	collector := metrics.NewCollector()
	if err := collector.WatchProviders(rtr); err != nil {
		t.Fatalf("WatchProviders: %v", err)
	}

	c, err := cache.New(store.NewCacheAdapter(st), time.Hour, 100)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	var rw *rewrite.Client
	if opts.rewriteURL != "" {
		rw = rewrite.New(rewrite.Config{BaseURL: opts.rewriteURL, Key: "rk"}, c, nil, zerolog.Nop())
	}

	h := NewHandler(Deps{
		Client:        horoscope.NewFailoverClient(rtr, nil, zerolog.Nop(), collector),
		Favorites:     favs,
		Rewriter:      rw,
		Cache:         c,
		Store:         st,
		Collector:     collector,
		Logger:        zerolog.Nop(),
		MaxBodySize:   1 << 16,
		ExposeMetrics: true,
	})
	s := NewServer(h, ServerOptions{AuthToken: opts.authToken})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, providers: providers, collector: collector}
}

func provider(name, baseURL, cred string) *router.Provider {
	return router.NewProvider(router.ProviderConfig{Name: name, BaseURL: baseURL, Credential: cred, Timeout: 2 * time.Second})
}

func lastSign(fp *testutil.FakeProvider) string {
	q, _ := fp.LastRequest()
	return q.Get("sign")
}

func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, data
}

func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func TestHoroscope_FailsOverAndTagsProvider(t *testing.T) {
	quota := testutil.NewFakeProvider(t, http.StatusTooManyRequests, `{}`)
	ok := testutil.NewFakeProvider(t, http.StatusOK, testutil.GenericBody("aries", "Hoy es un buen día."))
	env := newTestEnv(t, []*router.Provider{
		provider("principal", quota.URL, "k1"),
		provider("respaldo-1", ok.URL, "k2"),
	}, envOptions{})

	resp, data := env.do(t, http.MethodGet, "/v1/signs/Aries/horoscope", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	var body horoscopeResponse
	decode(t, data, &body)
	if body.Reading == nil || body.Reading.Provider != "respaldo-1" {
		t.Fatalf("reading = %+v, want provider respaldo-1", body.Reading)
	}
	if body.Sign == nil || body.Sign.Token != "aries" {
		t.Errorf("sign = %+v, want aries", body.Sign)
	}
	if body.RequestID == "" || resp.Header.Get(RequestIDHeader) != body.RequestID {
		t.Errorf("request id mismatch: header %q body %q", resp.Header.Get(RequestIDHeader), body.RequestID)
	}
	if !env.providers[0].Disabled() {
		t.Error("principal should be disabled after 429")
	}
	if got := lastSign(ok); got != "aries" {
		t.Errorf("provider saw sign %q, want aries", got)
	}

	lookups, err := env.store.ListLookups(10, 0)
	if err != nil {
		t.Fatalf("ListLookups: %v", err)
	}
	if len(lookups) != 1 || !lookups[0].Success || lookups[0].Provider != "respaldo-1" {
		t.Errorf("lookup history = %+v", lookups)
	}
}

func TestHoroscope_ExhaustedIs503(t *testing.T) {
	down := testutil.NewFakeProvider(t, http.StatusInternalServerError, `oops`)
	env := newTestEnv(t, []*router.Provider{
		provider("principal", down.URL, "k1"),
		provider("respaldo-1", "http://127.0.0.1:1", ""),
	}, envOptions{})

	resp, data := env.do(t, http.MethodGet, "/v1/signs/leo/horoscope", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	var eb errorBody
	decode(t, data, &eb)
	if eb.Error.Message != msgUnavailable || eb.Error.Type != errTypeUnavailable {
		t.Errorf("error body = %+v", eb)
	}

	lookups, _ := env.store.ListLookups(10, 0)
	if len(lookups) != 1 || lookups[0].Success {
		t.Errorf("failed lookup should be recorded: %+v", lookups)
	}
}

func TestHoroscope_UnknownSignPassedThrough(t *testing.T) {
	fp := testutil.NewFakeProvider(t, http.StatusOK, testutil.GenericBody("", "texto"))
	env := newTestEnv(t, []*router.Provider{provider("principal", fp.URL, "k")}, envOptions{})

	resp, data := env.do(t, http.MethodGet, "/v1/signs/ofiuco/horoscope", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	if got := lastSign(fp); got != "ofiuco" {
		t.Errorf("provider saw sign %q, want ofiuco", got)
	}
	var body horoscopeResponse
	decode(t, data, &body)
	if body.Sign != nil {
		t.Errorf("unknown sign should carry no catalog entry, got %+v", body.Sign)
	}
}

func TestHoroscope_BadTimeframe(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})
	resp, _ := env.do(t, http.MethodGet, "/v1/signs/leo/horoscope?timeframe=yearly", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHoroscope_SingleProvider(t *testing.T) {
	bad := testutil.NewFakeProvider(t, http.StatusBadGateway, `x`)
	good := testutil.NewFakeProvider(t, http.StatusOK, testutil.GenericBody("leo", "ok"))
	env := newTestEnv(t, []*router.Provider{
		provider("principal", bad.URL, "k1"),
		provider("respaldo-1", good.URL, "k2"),
	}, envOptions{})

	resp, _ := env.do(t, http.MethodGet, "/v1/signs/leo/horoscope?provider=principal", "", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("failing single provider: status = %d, want 502", resp.StatusCode)
	}
	if good.Hits() != 0 {
		t.Error("single-provider lookup must not fail over")
	}

	resp, _ = env.do(t, http.MethodGet, "/v1/signs/leo/horoscope?provider=nadie", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown provider: status = %d, want 404", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/v1/signs/leo/horoscope?provider=respaldo-1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthy single provider: status = %d, want 200", resp.StatusCode)
	}

	stats := env.collector.Stats()
	if stats.Lookups != 3 || stats.Served != 1 || stats.Failed != 2 || stats.Exhausted != 0 {
		t.Errorf("live stats lookups/served/failed/exhausted = %d/%d/%d/%d, want 3/1/2/0",
			stats.Lookups, stats.Served, stats.Failed, stats.Exhausted)
	}
}

func TestHoroscope_WithRewrite(t *testing.T) {
	fp := testutil.NewFakeProvider(t, http.StatusOK, testutil.GenericBody("virgo", "Día tranquilo."))
	rw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rewrite":"Quiet day.","original":"Día tranquilo.","language":"en"}`))
	}))
	t.Cleanup(rw.Close)

	env := newTestEnv(t, []*router.Provider{provider("principal", fp.URL, "k")}, envOptions{rewriteURL: rw.URL})

	resp, data := env.do(t, http.MethodGet, "/v1/signs/virgo/horoscope?rewrite=true&lang=en", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	var body horoscopeResponse
	decode(t, data, &body)
	if body.Rewrite == nil || body.Rewrite.Rewrite != "Quiet day." {
		t.Fatalf("rewrite = %+v, error %q", body.Rewrite, body.RewriteError)
	}
	if env.collector.Stats().Rewrites != 1 {
		t.Errorf("rewrite should be counted")
	}
}

func TestHoroscope_RewriteFailureKeepsReading(t *testing.T) {
	fp := testutil.NewFakeProvider(t, http.StatusOK, testutil.GenericBody("virgo", "Día tranquilo."))
	env := newTestEnv(t, []*router.Provider{provider("principal", fp.URL, "k")}, envOptions{})

	resp, data := env.do(t, http.MethodGet, "/v1/signs/virgo/horoscope?rewrite=1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body horoscopeResponse
	decode(t, data, &body)
	if body.Reading == nil || body.RewriteError == "" {
		t.Errorf("want reading plus rewrite_error, got %+v", body)
	}
}

func TestListSigns_FavoritesFirst(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})

	resp, _ := env.do(t, http.MethodPut, "/v1/favorites/piscis", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT favorite: status = %d", resp.StatusCode)
	}
	env.do(t, http.MethodPut, "/v1/favorites/leo", "", nil)

	_, data := env.do(t, http.MethodGet, "/v1/signs", "", nil)
	var body struct {
		Signs []signEntry `json:"signs"`
	}
	decode(t, data, &body)
	if len(body.Signs) != 12 {
		t.Fatalf("got %d signs, want 12", len(body.Signs))
	}
	if body.Signs[0].Token != "leo" || body.Signs[1].Token != "piscis" || body.Signs[2].Token != "aries" {
		t.Errorf("order = %s, %s, %s", body.Signs[0].Token, body.Signs[1].Token, body.Signs[2].Token)
	}
	if !body.Signs[0].Favorite || body.Signs[2].Favorite {
		t.Error("favorite flags wrong")
	}
}

func TestListSigns_Search(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})

	tests := []struct {
		q    string
		want string
	}{
		{"gem", "geminis"},
		{"21%20de%20marzo", "aries"},
		{"january%205", "capricornio"},
	}
	for _, tt := range tests {
		_, data := env.do(t, http.MethodGet, "/v1/signs?q="+tt.q, "", nil)
		var body struct {
			Signs []signEntry `json:"signs"`
		}
		decode(t, data, &body)
		if len(body.Signs) != 1 || body.Signs[0].Token != tt.want {
			t.Errorf("q=%s: got %+v, want %s", tt.q, body.Signs, tt.want)
		}
	}

	_, data := env.do(t, http.MethodGet, "/v1/signs?q=zzz", "", nil)
	var empty struct {
		Signs []signEntry `json:"signs"`
	}
	decode(t, data, &empty)
	if len(empty.Signs) != 0 {
		t.Errorf("no match should return an empty list, got %+v", empty.Signs)
	}
}

func TestListSigns_SearchPrefersFavorites(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})

	search := func() string {
		_, data := env.do(t, http.MethodGet, "/v1/signs?q=a", "", nil)
		var body struct {
			Signs []signEntry `json:"signs"`
		}
		decode(t, data, &body)
		if len(body.Signs) != 1 {
			t.Fatalf("q=a: got %+v", body.Signs)
		}
		return body.Signs[0].Token
	}

	if got := search(); got != "aries" {
		t.Errorf("without favorites: got %s, want aries", got)
	}
	if resp, _ := env.do(t, http.MethodPut, "/v1/favorites/acuario", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("add favorite: status = %d", resp.StatusCode)
	}
	if got := search(); got != "acuario" {
		t.Errorf("with acuario favorited: got %s, want acuario", got)
	}
}

func TestFavorites_ToggleAndRemove(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})

	_, data := env.do(t, http.MethodPost, "/v1/favorites/tauro/toggle", "", nil)
	var e signEntry
	decode(t, data, &e)
	if !e.Favorite {
		t.Fatal("first toggle should favorite")
	}

	_, data = env.do(t, http.MethodGet, "/v1/favorites", "", nil)
	var list struct {
		Favorites []signEntry `json:"favorites"`
	}
	decode(t, data, &list)
	if len(list.Favorites) != 1 || list.Favorites[0].Token != "tauro" {
		t.Fatalf("favorites = %+v", list.Favorites)
	}

	resp, data := env.do(t, http.MethodDelete, "/v1/favorites/1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE by id: status = %d", resp.StatusCode)
	}
	decode(t, data, &e)
	if e.Favorite {
		t.Error("delete should clear favorite")
	}
	if ok, _ := env.store.IsFavorite(1); ok {
		t.Error("favorite should be removed from the store")
	}

	resp, _ = env.do(t, http.MethodPut, "/v1/favorites/nada", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown sign: status = %d, want 404", resp.StatusCode)
	}
}

func TestRewriteEndpoint(t *testing.T) {
	rw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rewrite":"hola","language":"es"}`))
	}))
	t.Cleanup(rw.Close)
	env := newTestEnv(t, nil, envOptions{rewriteURL: rw.URL})

	resp, data := env.do(t, http.MethodPost, "/v1/rewrite", `{"text":"hello","language":"es"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	var res rewrite.Result
	decode(t, data, &res)
	if res.Rewrite != "hola" || res.Cached {
		t.Errorf("result = %+v", res)
	}

	_, data = env.do(t, http.MethodPost, "/v1/rewrite", `{"text":"hello","language":"es"}`, nil)
	decode(t, data, &res)
	if !res.Cached {
		t.Error("second identical rewrite should be served from cache")
	}

	resp, _ = env.do(t, http.MethodPost, "/v1/rewrite", `{"text":"  "}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty text: status = %d, want 400", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/v1/rewrite", `{not json`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", resp.StatusCode)
	}
}

func TestRewriteEndpoint_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})
	resp, data := env.do(t, http.MethodPost, "/v1/rewrite", `{"text":"hello"}`, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	var eb errorBody
	decode(t, data, &eb)
	if eb.Error.Type != errTypeUnavailable {
		t.Errorf("type = %q", eb.Error.Type)
	}
}

func TestProvidersAndReady(t *testing.T) {
	quota := testutil.NewFakeProvider(t, http.StatusForbidden, `{}`)
	env := newTestEnv(t, []*router.Provider{
		provider("principal", quota.URL, "k1"),
		provider("respaldo-1", "http://127.0.0.1:1", ""),
	}, envOptions{})

	resp, _ := env.do(t, http.MethodGet, "/health/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready before disable: status = %d", resp.StatusCode)
	}

	env.do(t, http.MethodGet, "/v1/signs/leo/horoscope", "", nil)

	resp, _ = env.do(t, http.MethodGet, "/health/ready", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready after disable: status = %d, want 503", resp.StatusCode)
	}

	_, data := env.do(t, http.MethodGet, "/v1/providers", "", nil)
	var body struct {
		Providers []router.ProviderStatus `json:"providers"`
		Available int                     `json:"available"`
	}
	decode(t, data, &body)
	if len(body.Providers) != 2 || !body.Providers[0].Disabled || body.Providers[1].HasCredential {
		t.Errorf("providers = %+v", body.Providers)
	}
	if body.Available != 0 {
		t.Errorf("available = %d, want 0", body.Available)
	}
}

func TestStatsAndLookups(t *testing.T) {
	fp := testutil.NewFakeProvider(t, http.StatusOK, testutil.GenericBody("leo", "ok"))
	env := newTestEnv(t, []*router.Provider{provider("principal", fp.URL, "k")}, envOptions{})

	env.do(t, http.MethodGet, "/v1/signs/leo/horoscope", "", nil)
	env.do(t, http.MethodGet, "/v1/signs/aries/horoscope", "", nil)

	resp, data := env.do(t, http.MethodGet, "/v1/stats?range=1d", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	var stats struct {
		Live    metrics.Stats      `json:"live"`
		History *store.LookupStats `json:"history"`
	}
	decode(t, data, &stats)
	if stats.Live.Served != 2 {
		t.Errorf("live served = %d, want 2", stats.Live.Served)
	}
	if stats.History == nil || stats.History.Succeeded != 2 {
		t.Errorf("history = %+v", stats.History)
	}

	resp, _ = env.do(t, http.MethodGet, "/v1/stats?range=bogus", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad range: status = %d, want 400", resp.StatusCode)
	}

	_, data = env.do(t, http.MethodGet, "/v1/lookups?limit=1", "", nil)
	var page struct {
		Limit   int               `json:"limit"`
		Lookups []json.RawMessage `json:"lookups"`
	}
	decode(t, data, &page)
	if page.Limit != 1 || len(page.Lookups) != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestListLookups_Paging(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"oldest", "middle", "newest"} {
		l := &store.Lookup{
			ID:        id,
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			Sign:      "aries",
			Timeframe: "daily",
		}
		if err := env.store.InsertLookup(l); err != nil {
			t.Fatalf("InsertLookup: %v", err)
		}
	}

	type lookupPage struct {
		Limit   int `json:"limit"`
		Offset  int `json:"offset"`
		Lookups []struct {
			ID string `json:"id"`
		} `json:"lookups"`
	}

	tests := []struct {
		query  string
		offset int
		want   string
	}{
		{"/v1/lookups?limit=1", 0, "newest"},
		{"/v1/lookups?limit=1&offset=1", 1, "middle"},
		{"/v1/lookups?limit=1&offset=2", 2, "oldest"},
		{"/v1/lookups?limit=1&page=2", 1, "middle"},
	}
	for _, tt := range tests {
		resp, data := env.do(t, http.MethodGet, tt.query, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.query, resp.StatusCode)
		}
		var page lookupPage
		decode(t, data, &page)
		if page.Offset != tt.offset {
			t.Errorf("%s: offset = %d, want %d", tt.query, page.Offset, tt.offset)
		}
		if len(page.Lookups) != 1 || page.Lookups[0].ID != tt.want {
			t.Errorf("%s: lookups = %+v, want [%s]", tt.query, page.Lookups, tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, []*router.Provider{provider("principal", "http://127.0.0.1:1", "")}, envOptions{})

	resp, data := env.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), `horoscopo_provider_has_credential{provider="principal"} 0`) {
		t.Errorf("metrics missing provider gauge:\n%s", data)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{authToken: "secreto"})

	resp, _ := env.do(t, http.MethodGet, "/v1/signs", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/v1/signs", "", map[string]string{"Authorization": "Bearer nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong token: status = %d, want 403", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/v1/signs", "", map[string]string{"Authorization": "Bearer secreto"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("right token: status = %d, want 200", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health must stay open: status = %d", resp.StatusCode)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	env := newTestEnv(t, nil, envOptions{})
	resp, _ := env.do(t, http.MethodGet, "/health", "", map[string]string{RequestIDHeader: "abc-123"})
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestParseDurationParam(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"xd", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDurationParam(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("parseDurationParam(%q) = %v, %v", tt.in, got, err)
		}
	}
}
