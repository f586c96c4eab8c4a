package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danrleybayoshi/horoscopo/internal/cache"
	"github.com/danrleybayoshi/horoscopo/internal/catalog"
	"github.com/danrleybayoshi/horoscopo/internal/favorites"
	"github.com/danrleybayoshi/horoscopo/internal/horoscope"
	"github.com/danrleybayoshi/horoscopo/internal/metrics"
	"github.com/danrleybayoshi/horoscopo/internal/rewrite"
	"github.com/danrleybayoshi/horoscopo/internal/store"
	"github.com/danrleybayoshi/horoscopo/internal/version"
)

// Error types used in the "type" field of JSON error bodies.
const (
	errTypeAuth        = "authentication_error"
	errTypeInvalid     = "invalid_request_error"
	errTypeNotFound    = "not_found_error"
	errTypeConflict    = "conflict_error"
	errTypeRateLimit   = "rate_limit_error"
	errTypeUpstream    = "upstream_error"
	errTypeUnavailable = "service_unavailable"
	errTypeTimeout     = "timeout_error"
	errTypeInternal    = "internal_error"
)

// msgUnavailable is the body message when every provider failed.
const msgUnavailable = "horoscope service unavailable"

// Deps are the collaborators a Handler serves from. Rewriter, Cache and
// Store may be nil; the matching features then report as unavailable.
type Deps struct {
	Client        *horoscope.FailoverClient
	Favorites     *favorites.Set
	Rewriter      *rewrite.Client
	Cache         *cache.Cache
	Store         *store.Store
	Collector     *metrics.Collector
	Logger        zerolog.Logger
	MaxBodySize   int64
	ExposeMetrics bool
}

// Handler implements the HTTP endpoints.
type Handler struct {
	client        *horoscope.FailoverClient
	favorites     *favorites.Set
	rewriter      *rewrite.Client
	cache         *cache.Cache
	store         *store.Store
	collector     *metrics.Collector
	logger        zerolog.Logger
	maxBodySize   int64
	exposeMetrics bool
}

// NewHandler builds a Handler from d.
func NewHandler(d Deps) *Handler {
	collector := d.Collector
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Handler{
		client:        d.Client,
		favorites:     d.Favorites,
		rewriter:      d.Rewriter,
		cache:         d.Cache,
		store:         d.Store,
		collector:     collector,
		logger:        d.Logger.With().Str("component", "api").Logger(),
		maxBodySize:   d.MaxBodySize,
		exposeMetrics: d.ExposeMetrics,
	}
}

// signEntry is a catalog sign decorated for listing.
type signEntry struct {
	catalog.Sign
	Label    string `json:"label"`
	Favorite bool   `json:"favorite"`
}

type horoscopeResponse struct {
	RequestID    string             `json:"request_id"`
	Sign         *signEntry         `json:"sign,omitempty"`
	Reading      *horoscope.Reading `json:"reading"`
	Rewrite      *rewrite.Result    `json:"rewrite,omitempty"`
	RewriteError string             `json:"rewrite_error,omitempty"`
}

type rewriteRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// --- health ---

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

// HandleReady reports 503 when the store is unreachable or no provider can
// currently serve a lookup.
func (h *Handler) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(); err != nil {
			h.logger.Warn().Err(err).Msg("readiness: store ping failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "reason": "store unreachable"})
			return
		}
	}
	available := h.client.Router().Available()
	if available == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "reason": "no usable providers"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "available_providers": available})
}

// MetricsHandler serves Prometheus metrics, or 404 when they are turned off.
func (h *Handler) MetricsHandler() http.Handler {
	if !h.exposeMetrics {
		return http.NotFoundHandler()
	}
	return h.collector.Handler()
}

// --- signs ---

// HandleListSigns lists all signs favorites first, or with ?q= the single
// best match of a name or date search.
func (h *Handler) HandleListSigns(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	signs := h.favorites.Sorted(catalog.All())
	if q != "" {
		sg, ok := catalog.SearchIn(signs, q)
		signs = nil
		if ok {
			signs = []catalog.Sign{sg}
		}
	}

	entries := make([]signEntry, 0, len(signs))
	for _, sg := range signs {
		entries = append(entries, h.entry(sg))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"signs": entries})
}

// HandleGetSign returns one sign by token, name or ID.
func (h *Handler) HandleGetSign(w http.ResponseWriter, r *http.Request) {
	sg, ok := lookupSign(chi.URLParam(r, "sign"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown sign", errTypeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.entry(sg))
}

// HandleHoroscope fetches a reading through the failover client. A known
// sign is normalised to its token; anything else is passed to providers as
// given. ?provider= targets one provider without failover, ?rewrite=true
// adds a rewrite of the text.
func (h *Handler) HandleHoroscope(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	params := r.URL.Query()

	raw := chi.URLParam(r, "sign")
	token := strings.ToLower(strings.TrimSpace(raw))
	sg, known := catalog.ByToken(raw)
	if known {
		token = sg.Token
	}
	if token == "" {
		writeJSONError(w, http.StatusBadRequest, "missing sign", errTypeInvalid)
		return
	}

	timeframe := strings.ToLower(strings.TrimSpace(params.Get("timeframe")))
	switch timeframe {
	case "":
		timeframe = horoscope.TimeframeDaily
	case horoscope.TimeframeDaily, horoscope.TimeframeWeekly, horoscope.TimeframeMonthly:
	default:
		writeJSONError(w, http.StatusBadRequest, "timeframe must be daily, weekly or monthly", errTypeInvalid)
		return
	}

	query := horoscope.Query{Sign: token, Timeframe: timeframe, Language: params.Get("lang")}
	logger := h.logger.With().Str("request_id", RequestID(ctx)).Str("sign", token).Logger()

	var (
		reading *horoscope.Reading
		err     error
	)
	if name := params.Get("provider"); name != "" {
		reading, err = h.client.FetchFrom(ctx, name, query)
	} else {
		reading, err = h.client.FetchQuery(ctx, query)
	}
	h.recordLookup(ctx, query, reading, err, time.Since(start))
	if err != nil {
		h.writeLookupError(w, err, logger)
		return
	}

	resp := horoscopeResponse{RequestID: RequestID(ctx), Reading: reading}
	if known {
		e := h.entry(sg)
		resp.Sign = &e
	}

	if wantRewrite, _ := strconv.ParseBool(params.Get("rewrite")); wantRewrite {
		res, rerr := h.rewrite(ctx, reading.Text, query.Language)
		if rerr != nil {
			logger.Warn().Err(rerr).Msg("rewrite failed; returning original reading")
			resp.RewriteError = rerr.Error()
		} else {
			resp.Rewrite = res
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var attemptErr *horoscope.AttemptError
	switch {
	case horoscope.IsExhausted(err):
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable, errTypeUnavailable)
	case errors.Is(err, horoscope.ErrUnknownProvider):
		writeJSONError(w, http.StatusNotFound, err.Error(), errTypeNotFound)
	case errors.Is(err, horoscope.ErrProviderUnusable):
		writeJSONError(w, http.StatusConflict, err.Error(), errTypeConflict)
	case errors.As(err, &attemptErr):
		writeJSONError(w, http.StatusBadGateway, err.Error(), errTypeUpstream)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, "lookup cancelled", errTypeTimeout)
	default:
		logger.Error().Err(err).Msg("unexpected lookup error")
		writeJSONError(w, http.StatusInternalServerError, "internal error", errTypeInternal)
	}
}

// recordLookup appends a row to the lookup history. Failures are logged and
// never affect the response.
func (h *Handler) recordLookup(ctx context.Context, q horoscope.Query, reading *horoscope.Reading, err error, latency time.Duration) {
	if h.store == nil {
		return
	}
	l := &store.Lookup{
		ID:        uuid.New().String(),
		RequestID: RequestID(ctx),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Sign:      q.Sign,
		Timeframe: q.Timeframe,
		Language:  q.Language,
		Success:   err == nil,
		LatencyMs: latency.Milliseconds(),
	}
	if reading != nil {
		l.Provider = reading.Provider
	}
	if err != nil {
		l.ErrorMessage = err.Error()
	}
	if ierr := h.store.InsertLookup(l); ierr != nil {
		h.logger.Error().Err(ierr).Msg("failed to record lookup")
	}
}

// --- providers ---

// HandleProviders lists configured providers in priority order with their
// credential and disabled state.
func (h *Handler) HandleProviders(w http.ResponseWriter, _ *http.Request) {
	rtr := h.client.Router()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": rtr.Statuses(),
		"available": rtr.Available(),
	})
}

// --- favorites ---

// HandleListFavorites returns the favorite signs in catalog order.
func (h *Handler) HandleListFavorites(w http.ResponseWriter, _ *http.Request) {
	ids := h.favorites.List()
	entries := make([]signEntry, 0, len(ids))
	for _, id := range ids {
		if sg, ok := catalog.ByID(id); ok {
			entries = append(entries, h.entry(sg))
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": entries})
}

// HandleAddFavorite marks a sign as favorite. It is idempotent.
func (h *Handler) HandleAddFavorite(w http.ResponseWriter, r *http.Request) {
	h.updateFavorite(w, r, func(id int) (bool, error) { return true, h.favorites.Add(id) })
}

// HandleRemoveFavorite clears a favorite. It is idempotent.
func (h *Handler) HandleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.updateFavorite(w, r, func(id int) (bool, error) { return false, h.favorites.Remove(id) })
}

// HandleToggleFavorite flips the favorite state and returns the new one.
func (h *Handler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.updateFavorite(w, r, h.favorites.Toggle)
}

func (h *Handler) updateFavorite(w http.ResponseWriter, r *http.Request, op func(id int) (bool, error)) {
	sg, ok := lookupSign(chi.URLParam(r, "sign"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown sign", errTypeNotFound)
		return
	}
	fav, err := op(sg.ID)
	if err != nil {
		h.logger.Error().Err(err).Int("sign_id", sg.ID).Msg("favorite update failed")
		writeJSONError(w, http.StatusInternalServerError, "database error", errTypeInternal)
		return
	}
	e := h.entry(sg)
	e.Favorite = fav
	writeJSON(w, http.StatusOK, e)
}

// --- rewrite ---

// HandleRewrite rewrites arbitrary text.
func (h *Handler) HandleRewrite(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	var req rewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body", errTypeInvalid)
		return
	}

	res, err := h.rewrite(r.Context(), req.Text, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, rewrite.ErrNotConfigured):
			writeJSONError(w, http.StatusServiceUnavailable, "rewrite not configured", errTypeUnavailable)
		case errors.Is(err, rewrite.ErrEmptyText):
			writeJSONError(w, http.StatusBadRequest, "text must not be empty", errTypeInvalid)
		case errors.Is(err, rewrite.ErrRateLimited):
			writeJSONError(w, http.StatusTooManyRequests, err.Error(), errTypeRateLimit)
		default:
			writeJSONError(w, http.StatusBadGateway, err.Error(), errTypeUpstream)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) rewrite(ctx context.Context, text, language string) (*rewrite.Result, error) {
	if h.rewriter == nil {
		return nil, rewrite.ErrNotConfigured
	}
	res, err := h.rewriter.Rewrite(ctx, text, language)
	if !errors.Is(err, rewrite.ErrNotConfigured) {
		h.collector.RecordRewrite(res != nil && res.Cached, err)
	}
	return res, err
}

// --- stats ---

// HandleStats combines live counters with persisted history. Accepts
// ?range=1d, 7d, 30d (default 7d).
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	rangeParam := r.URL.Query().Get("range")
	if rangeParam == "" {
		rangeParam = "7d"
	}
	since, err := parseDurationParam(rangeParam)
	if err != nil || since <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid range parameter", errTypeInvalid)
		return
	}

	resp := map[string]interface{}{
		"live":  h.collector.Stats(),
		"range": rangeParam,
	}
	if h.store != nil {
		history, err := h.store.GetLookupStats(time.Now().Add(-since))
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to query lookup stats")
			writeJSONError(w, http.StatusInternalServerError, "database error", errTypeInternal)
			return
		}
		resp["history"] = history
	}
	if h.cache != nil {
		resp["rewrite_cache"] = h.cache.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleListLookups returns lookup history, newest first. The window is
// ?limit= and ?offset=; ?page= (1-based) is accepted when offset is absent.
func (h *Handler) HandleListLookups(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "lookup history unavailable", errTypeUnavailable)
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := queryInt(r, "offset", -1)
	if offset < 0 {
		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		offset = (page - 1) * limit
	}

	lookups, err := h.store.ListLookups(limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list lookups")
		writeJSONError(w, http.StatusInternalServerError, "database error", errTypeInternal)
		return
	}

	type lookupEntry struct {
		ID        string `json:"id"`
		RequestID string `json:"request_id,omitempty"`
		Timestamp string `json:"timestamp"`
		Sign      string `json:"sign"`
		Timeframe string `json:"timeframe"`
		Language  string `json:"language,omitempty"`
		Provider  string `json:"provider,omitempty"`
		Success   bool   `json:"success"`
		LatencyMs int64  `json:"latency_ms"`
		Error     string `json:"error,omitempty"`
	}

	entries := make([]lookupEntry, 0, len(lookups))
	for _, l := range lookups {
		entries = append(entries, lookupEntry{
			ID:        l.ID,
			RequestID: l.RequestID,
			Timestamp: l.Timestamp,
			Sign:      l.Sign,
			Timeframe: l.Timeframe,
			Language:  l.Language,
			Provider:  l.Provider,
			Success:   l.Success,
			LatencyMs: l.LatencyMs,
			Error:     l.ErrorMessage,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"limit":   limit,
		"offset":  offset,
		"lookups": entries,
	})
}

// trackActive counts in-flight /v1 requests.
func (h *Handler) trackActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.collector.IncrementActive()
		defer h.collector.DecrementActive()
		next.ServeHTTP(w, r)
	})
}

// --- helpers ---

func (h *Handler) entry(sg catalog.Sign) signEntry {
	return signEntry{Sign: sg, Label: sg.Label(), Favorite: h.favorites.IsFavorite(sg.ID)}
}

// lookupSign resolves a path segment given as token, name or numeric ID.
func lookupSign(raw string) (catalog.Sign, bool) {
	if sg, ok := catalog.ByToken(raw); ok {
		return sg, true
	}
	if id, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return catalog.ByID(id)
	}
	return catalog.Sign{}, false
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

// writeJSONError writes {"error":{"message","type"}}.
func writeJSONError(w http.ResponseWriter, status int, message, errType string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"type":    errType,
		},
	})
}

// queryInt reads an integer query parameter with a default fallback.
func queryInt(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}

// parseDurationParam converts a shorthand like "7d" or "24h" to a time.Duration.
func parseDurationParam(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
