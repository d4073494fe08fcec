// Package dashboard serves the JSON data contract consumed by the dashboard
// front end: grouped charts, engagement metrics, KPI cards and column lookups,
// all computed against one snapshot per request.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/research-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
	"github.com/lueurxax/research-dashboard/internal/query"
	"github.com/lueurxax/research-dashboard/internal/snapshot"
	"github.com/lueurxax/research-dashboard/internal/transform"
)

const (
	// Route path constants.
	routeCharts     = "charts/"
	routeEngagement = "engagement/"
	routeSummary    = "summary"
	routeColumns    = "columns"
	routeSnapshot   = "snapshot"
	routeRebuild    = "rebuild"

	suffixValues = "/values"
	suffixRange  = "/range"

	// Engagement chart names.
	engagementOverTime  = "over-time"
	engagementFunnel    = "funnel"
	engagementDayOfWeek = "day-of-week"
	engagementTop       = "top"

	// Response headers.
	headerSnapshotID         = "X-Snapshot-ID"
	headerSnapshotGeneration = "X-Snapshot-Generation"
	contentTypeHeader        = "Content-Type"
	contentTypeJSON          = "application/json; charset=utf-8"

	// Log field names.
	logFieldRoute  = "route"
	logFieldStatus = "status"
	logFieldClient = "client"

	slowRequestThreshold = time.Second

	limiterIdleTTL    = 10 * time.Minute
	defaultMaxClients = 10000
)

var (
	errMethodNotAllowed = errors.New("method not allowed")
	errUnknownRoute     = errors.New("unknown endpoint")
	errUnknownChart     = errors.New("unknown chart")
	errRateLimited      = errors.New("rate limit exceeded")
)

// Rebuilder triggers an immediate snapshot rebuild.
type Rebuilder interface {
	RebuildNow(ctx context.Context) (*snapshot.Snapshot, error)
}

// Options configures a Handler.
type Options struct {
	Queries   *query.Service
	Charts    *transform.Service
	Rebuilder Rebuilder

	// RateLimit and Burst bound requests per client; zero disables limiting.
	RateLimit rate.Limit
	Burst     int
	// MaxClients caps the tracked client limiters; zero uses a default.
	MaxClients int
	// TrustProxyHeaders keys clients by X-Forwarded-For and X-Real-IP instead
	// of the connection address. Enable only behind a trusted reverse proxy.
	TrustProxyHeaders bool
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Handler serves the dashboard API. Paths are relative to its mount point.
type Handler struct {
	queries   *query.Service
	charts    *transform.Service
	rebuilder Rebuilder
	logger    *zerolog.Logger

	limit      rate.Limit
	burst      int
	maxClients int
	trustProxy bool
	now        func() time.Time

	limiters   map[string]*clientLimiter
	limitersMu sync.Mutex
	lastSweep  time.Time
}

// NewHandler creates a dashboard handler.
func NewHandler(opts Options, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	maxClients := opts.MaxClients
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}

	return &Handler{
		queries:    opts.Queries,
		charts:     opts.Charts,
		rebuilder:  opts.Rebuilder,
		logger:     logger,
		limit:      opts.RateLimit,
		burst:      opts.Burst,
		maxClients: maxClients,
		trustProxy: opts.TrustProxyHeaders,
		now:        time.Now,
		limiters:   make(map[string]*clientLimiter),
	}
}

// ServeHTTP routes requests to dashboard endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var route string

	var status, resultSize int

	if !h.allowRequest(getClientIP(r, h.trustProxy)) {
		rateLimitedTotal.Inc()

		route, status = "rate_limited", h.writeError(w, errRateLimited)
	} else {
		route, status, resultSize = h.dispatch(w, r)
	}

	h.recordMetrics(route, status, resultSize, start)
}

// dispatch matches the path and runs its handler.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) (route string, status int, resultSize int) {
	path := strings.Trim(r.URL.Path, "/")

	if path == routeRebuild {
		return "rebuild", h.handleRebuild(w, r), 0
	}

	if r.Method != http.MethodGet {
		return "method_not_allowed", h.writeError(w, errMethodNotAllowed), 0
	}

	v, err := h.queries.Current()
	if err != nil {
		return "no_snapshot", h.writeError(w, err), 0
	}

	setSnapshotHeaders(w, v.Snapshot())

	switch {
	case strings.HasPrefix(path, routeCharts):
		s, rs := h.handleChart(w, r, v, strings.TrimPrefix(path, routeCharts))
		return "charts", s, rs
	case strings.HasPrefix(path, routeEngagement):
		name := strings.TrimPrefix(path, routeEngagement)
		s, rs := h.handleEngagement(w, r, v, name)

		return "engagement_" + routeLabel(name), s, rs
	case path == routeSummary:
		return "summary", h.handleSummary(w, r, v), 0
	case path == routeColumns:
		cols := v.Columns()
		return "columns", h.writeJSON(w, http.StatusOK, cols), len(cols)
	case strings.HasPrefix(path, routeColumns+"/"):
		return h.dispatchColumn(w, v, strings.TrimPrefix(path, routeColumns+"/"))
	case path == routeSnapshot:
		return "snapshot", h.writeJSON(w, http.StatusOK, snapshotInfoOf(v.Snapshot())), 0
	default:
		return "not_found", h.writeError(w, errUnknownRoute), 0
	}
}

func (h *Handler) dispatchColumn(w http.ResponseWriter, v *query.View, rest string) (route string, status int, resultSize int) {
	switch {
	case strings.HasSuffix(rest, suffixValues):
		s, rs := h.handleColumnValues(w, v, strings.TrimSuffix(rest, suffixValues))
		return "column_values", s, rs
	case strings.HasSuffix(rest, suffixRange):
		return "column_range", h.handleColumnRange(w, v, strings.TrimSuffix(rest, suffixRange)), 0
	default:
		return "not_found", h.writeError(w, errUnknownRoute), 0
	}
}

// routeLabel keeps metric labels bounded to known engagement routes.
func routeLabel(name string) string {
	switch name {
	case engagementOverTime, engagementFunnel, engagementDayOfWeek, engagementTop:
		return strings.ReplaceAll(name, "-", "_")
	default:
		return "unknown"
	}
}

// recordMetrics records request metrics.
func (h *Handler) recordMetrics(route string, status, resultSize int, start time.Time) {
	elapsed := time.Since(start)

	latencyHistogram.WithLabelValues(route).Observe(elapsed.Seconds())
	requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()

	if resultSize > 0 {
		resultSizeGauge.WithLabelValues(route).Set(float64(resultSize))
	}

	if elapsed >= slowRequestThreshold {
		h.logger.Warn().Str(logFieldRoute, route).Dur("duration", elapsed).Msg("dashboard request slow")
	}
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request, v *query.View, name string) (int, int) {
	chart, ok := h.charts.Charts()[name]
	if !ok {
		return h.writeError(w, errUnknownChart), 0
	}

	sel, err := parseSelection(r.URL.Query(), v)
	if err != nil {
		return h.writeError(w, err), 0
	}

	c := chart(v, sel)

	return h.writeJSON(w, http.StatusOK, c), len(c.Rows)
}

func (h *Handler) handleEngagement(w http.ResponseWriter, r *http.Request, v *query.View, name string) (int, int) {
	q := r.URL.Query()

	sel, err := parseSelection(q, v)
	if err != nil {
		return h.writeError(w, err), 0
	}

	win, err := parseWindow(q, h.charts)
	if err != nil {
		return h.writeError(w, err), 0
	}

	switch name {
	case engagementOverTime:
		c := h.charts.EngagementOverTime(v, sel, win)
		return h.writeJSON(w, http.StatusOK, c), len(c.Rows)
	case engagementDayOfWeek:
		c := h.charts.EngagementByDayOfWeek(v, sel, win)
		return h.writeJSON(w, http.StatusOK, c), len(c.Rows)
	case engagementFunnel:
		f := h.charts.EngagementFunnel(v, sel, win)
		return h.writeJSON(w, http.StatusOK, f), len(f.Stages)
	case engagementTop:
		metric, err := transform.ParseMetric(q.Get(paramMetric))
		if err != nil {
			return h.writeError(w, err), 0
		}

		n, err := parseTopN(q)
		if err != nil {
			return h.writeError(w, err), 0
		}

		top := h.charts.TopResearch(v, sel, win, metric, n)

		return h.writeJSON(w, http.StatusOK, topResponse{Metric: metric, Entries: top}), len(top)
	default:
		return h.writeError(w, errUnknownChart), 0
	}
}

type topResponse struct {
	Metric  transform.Metric     `json:"metric"`
	Entries []transform.TopEntry `json:"entries"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request, v *query.View) int {
	q := r.URL.Query()

	sel, err := parseSelection(q, v)
	if err != nil {
		return h.writeError(w, err)
	}

	win, err := parseWindow(q, h.charts)
	if err != nil {
		return h.writeError(w, err)
	}

	return h.writeJSON(w, http.StatusOK, h.charts.Summary(v, sel, win))
}

func (h *Handler) handleColumnValues(w http.ResponseWriter, v *query.View, name string) (int, int) {
	col, err := domain.ParseColumn(name)
	if err != nil {
		return h.writeError(w, err), 0
	}

	values := v.UniqueValues(col)

	return h.writeJSON(w, http.StatusOK, values), len(values)
}

type columnRange struct {
	Column domain.Column `json:"column"`
	Min    *domain.Value `json:"min"`
	Max    *domain.Value `json:"max"`
}

func (h *Handler) handleColumnRange(w http.ResponseWriter, v *query.View, name string) int {
	col, err := domain.ParseColumn(name)
	if err != nil {
		return h.writeError(w, err)
	}

	out := columnRange{Column: col}

	lo, err := v.MinValue(col)
	switch {
	case err == nil:
		out.Min = &lo
	case !errors.Is(err, apperrors.ErrEmptyResult):
		return h.writeError(w, err)
	}

	if hi, err := v.MaxValue(col); err == nil {
		out.Max = &hi
	}

	return h.writeJSON(w, http.StatusOK, out)
}

type rebuildResponse struct {
	Status string `json:"status"`
	snapshotInfo
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		return h.writeError(w, errMethodNotAllowed)
	}

	// The rebuild outlives a disconnected client; the scheduler bounds it with its own timeout.
	snap, err := h.rebuilder.RebuildNow(context.WithoutCancel(r.Context()))
	if err != nil {
		if v, cerr := h.queries.Current(); cerr == nil {
			setSnapshotHeaders(w, v.Snapshot())
		}

		return h.writeError(w, err)
	}

	setSnapshotHeaders(w, snap)

	return h.writeJSON(w, http.StatusAccepted, rebuildResponse{Status: "published", snapshotInfo: snapshotInfoOf(snap)})
}

type snapshotInfo struct {
	ID         string    `json:"snapshot_id"`
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at"`
	Rows       int       `json:"rows"`
}

func snapshotInfoOf(s *snapshot.Snapshot) snapshotInfo {
	return snapshotInfo{ID: s.ID(), Generation: s.Generation(), BuiltAt: s.BuiltAt(), Rows: s.Len()}
}

func setSnapshotHeaders(w http.ResponseWriter, s *snapshot.Snapshot) {
	w.Header().Set(headerSnapshotID, s.ID())
	w.Header().Set(headerSnapshotGeneration, strconv.FormatUint(s.Generation(), 10))
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNoSnapshot), errors.Is(err, apperrors.ErrDataSource):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrColumnNotFound), errors.Is(err, errUnknownRoute), errors.Is(err, errUnknownChart):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrRebuildInFlight):
		return http.StatusConflict
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) int {
	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("write json failed")
	}

	return status
}

func (h *Handler) writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("dashboard request failed")

		message = http.StatusText(status)
	} else if status == http.StatusServiceUnavailable && errors.Is(err, apperrors.ErrDataSource) {
		h.logger.Warn().Err(err).Int(logFieldStatus, status).Msg("rebuild request failed")

		message = "data source unavailable"
	}

	return h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) allowRequest(ip string) bool {
	if h.limit <= 0 {
		return true
	}

	h.limitersMu.Lock()

	now := h.now()

	cl, ok := h.limiters[ip]
	if !ok {
		if len(h.limiters) >= h.maxClients || now.Sub(h.lastSweep) >= limiterIdleTTL {
			h.evictLimiters(now)
		}

		cl = &clientLimiter{limiter: rate.NewLimiter(h.limit, h.burst)}
		h.limiters[ip] = cl
	}

	cl.lastSeen = now

	h.limitersMu.Unlock()

	if !cl.limiter.Allow() {
		h.logger.Debug().Str(logFieldClient, ip).Msg("request rate limited")

		return false
	}

	return true
}

// evictLimiters drops idle client limiters, then the least recently seen ones
// until there is room for a new client. Callers hold limitersMu.
func (h *Handler) evictLimiters(now time.Time) {
	h.lastSweep = now

	for ip, cl := range h.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(h.limiters, ip)
		}
	}

	for len(h.limiters) >= h.maxClients {
		var (
			oldestIP string
			oldest   *clientLimiter
		)

		for ip, cl := range h.limiters {
			if oldest == nil || cl.lastSeen.Before(oldest.lastSeen) {
				oldestIP, oldest = ip, cl
			}
		}

		delete(h.limiters, oldestIP)
	}
}

func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
