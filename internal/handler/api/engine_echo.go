package api

import (
	"time"

	models "wickengine/internal/domain/models"
	domrepo "wickengine/internal/domain/repository"
	"wickengine/internal/service/metrics"
	"wickengine/internal/service/ratelimit"
	"wickengine/internal/usecase"
	pkgcache "wickengine/pkg/cache"
	xhttp "wickengine/pkg/http"
	xlogger "wickengine/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EngineEchoHandler exposes the engine's live state over HTTP.
type EngineEchoHandler struct {
	logger   *xlogger.Logger
	engine   *usecase.Engine
	store    domrepo.EventStore // nil unless the clickhouse backend is active
	cache    pkgcache.Service
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
}

func NewEngineEchoHandler(
	logger *xlogger.Logger,
	engine *usecase.Engine,
	store domrepo.EventStore,
	cache pkgcache.Service,
	cacheTTL time.Duration,
) *EngineEchoHandler {
	metrics.Register()
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Second
	}
	return &EngineEchoHandler{
		logger:   logger,
		engine:   engine,
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		rl:       ratelimit.New(),
	}
}

func (h *EngineEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/book/:symbol/analysis", h.BookAnalysis)
	g.GET("/events/:symbol", h.RecentEvents)
}

// Status returns the engine's current status snapshot.
func (h *EngineEchoHandler) Status(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.APILatency.WithLabelValues("status").Observe(time.Since(start).Seconds())
	}()
	return xhttp.SuccessResponse(c, h.engine.Status())
}

// BookAnalysis runs an on-demand void/wall scan against the cached book.
// Responses are cached briefly since scans of the same book are identical up
// to calibration drift.
func (h *EngineEchoHandler) BookAnalysis(c echo.Context) error {
	start := time.Now()
	endpoint := "book_analysis"
	defer func() {
		metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req := &models.BookAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":book", 10, 5) {
		return echo.NewHTTPError(429, "rate limited")
	}

	ctx := c.Request().Context()
	cacheKey := "book_analysis:" + req.Symbol
	if h.cache != nil {
		var cached models.BookAnalysis
		if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	res, err := h.engine.AnalyzeBook(req.Symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		return xhttp.NotFoundResponse(c, err.Error())
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, res, h.cacheTTL); err != nil {
			h.logger.Warn("book analysis cache_set_error", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, res)
}

// RecentEvents returns the newest archived events for a symbol. Available
// only when the clickhouse backend is configured.
func (h *EngineEchoHandler) RecentEvents(c echo.Context) error {
	start := time.Now()
	endpoint := "recent_events"
	defer func() {
		metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req := &models.RecentEventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.NotFoundResponse(c, "event archive not configured")
	}
	if !h.rl.Allow(c.RealIP()+":events", 5, 2) {
		return echo.NewHTTPError(429, "rate limited")
	}

	events, err := h.store.QueryRecent(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("recent events query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, xhttp.ListDataResponse{
		Rows:  events,
		Total: int64(len(events)),
	})
}
