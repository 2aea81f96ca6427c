package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "SigRoute/internal/domain/models"
	"SigRoute/internal/services/attribution"
	"SigRoute/internal/usecase"
	pkgcache "SigRoute/pkg/cache"
	xhttp "SigRoute/pkg/http"
	xlogger "SigRoute/pkg/logger"
)

// DashboardHandler serves the reporting interface: summary dashboard,
// chain traces, per-type analysis, plus manual event injection.
type DashboardHandler struct {
	logger   *xlogger.Logger
	ledger   *attribution.Ledger
	router   *usecase.SignalRouter
	scorer   *usecase.Scorer
	feedback *usecase.ReinforcementFeedback
	cache    *pkgcache.MemoryCache
}

const dashboardCacheTTL = 5 * time.Second

func NewDashboardHandler(
	logger *xlogger.Logger,
	ledger *attribution.Ledger,
	router *usecase.SignalRouter,
	scorer *usecase.Scorer,
	feedback *usecase.ReinforcementFeedback,
) *DashboardHandler {
	return &DashboardHandler{
		logger:   logger,
		ledger:   ledger,
		router:   router,
		scorer:   scorer,
		feedback: feedback,
		cache:    pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(16)),
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/dashboard", h.Dashboard)
	g.GET("/analysis", h.Analysis)
	g.GET("/trace/:id", h.Trace)
	g.GET("/cascade/:type", h.Cascade)
	g.POST("/events", h.InjectEvent)
	g.POST("/chains/:id/events", h.ChainEvent)
	g.POST("/select", h.Select)
}

// Dashboard serves the reporting projection, cached briefly: building it
// walks every chain under the ledger's read lock.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")

	key := pkgcache.GenerateKey("dashboard", "summary")
	var cached interface{}
	if err := h.cache.Get(c.Request().Context(), key, &cached); err == nil {
		if d, ok := cached.(*models.Dashboard); ok {
			return xhttp.SuccessResponse(c, d)
		}
	}

	d := h.ledger.Dashboard()
	_ = h.cache.Set(c.Request().Context(), key, d, dashboardCacheTTL)
	return xhttp.SuccessResponse(c, d)
}

// Analysis aggregates chains per signal type. An optional since query
// param (RFC3339 or unix seconds) restricts the window to newer chains.
func (h *DashboardHandler) Analysis(c echo.Context) error {
	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{})
	return xhttp.SuccessResponse(c, h.ledger.AnalyzeSince(since))
}

// Cascade reports the mean cascade potential over the most recent chains
// of a type, the same view the reinforcement loop consumes.
func (h *DashboardHandler) Cascade(c echo.Context) error {
	typ := c.Param("type")
	depth := xhttp.ParseIntDefault(c.QueryParam("depth"), 50)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"signal_type": typ,
		"depth":       depth,
		"avg_cascade": h.ledger.AvgCascade(typ, depth),
	})
}

func (h *DashboardHandler) Trace(c echo.Context) error {
	req := &models.TraceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	trace, ok := h.ledger.GetTrace(req.ChainID)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("chain %s not found", req.ChainID))
	}
	return xhttp.SuccessResponse(c, trace)
}

// InjectEvent feeds a raw event into the router queue by hand, mostly
// for operational testing.
func (h *DashboardHandler) InjectEvent(c echo.Context) error {
	req := &models.EventRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ev := &models.RawEvent{
		Category:  req.Category,
		OriginID:  req.OriginID,
		Timestamp: req.Timestamp,
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	if err := h.router.Enqueue(ev); err != nil {
		h.logger.Warn("event injection rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("router queue full"))
	}
	return xhttp.CreatedResponse(c, map[string]string{"status": "queued"})
}

// Select runs reinforcement-biased selection over candidate categories.
// Noise categories (weight 0) are dropped before selection.
func (h *DashboardHandler) Select(c echo.Context) error {
	req := &models.SelectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	hour := time.Now().Hour()
	if req.Hour != nil {
		hour = *req.Hour
	}

	candidates := make([]*models.Signal, 0, len(req.Categories))
	for _, cat := range req.Categories {
		sig := h.scorer.SignalFrom(&models.RawEvent{Category: cat, Timestamp: time.Now().Unix()})
		if sig != nil {
			candidates = append(candidates, sig)
		}
	}

	selected := h.feedback.SelectSignal(candidates, hour)
	if selected == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no routable candidate"))
	}
	return xhttp.SuccessResponse(c, selected)
}

// ChainEvent appends telemetry to a chain. Unknown chains are a no-op by
// ledger contract, so this always reports accepted.
func (h *DashboardHandler) ChainEvent(c echo.Context) error {
	req := &models.ChainEventRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	h.ledger.RecordEvent(req.ChainID, models.ChainEvent{
		Kind:         models.ChainEventKind(req.Kind),
		Timestamp:    time.Now(),
		ExecutionRef: req.ExecutionRef,
	})
	return xhttp.SuccessResponse(c, map[string]string{"status": "recorded"})
}
