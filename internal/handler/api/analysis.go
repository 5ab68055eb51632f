package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xmiddleware "StockPulse/pkg/http/middleware"
	xlogger "StockPulse/pkg/logger"
)

// AnalysisHandler serves the search flow and the market dashboard.
type AnalysisHandler struct {
	logger  *xlogger.Logger
	search  *usecase.Search
	market  *usecase.MarketData
	limiter xmiddleware.Allower
}

func NewAnalysisHandler(logger *xlogger.Logger, search *usecase.Search, market *usecase.MarketData, limiter xmiddleware.Allower) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, search: search, market: market, limiter: limiter}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	var limited []echo.MiddlewareFunc
	if h.limiter != nil {
		limited = append(limited, xmiddleware.RateLimit(h.limiter))
	}
	g.POST("/analyze", h.Analyze, limited...)
	g.GET("/market", h.Market)
	g.POST("/market/refresh", h.RefreshMarket, limited...)
}

func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.search.Run(c.Request().Context(), req.Ticker, req.Reason)
	if err != nil {
		h.logger.Warn("analyze failed", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Market(c echo.Context) error {
	return h.serveMarket(c, h.market.Load)
}

// RefreshMarket re-fetches the region bundle ahead of its expiry.
func (h *AnalysisHandler) RefreshMarket(c echo.Context) error {
	return h.serveMarket(c, h.market.Refresh)
}

func (h *AnalysisHandler) serveMarket(c echo.Context, load func(context.Context, models.Region) (*models.MarketView, error)) error {
	req := &models.MarketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	view, err := load(c.Request().Context(), models.ParseRegion(req.Region))
	if err != nil {
		h.logger.Warn("market load failed", xlogger.String("region", req.Region), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	if view.Source == models.SourceCache {
		c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	}
	return xhttp.DataResponse(c, http.StatusOK, view)
}
