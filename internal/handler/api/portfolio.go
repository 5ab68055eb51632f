package api

import (
	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"
)

// PortfolioHandler serves the watchlist, price alerts and preferences.
type PortfolioHandler struct {
	logger    *xlogger.Logger
	portfolio *usecase.Portfolio
}

func NewPortfolioHandler(logger *xlogger.Logger, portfolio *usecase.Portfolio) *PortfolioHandler {
	return &PortfolioHandler{logger: logger, portfolio: portfolio}
}

func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/watchlist", h.Watchlist)
	g.POST("/watchlist", h.AddToWatchlist)
	g.DELETE("/watchlist/:ticker", h.RemoveFromWatchlist)
	g.GET("/alerts", h.Alerts)
	g.PUT("/alerts", h.SetAlert)
	g.DELETE("/alerts/:ticker", h.RemoveAlert)
	g.GET("/preferences", h.Preferences)
	g.PUT("/preferences", h.UpdatePreferences)
}

func (h *PortfolioHandler) Watchlist(c echo.Context) error {
	items := h.portfolio.Watchlist(c.Request().Context())
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *PortfolioHandler) AddToWatchlist(c echo.Context) error {
	req := &models.WatchlistAddRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	item, err := h.portfolio.AddToWatchlist(c.Request().Context(), req.Ticker, req.Name)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.CreatedResponse(c, item)
}

func (h *PortfolioHandler) RemoveFromWatchlist(c echo.Context) error {
	req := &models.TickerParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.portfolio.RemoveFromWatchlist(c.Request().Context(), req.Ticker); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *PortfolioHandler) Alerts(c echo.Context) error {
	alerts := h.portfolio.Alerts(c.Request().Context())
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}

func (h *PortfolioHandler) SetAlert(c echo.Context) error {
	req := &models.PriceAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	alert, err := h.portfolio.SetAlert(c.Request().Context(), models.PriceAlert{
		Ticker:      req.Ticker,
		TargetPrice: req.TargetPrice,
		Condition:   models.AlertCondition(req.Condition),
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, alert)
}

func (h *PortfolioHandler) RemoveAlert(c echo.Context) error {
	req := &models.TickerParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.portfolio.RemoveAlert(c.Request().Context(), req.Ticker); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

// PreferencesView hides the stored API key.
type PreferencesView struct {
	models.UserPreferences
	HasCustomAPIKey bool `json:"hasCustomApiKey"`
}

func newPreferencesView(p models.UserPreferences) PreferencesView {
	v := PreferencesView{UserPreferences: p, HasCustomAPIKey: p.CustomAPIKey != ""}
	v.CustomAPIKey = ""
	return v
}

func (h *PortfolioHandler) Preferences(c echo.Context) error {
	return xhttp.SuccessResponse(c, newPreferencesView(h.portfolio.Preferences(c.Request().Context())))
}

func (h *PortfolioHandler) UpdatePreferences(c echo.Context) error {
	req := &models.PreferencesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	prefs := models.UserPreferences{
		Email:                      req.Email,
		Phone:                      req.Phone,
		EnableBrowserPush:          req.EnableBrowserPush,
		EnableEmailAlerts:          req.EnableEmailAlerts,
		EnableSMSAlerts:            req.EnableSMSAlerts,
		OnlyHighImpact:             req.OnlyHighImpact != nil && *req.OnlyHighImpact,
		EnableBackgroundMonitoring: req.EnableBackgroundMonitoring,
		CustomAPIKey:               h.portfolio.Preferences(ctx).CustomAPIKey,
	}
	if req.CustomAPIKey != nil {
		prefs.CustomAPIKey = *req.CustomAPIKey
	}

	saved, err := h.portfolio.UpdatePreferences(ctx, prefs)
	if err != nil {
		h.logger.Error("update preferences failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, newPreferencesView(saved))
}
