package api

import (
	"github.com/labstack/echo/v4"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"
)

// SessionHandler serves host presence, the chat transcript and the status panel.
type SessionHandler struct {
	logger   *xlogger.Logger
	presence *usecase.Presence
	chat     *usecase.ChatChannel
	gate     *usecase.CooldownGate
	watchdog *usecase.Watchdog
	search   *usecase.Search
}

func NewSessionHandler(
	logger *xlogger.Logger,
	presence *usecase.Presence,
	chat *usecase.ChatChannel,
	gate *usecase.CooldownGate,
	watchdog *usecase.Watchdog,
	search *usecase.Search,
) *SessionHandler {
	return &SessionHandler{
		logger:   logger,
		presence: presence,
		chat:     chat,
		gate:     gate,
		watchdog: watchdog,
		search:   search,
	}
}

func (h *SessionHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/presence", h.Presence)
	g.GET("/status", h.Status)
	g.GET("/chat", h.Transcript)
}

func (h *SessionHandler) Presence(c echo.Context) error {
	req := &models.PresenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.presence.Report(req.Visible, req.NotificationPermission))
}

// StatusView is what the status panel shows.
type StatusView struct {
	CooldownActive    bool                     `json:"cooldownActive"`
	CooldownRemaining int64                    `json:"cooldownRemainingMs"`
	Watchdog          usecase.WatchdogState    `json:"watchdog"`
	AnalysisRunning   bool                     `json:"analysisRunning"`
	Presence          usecase.PresenceSnapshot `json:"presence"`
}

func (h *SessionHandler) Status(c echo.Context) error {
	remaining := h.gate.Remaining(c.Request().Context())
	return xhttp.SuccessResponse(c, StatusView{
		CooldownActive:    remaining > 0,
		CooldownRemaining: remaining.Milliseconds(),
		Watchdog:          h.watchdog.State(),
		AnalysisRunning:   h.search.Busy(),
		Presence:          h.presence.Snapshot(),
	})
}

func (h *SessionHandler) Transcript(c echo.Context) error {
	msgs := h.chat.Transcript()
	return xhttp.ListResponse(c, msgs, int64(len(msgs)))
}
